package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dlcks7456/diaryCleaning/internal/config"
)

// DiaryCSV is a small diary in the default column layout. After sorting,
// panel P1 holds unique IDs 1 to 3 with orders 1, 2 and 4, and P2 holds ID 4.
const DiaryCSV = `PANELNO,Q1,Q2,Q3,Q4,Q5,answer_date
P2,3|16,1,B,9|0,9|20,2024-03-16
P1,3|15,1,A,9|0,9|30,2024-03-15
P1,3|15,2,A,10|0,10|30,2024-03-15
P1,3|15,4,A,11|0,11|30,2024-03-15
`

// Config returns defaults tuned for DiaryCSV with storage under dir.
func Config(t *testing.T, dir string) (*config.Config, *config.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.Validation.ProductList = []string{"A", "B"}
	cfg.Validation.MaxAnswers = 5
	cfg.Validation.DurationMax = 120
	paths := cfg.ResolvePaths(dir)
	if err := paths.EnsureDirectories(); err != nil {
		t.Fatalf("create storage directories: %v", err)
	}
	return cfg, paths
}

// WriteFile writes content to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
