package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Paths holds the resolved output directories.
type Paths struct {
	ConvertDir string
	LogDir     string
	ImportDir  string
}

// ResolvePaths resolves the configured directories against base. Absolute
// paths are kept as is.
func (c *Config) ResolvePaths(base string) *Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	return &Paths{
		ConvertDir: resolve(c.Paths.ConvertDir),
		LogDir:     resolve(c.Paths.LogDir),
		ImportDir:  resolve(c.Paths.ImportDir),
	}
}

// EnsureDirectories creates all output directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ConvertDir, p.LogDir, p.ImportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConvertedFile is the derived workbook path for a run started at t.
func (p *Paths) ConvertedFile(t time.Time) string {
	return filepath.Join(p.ConvertDir, "converted_data_"+t.Format("20060102_150405")+".xlsx")
}

// ImportFile is the export-for-import workbook path for day t.
func (p *Paths) ImportFile(t time.Time) string {
	return filepath.Join(p.ImportDir, "import_data_"+t.Format("20060102")+".xlsx")
}

// LogFile is the daily change log path.
func (p *Paths) LogFile(t time.Time) string {
	return filepath.Join(p.LogDir, "log_"+t.Format("20060102")+".csv")
}
