package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dlcks7456/diaryCleaning/internal/config"
)

// Output kinds
const (
	KindConverted = "converted"
	KindImport    = "import"
	KindChangeLog = "changelog"
)

// FileInfo describes one file in an output directory.
type FileInfo struct {
	Kind    string    `json:"kind"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Discovery scans the resolved output directories.
type Discovery struct {
	paths *config.Paths
}

// NewDiscovery creates a discovery over paths.
func NewDiscovery(paths *config.Paths) *Discovery {
	return &Discovery{paths: paths}
}

// Outputs returns every converted, import and change log file, newest
// first. A missing directory contributes nothing.
func (d *Discovery) Outputs() ([]FileInfo, error) {
	sources := []struct {
		kind, dir, prefix string
		exts              []string
	}{
		{KindConverted, d.paths.ConvertDir, "converted_data_", []string{".xlsx", ".csv"}},
		{KindImport, d.paths.ImportDir, "import_data_", []string{".xlsx"}},
		{KindChangeLog, d.paths.LogDir, "log_", []string{".csv"}},
	}

	var out []FileInfo
	for _, src := range sources {
		found, err := findFiles(src.dir, src.prefix, src.exts)
		if err != nil {
			return nil, err
		}
		for i := range found {
			found[i].Kind = src.kind
		}
		out = append(out, found...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

// Latest returns the newest output of kind.
func (d *Discovery) Latest(kind string) (FileInfo, bool, error) {
	all, err := d.Outputs()
	if err != nil {
		return FileInfo{}, false, err
	}
	var matching []FileInfo
	for _, f := range all {
		if f.Kind == kind {
			matching = append(matching, f)
		}
	}
	latest, ok := GetLatestFile(matching)
	return latest, ok, nil
}

func findFiles(dir, prefix string, exts []string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		// skip Excel lock files
		if strings.HasPrefix(name, "~$") || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !hasExt(name, exts) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
