// Package importdir scans a drop directory for files awaiting import and
// moves processed ones aside so they are not picked up twice.
package importdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileInfo describes one file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// importDir is the subdirectory files are dropped into.
const importDir = "import"

// processedDir is where handled files are moved.
const processedDir = "import/processed"

// Scan returns export (.csv) and backup (.json) files in <baseDir>/import/.
func Scan(baseDir string) ([]FileInfo, error) {
	dir := filepath.Join(baseDir, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(baseDir, fileName string) error {
	src := filepath.Join(baseDir, importDir, fileName)
	dstDir := filepath.Join(baseDir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
