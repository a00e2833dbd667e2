package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ValidateInputFile opens filename and checks it is a regular file of at
// most maxSize bytes. maxSize <= 0 skips the size check.
func ValidateInputFile(filename string, maxSize int64) error {
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("no input file given")
	}

	f, err := os.Open(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("resume file not found: %s", filename)
	case err != nil:
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filename, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", filename)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("%s is %s, limit is %s", filename, FormatFileSize(info.Size()), FormatFileSize(maxSize))
	}
	return nil
}

// ValidateOutputFile makes sure the directory holding filename exists.
// An empty name writes to stdout and needs nothing.
func ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

// GetFileExtension returns the lowercased extension including the dot.
func GetFileExtension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

var sizeUnits = []string{"KB", "MB", "GB", "TB"}

// FormatFileSize renders size in binary units, e.g. "1.5 MB".
func FormatFileSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size) / 1024
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
