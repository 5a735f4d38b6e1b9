package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/lumberjack"
)

// newRotatingWriter opens a size-rotated log file. Rotation limits fall back
// to the package defaults when the config leaves them at zero.
func newRotatingWriter(path string, rotation *FileOutput) (*lumberjack.Logger, error) {
	if err := ensureFileDirectory(path); err != nil {
		return nil, err
	}

	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxRotatedFiles,
		MaxAge:     DefaultMaxAge,
	}
	if rotation != nil {
		if rotation.MaxSize > 0 {
			w.MaxSize = rotation.MaxSize
		}
		w.MaxBackups = rotation.MaxRotatedFiles
		w.MaxAge = rotation.MaxAge
		w.Compress = rotation.Compress
	}

	return w, nil
}

// ensureFileDirectory creates the directory for a file path if it doesn't exist
func ensureFileDirectory(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("log file path is empty")
	}

	dir := filepath.Dir(filePath)
	if dir == "." || dir == filePath {
		return nil
	}

	const dirPermissions = 0o750
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}
