// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrInvalidDirectory is returned when the record root is missing or is not
// a directory.
var ErrInvalidDirectory = errors.New("invalid record directory")

// Discover walks root recursively and returns every file whose name ends in
// "."+ext, in lexical order. Hidden files and directories (leading dot) are
// skipped. The returned paths are joined onto root. A subdirectory that
// cannot be read is logged and skipped; only a failure at root is fatal.
func Discover(root, ext string, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, root)
	}

	suffix := "." + strings.TrimPrefix(ext, ".")

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), suffix) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %w", ErrInvalidDirectory, root, err)
	}
	return files, nil
}
