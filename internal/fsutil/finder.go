// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FindFilesByExtension resolves every path to the files ending with ext.
// A file path is taken as is when its extension matches; a directory is
// walked recursively in lexical order. Paths that do not exist are an error
// and every file is returned once.
func FindFilesByExtension(paths []string, ext string) ([]string, error) {
	if ext == "" {
		return nil, fmt.Errorf("fsutil: extension must not be empty")
	}

	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; !ok {
			files = append(files, p)
			seen[p] = struct{}{}
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", root, err)
		}
		if !info.IsDir() {
			if filepath.Ext(root) == ext {
				add(root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ext {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
