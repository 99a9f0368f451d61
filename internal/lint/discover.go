package lint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands roots into the files to lint.
//
// A root may be a file, a directory or a doublestar glob. Directories are
// walked for files some language supports; files named explicitly are kept
// even when no language claims them so the caller sees the error. Paths
// matching an ignore pattern are dropped, and ignored directories are not
// descended into. The result has no duplicates and keeps discovery order.
func Discover(roots, ignore []string, langs *Languages) ([]string, error) {
	for _, pattern := range ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	var (
		files []string
		seen  = make(map[string]bool)
	)
	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, root := range roots {
		if isGlob(root) {
			matches, err := doublestar.FilepathGlob(root, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expand %q: %w", root, err)
			}
			for _, m := range matches {
				if langs.Supports(m) && !ignored(m, ignore) {
					add(m)
				}
			}
			continue
		}

		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && ignored(path, ignore) {
					return filepath.SkipDir
				}
				return nil
			}
			if langs.Supports(path) && !ignored(path, ignore) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// ignored matches path against every pattern using forward slashes. A leading
// slash is dropped so "**/x" patterns also match absolute paths.
func ignored(path string, patterns []string) bool {
	slashed := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
