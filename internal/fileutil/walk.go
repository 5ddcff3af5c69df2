package fileutil

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/rgrep/internal/models"
)

// WalkOptions configures the enumeration.
type WalkOptions struct {
	// MaxDepth bounds the walk; 0 yields only the root, 1 adds its children.
	MaxDepth int
	// ExcludeDirs is a list of directory names to skip (e.g., ".git", "node_modules")
	ExcludeDirs []string
}

// Walk returns the entries under root down to opts.MaxDepth. The sequence is
// lazy: directories are read only as the consumer pulls entries, and breaking
// out of the range loop stops the walk.
func Walk(root string, opts WalkOptions) iter.Seq2[models.Entry, error] {
	excludeMap := make(map[string]bool, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		excludeMap[dir] = true
	}

	return func(yield func(models.Entry, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				yield(models.Entry{Path: path}, &models.TraversalError{Path: path, Err: err})
				return filepath.SkipAll
			}

			depth := Depth(root, path)
			if depth > opts.MaxDepth {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			isDir := resolvesToDir(path, d)
			if isDir && depth > 0 && excludeMap[d.Name()] {
				if d.IsDir() {
					return filepath.SkipDir
				}
				// SkipDir on a non-directory would skip its remaining siblings
				return nil
			}

			entry := models.Entry{Path: path, IsDir: isDir, Depth: depth}
			if !yield(entry, nil) {
				return filepath.SkipAll
			}

			// Children of a directory at the bound would all be skipped; not
			// reading it also keeps permission errors past the bound silent.
			if d.IsDir() && depth == opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		})
	}
}

// resolvesToDir reports whether the entry is a directory, following a
// symbolic link to its target. Links are never descended into; a dangling
// link counts as a file.
func resolvesToDir(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return d.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Depth returns how many path elements path lies below root.
func Depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Collect drains a walk into a slice, stopping at the first error.
func Collect(seq iter.Seq2[models.Entry, error]) ([]models.Entry, error) {
	var entries []models.Entry
	for entry, err := range seq {
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
