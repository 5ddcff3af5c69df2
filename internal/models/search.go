package models

import (
	"path/filepath"
	"regexp"
)

// SearchMode selects what a search task inspects for an entry.
type SearchMode int

const (
	// ContentSearch scans file contents line by line. Directories are skipped.
	ContentSearch SearchMode = iota
	// NameSearch matches only the base name of files and directories.
	NameSearch
)

// String returns the string representation of SearchMode.
func (m SearchMode) String() string {
	switch m {
	case ContentSearch:
		return "content"
	case NameSearch:
		return "name"
	default:
		return "unknown"
	}
}

// SearchConfig is the fully resolved, immutable configuration of one run.
// It is built once by config.Build and shared read-only by every search task.
type SearchConfig struct {
	Pattern          *regexp.Regexp // Compiled pattern, safe for concurrent matching
	RootPath         string         // Where traversal starts
	Mode             SearchMode     // Content or name search
	MaxDepth         int            // Depth bound; the root itself is depth 0
	ConcurrencyLimit int            // Number of semaphore permits, always >= 1
	InvertMatch      bool           // Report what the pattern does NOT match
	ShowLineNumber   bool           // Content mode: prefix lines with their number and highlight spans
	Verbose          bool           // Trace each step of the run
}

// Entry is one filesystem node visited during traversal.
type Entry struct {
	Path  string // Path as produced by the walk (root joined with relative path)
	IsDir bool   // True for directories
	Depth int    // Distance from the walk root, root = 0
}

// Name returns the base name of the entry, or "" when the path has no
// meaningful final element (".", "..", or a filesystem root).
func (e Entry) Name() string {
	base := filepath.Base(e.Path)
	switch base {
	case ".", "..", string(filepath.Separator):
		return ""
	}
	return base
}
