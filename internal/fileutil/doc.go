// Package fileutil enumerates the filesystem entries a search run visits.
//
// Walk wraps filepath.WalkDir in a lazy, depth-bounded sequence of
// models.Entry values. The walk root is depth 0 and is yielded itself; its
// children are depth 1, and so on. Siblings come in lexical order and a
// directory always precedes its children, so the order is stable for a given
// filesystem snapshot.
//
// Basic usage:
//
//	for entry, err := range fileutil.Walk("/path/to/dir", fileutil.WalkOptions{MaxDepth: 2}) {
//	    if err != nil {
//	        return err // *models.TraversalError, the walk has stopped
//	    }
//	    fmt.Println(entry.Path)
//	}
//
// Directories listed in ExcludeDirs (matched by base name) are neither yielded
// nor descended into. The root is never excluded.
//
// Any error resolving an entry ends the sequence with a *models.TraversalError
// naming the offending path; a directory that cannot be read is yielded first
// and the error follows it.
package fileutil
