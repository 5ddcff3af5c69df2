package models

import "time"

// Span is a half-open byte range [Start, End) within a line.
type Span struct {
	Start int
	End   int
}

// MatchRecord is one reportable event. It is produced by a search task and
// handed straight to a reporter; nothing keeps it afterwards.
type MatchRecord struct {
	Mode       SearchMode // Which search produced the record
	Path       string     // Entry path
	Name       string     // Entry base name (used by the line-number format)
	LineNumber int        // 1-based line index; 0 for name matches
	Line       string     // Raw line text without its terminator; empty for name matches
	Spans      []Span     // Highlight spans, only computed when line numbers are shown
}

// RunResult aggregates the statistics of one orchestrated run.
type RunResult struct {
	EntriesVisited  int           // Entries yielded by the enumerator
	TasksSpawned    int           // Search tasks started
	TasksFailed     int           // Search tasks that returned an error
	Matches         int64         // Match records reported
	BytesScanned    int64         // File bytes read by content search
	PermitsAcquired int64         // Semaphore acquisitions during the run
	PermitsReleased int64         // Semaphore releases during the run
	Duration        time.Duration // Wall time from walk start to last join
}

// Succeeded reports whether no task failed.
func (r RunResult) Succeeded() bool {
	return r.TasksFailed == 0
}
