// Package search implements the per-entry search task.
//
// A Searcher holds what every task shares for a run (configuration, matcher,
// reporter) and its Run method is the task body: a name test in name mode, a
// sequential line scan in content mode. Records are reported as soon as they
// are found, so lines of one file always arrive in ascending order.
package search

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/harrison/rgrep/internal/display"
	"github.com/harrison/rgrep/internal/logger"
	"github.com/harrison/rgrep/internal/matcher"
	"github.com/harrison/rgrep/internal/models"
)

// Searcher runs search tasks for one configuration. It is safe for
// concurrent use: each Run call touches only its own entry and file.
type Searcher struct {
	cfg      *models.SearchConfig
	matcher  *matcher.Matcher
	reporter display.Reporter
	tracer   logger.Tracer

	matches      atomic.Int64
	bytesScanned atomic.Int64
}

// NewSearcher creates a Searcher. tracer may be nil.
func NewSearcher(cfg *models.SearchConfig, reporter display.Reporter, tracer logger.Tracer) *Searcher {
	if tracer == nil {
		tracer = logger.NewNoOpLogger()
	}
	return &Searcher{
		cfg:      cfg,
		matcher:  matcher.FromConfig(cfg),
		reporter: reporter,
		tracer:   tracer,
	}
}

// Matches returns the number of records reported so far.
func (s *Searcher) Matches() int64 {
	return s.matches.Load()
}

// BytesScanned returns the number of file bytes read so far.
func (s *Searcher) BytesScanned() int64 {
	return s.bytesScanned.Load()
}

// Run searches one entry. Errors are *models.FileOpenError,
// *models.LineReadError, a reporter write error, or the context error.
func (s *Searcher) Run(ctx context.Context, entry models.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cfg.Verbose {
		s.tracer.LogTrace(fmt.Sprintf("filename: %q", entry.Name()))
	}

	if s.cfg.Mode == models.NameSearch {
		return s.searchName(entry)
	}
	if entry.IsDir {
		return nil
	}
	return s.searchContent(ctx, entry)
}

func (s *Searcher) searchName(entry models.Entry) error {
	if !s.matcher.NameMatches(entry) {
		return nil
	}
	return s.report(models.MatchRecord{
		Mode: models.NameSearch,
		Path: entry.Path,
		Name: entry.Name(),
	})
}

func (s *Searcher) searchContent(ctx context.Context, entry models.Entry) error {
	file, err := os.Open(entry.Path)
	if err != nil {
		return &models.FileOpenError{Path: entry.Path, Err: err}
	}
	defer file.Close()

	// A link whose target became a directory after the walk reads as EISDIR
	if info, err := file.Stat(); err == nil && info.IsDir() {
		return nil
	}

	name := entry.Name()
	reader := bufio.NewReader(file)

	for lineNumber := 1; ; lineNumber++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return &models.LineReadError{Path: entry.Path, Line: lineNumber, Err: readErr}
		}
		if raw == "" {
			// EOF right after the last terminator: no further line
			return nil
		}
		s.bytesScanned.Add(int64(len(raw)))

		line := trimLineEnding(raw)
		if !utf8.ValidString(line) {
			return &models.LineReadError{Path: entry.Path, Line: lineNumber, Err: models.ErrInvalidUTF8}
		}

		if s.matcher.LineMatches(line) {
			rec := models.MatchRecord{
				Mode:       models.ContentSearch,
				Path:       entry.Path,
				Name:       name,
				LineNumber: lineNumber,
				Line:       line,
			}
			if s.cfg.ShowLineNumber {
				rec.Spans = s.matcher.Spans(line)
			}
			if err := s.report(rec); err != nil {
				return err
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

func (s *Searcher) report(rec models.MatchRecord) error {
	if err := s.reporter.Report(rec); err != nil {
		return fmt.Errorf("failed to write match for %s: %w", rec.Path, err)
	}
	s.matches.Add(1)
	return nil
}

// trimLineEnding strips one trailing "\n" or "\r\n". A lone "\r" is line content.
func trimLineEnding(s string) string {
	if !strings.HasSuffix(s, "\n") {
		return s
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
