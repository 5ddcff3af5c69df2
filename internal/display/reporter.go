package display

import (
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/harrison/rgrep/internal/models"
)

// Reporter receives match records as search tasks discover them.
// Implementations must be safe for concurrent use.
type Reporter interface {
	Report(rec models.MatchRecord) error
}

// Formatter turns match records into output lines.
type Formatter struct {
	colors      *palette
	lineNumbers bool
}

// NewFormatter creates a Formatter. color enables highlighting; lineNumbers
// selects the numbered content format.
func NewFormatter(color, lineNumbers bool) *Formatter {
	return &Formatter{colors: newPalette(color), lineNumbers: lineNumbers}
}

// Format renders rec without a trailing newline.
func (f *Formatter) Format(rec models.MatchRecord) string {
	if rec.Mode == models.NameSearch {
		return rec.Path
	}
	if !f.lineNumbers {
		return rec.Path + ": " + rec.Line
	}

	var b strings.Builder
	b.WriteString(rec.Name)
	b.WriteString(": ")
	b.WriteString(f.colors.lineNumber.Sprint(strconv.Itoa(rec.LineNumber)))
	b.WriteString(":")
	b.WriteString(f.Highlight(rec.Line, rec.Spans))
	return b.String()
}

// Highlight wraps every span of line in the highlight color. Spans must be
// sorted and non-overlapping, as regexp.FindAllStringIndex returns them.
func (f *Formatter) Highlight(line string, spans []models.Span) string {
	if len(spans) == 0 {
		return line
	}
	var b strings.Builder
	prev := 0
	for _, s := range spans {
		if s.Start < prev || s.End > len(line) || s.Start >= s.End {
			continue
		}
		b.WriteString(line[prev:s.Start])
		b.WriteString(f.colors.highlight.Sprint(line[s.Start:s.End]))
		prev = s.End
	}
	b.WriteString(line[prev:])
	return b.String()
}

// StreamReporter writes each record as one line to an io.Writer. A mutex
// around the single Write per record keeps concurrent output from tearing
// while leaving the search work itself unserialised.
type StreamReporter struct {
	writer    io.Writer
	formatter *Formatter
	mu        sync.Mutex
}

// NewStreamReporter creates a StreamReporter writing to w.
func NewStreamReporter(w io.Writer, formatter *Formatter) *StreamReporter {
	if formatter == nil {
		formatter = NewFormatter(false, false)
	}
	return &StreamReporter{writer: w, formatter: formatter}
}

// Report implements Reporter.
func (r *StreamReporter) Report(rec models.MatchRecord) error {
	line := r.formatter.Format(rec) + "\n"

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := io.WriteString(r.writer, line)
	return err
}
