package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/rgrep/internal/models"
)

// ErrorReport is the user-facing block printed for a fatal error.
type ErrorReport struct {
	Title      string // Operation that failed
	Message    string // Underlying cause (optional)
	Path       string // Path involved (optional)
	Suggestion string // Action to take (optional)
}

// NewErrorReport classifies err against the error taxonomy.
func NewErrorReport(err error) ErrorReport {
	path, _ := models.ErrorPath(err)
	var (
		pce *models.PatternCompileError
		te  *models.TraversalError
		foe *models.FileOpenError
		lre *models.LineReadError
	)

	switch {
	case errors.As(err, &pce):
		return ErrorReport{
			Title:      fmt.Sprintf("invalid regex pattern %q", pce.Pattern),
			Message:    causeOf(pce.Err),
			Suggestion: "Check the pattern syntax (Go RE2); escape literal metacharacters with \\",
		}
	case errors.As(err, &te):
		return ErrorReport{
			Title:      "failed to read entry",
			Message:    causeOf(te.Err),
			Path:       path,
			Suggestion: "Check permissions on the path or lower --depth",
		}
	case errors.As(err, &foe):
		return ErrorReport{
			Title:   "failed to open file",
			Message: causeOf(foe.Err),
			Path:    path,
		}
	case errors.As(err, &lre):
		return ErrorReport{
			Title:      fmt.Sprintf("failed to read line %d", lre.Line),
			Message:    causeOf(lre.Err),
			Path:       path,
			Suggestion: "Use --name-base or --exclude-dir to skip binary files",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorReport{Title: "search timed out", Message: err.Error(), Suggestion: "Raise --timeout"}
	case errors.Is(err, context.Canceled):
		return ErrorReport{Title: "search cancelled", Message: err.Error()}
	}
	return ErrorReport{Title: err.Error()}
}

func causeOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Display writes the report. The first line always reads
// "Error: <title>[ <path>]" so it stays greppable in logs.
func (r ErrorReport) Display(out io.Writer, color bool) {
	colors := newPalette(color)
	var b strings.Builder

	b.WriteString(colors.errorTitle.Sprint("Error: "))
	b.WriteString(r.Title)
	if r.Path != "" {
		b.WriteString(" ")
		b.WriteString(r.Path)
	}
	b.WriteString("\n")

	if r.Message != "" {
		b.WriteString("    ")
		b.WriteString(colors.label.Sprint("Cause: "))
		b.WriteString(r.Message)
		b.WriteString("\n")
	}

	if r.Suggestion != "" {
		b.WriteString("    ")
		b.WriteString(colors.label.Sprint("Suggestion: "))
		b.WriteString(r.Suggestion)
		b.WriteString("\n")
	}

	fmt.Fprint(out, b.String())
}
