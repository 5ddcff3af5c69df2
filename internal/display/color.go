package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorMode controls whether output is colorized.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode converts a flag or config value into a ColorMode.
// The empty string means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways:
		return ColorAlways, nil
	case ColorNever:
		return ColorNever, nil
	default:
		return "", fmt.Errorf("invalid color mode %q, must be one of: auto, always, never", s)
	}
}

// ShouldColor decides whether to colorize output written to w.
// In auto mode color is used only for a terminal file and only when
// NO_COLOR is not set (fatih/color reports that through color.NoColor).
func ShouldColor(mode ColorMode, w io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return !color.NoColor
}

// palette holds the colors for one output stream. Each color is forced on
// or off explicitly so the decision made by ShouldColor is the only one.
type palette struct {
	lineNumber *color.Color
	highlight  *color.Color
	errorTitle *color.Color
	label      *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		lineNumber: color.New(color.FgGreen),
		highlight:  color.New(color.FgRed, color.Underline),
		errorTitle: color.New(color.FgRed, color.Bold),
		label:      color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.lineNumber, p.highlight, p.errorTitle, p.label} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
