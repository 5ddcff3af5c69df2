// Package display renders search output for the terminal.
//
// It owns the three textual shapes of a match record, written by a Reporter
// that serialises whole records so concurrent search tasks never tear a line:
//
//	name search:                 <path>
//	content search:              <path>: <line>
//	content search, line numbers: <name>: <n>:<line with highlighted matches>
//
// Highlighting (green line numbers, red underlined matches) is applied only
// when color is enabled; see ShouldColor for the auto-detection rules.
//
// Fatal errors are shown with ErrorReport:
//
//	report := display.NewErrorReport(err)
//	report.Display(os.Stderr, useColor)
//
// and RenderSummary writes the one-line run statistics.
package display
