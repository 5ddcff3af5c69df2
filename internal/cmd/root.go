package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// ReportedError marks an error that was already displayed to the user, so
// main only has to pick the exit code.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// IsReported reports whether err was already displayed.
func IsReported(err error) bool {
	var re *ReportedError
	return errors.As(err, &re)
}

// NewRootCommand creates and returns the root cobra command for rgrep
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rgrep [pattern] [path]",
		Short: "Concurrent recursive regex search",
		Long: `rgrep walks a directory tree and searches it with a regular expression.

By default every regular file is read line by line and matching lines are
printed. With --name-base the pattern is tested against entry names instead.
Each entry is searched on its own task; --thread-count bounds how many tasks
run at once.

Configuration is loaded from .rgrep/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  rgrep 'func \w+' ./internal          # Search file contents
  rgrep -l -d 3 TODO .                 # Line numbers, three levels deep
  rgrep -n '^main' .                   # Match entry names
  rgrep -i '^\s*$' notes.txt           # Lines that are not blank
  rgrep -t 8 --summary error /var/log  # Eight tasks, print a summary`,
		Version: Version,
		Args:    cobra.MaximumNArgs(2),
		RunE:    runCommand,
		// Errors are rendered as error reports; avoid cobra's duplicate output
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addSearchFlags(cmd)
	return cmd
}
