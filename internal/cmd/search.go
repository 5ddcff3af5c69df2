package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/rgrep/internal/config"
	"github.com/harrison/rgrep/internal/display"
	"github.com/harrison/rgrep/internal/executor"
	"github.com/harrison/rgrep/internal/logger"
	"github.com/harrison/rgrep/internal/models"
	"github.com/harrison/rgrep/internal/search"
	"github.com/spf13/cobra"
)

const defaultPath = "./"

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("name-base", "n", false, "Match entry names instead of file contents")
	cmd.Flags().BoolP("line-number", "l", false, "Show line numbers and highlight matches")
	cmd.Flags().IntP("depth", "d", 1, "Maximum directory depth to search (0 = root only)")
	cmd.Flags().IntP("thread-count", "t", 2, "Maximum number of concurrent search tasks")
	cmd.Flags().BoolP("invert-match", "i", false, "Report entries or lines that do not match")
	cmd.Flags().StringSlice("exclude-dir", nil, "Directory name to skip (repeatable)")
	cmd.Flags().Bool("verbose", false, "Trace every entry and permit (same as --log-level trace)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-file", "", "Append run diagnostics to this file")
	cmd.Flags().String("config", "", "Path to config file (default: .rgrep/config.yaml)")
	cmd.Flags().String("color", "", "Colorize output: auto, always, never")
	cmd.Flags().Duration("timeout", 0, "Abort the search after this long (e.g., 30s, 2m)")
	cmd.Flags().Bool("fail-fast", false, "Cancel running tasks after the first failure")
	cmd.Flags().Bool("summary", false, "Print a one-line run summary to stderr")
}

// runCommand implements the search
func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	pattern := args[0]
	root := defaultPath
	if len(args) > 1 {
		root = args[1]
	}

	errOut := cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return reportError(cmd, err, display.ColorAuto)
	}
	colorMode, err := display.ParseColorMode(cfg.Color)
	if err != nil {
		return reportError(cmd, err, display.ColorAuto)
	}

	searchCfg, err := cfg.Build(pattern, root)
	if err != nil {
		return reportError(cmd, err, colorMode)
	}

	console := logger.NewConsoleLogger(errOut, cfg.LogLevel)
	console.SetColor(display.ShouldColor(colorMode, errOut))
	var log logger.Logger = console

	var fileLog *logger.FileLogger
	if cfg.LogFile != "" {
		fileLog, err = logger.NewFileLogger(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			console.LogWarn(fmt.Sprintf("run log disabled: %v", err))
		} else {
			log = logger.NewMultiLogger(console, fileLog)
			console.LogDebug(fmt.Sprintf("run %s logging to %s", fileLog.RunID(), fileLog.Path()))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	out := cmd.OutOrStdout()
	reporter := display.NewStreamReporter(out, display.NewFormatter(display.ShouldColor(colorMode, out), searchCfg.ShowLineNumber))
	searcher := search.NewSearcher(searchCfg, reporter, log)

	orch, err := executor.NewOrchestrator(searchCfg, searcher, log,
		executor.WithExcludeDirs(cfg.ExcludeDirs),
		executor.WithFailFast(cfg.FailFast),
	)
	if err != nil {
		return reportError(cmd, err, colorMode)
	}

	result, runErr := orch.Run(ctx)

	if cfg.Summary {
		display.RenderSummary(errOut, result)
	}
	if fileLog != nil && fileLog.Err() != nil {
		console.LogWarn(fmt.Sprintf("run log %s incomplete: %v", fileLog.Path(), fileLog.Err()))
	}
	if runErr != nil {
		if models.IsFatal(runErr) {
			log.LogError(runErr.Error())
		} else {
			// cancellation, timeout or a reporter write failure
			log.LogWarn(runErr.Error())
		}
		return reportError(cmd, runErr, colorMode)
	}
	return nil
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	configPath, _ := flags.GetString("config")
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var o config.Overrides
	if flags.Changed("depth") {
		v, _ := flags.GetInt("depth")
		o.Depth = &v
	}
	if flags.Changed("thread-count") {
		v, _ := flags.GetInt("thread-count")
		o.ThreadCount = &v
	}
	if flags.Changed("invert-match") {
		v, _ := flags.GetBool("invert-match")
		o.InvertMatch = &v
	}
	if flags.Changed("line-number") {
		v, _ := flags.GetBool("line-number")
		o.LineNumber = &v
	}
	if flags.Changed("name-base") {
		v, _ := flags.GetBool("name-base")
		o.NameBase = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel = &v
	}
	// --verbose wins over --log-level
	if verbose, _ := flags.GetBool("verbose"); verbose {
		v := "trace"
		o.LogLevel = &v
	}
	if flags.Changed("log-file") {
		v, _ := flags.GetString("log-file")
		o.LogFile = &v
	}
	if flags.Changed("color") {
		v, _ := flags.GetString("color")
		o.Color = &v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		o.Timeout = &v
	}
	if flags.Changed("fail-fast") {
		v, _ := flags.GetBool("fail-fast")
		o.FailFast = &v
	}
	if flags.Changed("summary") {
		v, _ := flags.GetBool("summary")
		o.Summary = &v
	}
	if flags.Changed("exclude-dir") {
		o.ExcludeDirs, _ = flags.GetStringSlice("exclude-dir")
	}

	cfg.MergeWithFlags(o)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func reportError(cmd *cobra.Command, err error, mode display.ColorMode) error {
	errOut := cmd.ErrOrStderr()
	display.NewErrorReport(err).Display(errOut, display.ShouldColor(mode, errOut))
	return &ReportedError{Err: err}
}
