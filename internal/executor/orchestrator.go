// Package executor drives a search run: it walks the tree on one goroutine and
// fans each entry out to its own search task, admitted through a counting
// semaphore.
//
// The walker acquires a permit before it spawns a task, so at most
// ConcurrencyLimit tasks are alive at once and the walk slows down to the rate
// at which tasks finish. Each task releases its permit on every exit path.
// After the walk ends, tasks are joined in the order they were spawned.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/harrison/rgrep/internal/fileutil"
	"github.com/harrison/rgrep/internal/logger"
	"github.com/harrison/rgrep/internal/models"
	"github.com/harrison/rgrep/internal/semaphore"
)

// TaskRunner defines the behavior required to search a single entry.
// Run is called concurrently from many goroutines.
type TaskRunner interface {
	Run(ctx context.Context, entry models.Entry) error
}

// statsSource is implemented by runners that count what they report.
type statsSource interface {
	Matches() int64
	BytesScanned() int64
}

// Orchestrator runs one search over a tree.
type Orchestrator struct {
	cfg         *models.SearchConfig
	runner      TaskRunner
	logger      logger.Logger
	excludeDirs []string
	failFast    bool
	state       atomic.Int32
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExcludeDirs skips directories with the given base names.
func WithExcludeDirs(dirs []string) Option {
	return func(o *Orchestrator) { o.excludeDirs = dirs }
}

// WithFailFast cancels in-flight tasks as soon as one task fails.
func WithFailFast(enabled bool) Option {
	return func(o *Orchestrator) { o.failFast = enabled }
}

// NewOrchestrator constructs an Orchestrator. The logger parameter is optional
// and can be nil to disable logging.
func NewOrchestrator(cfg *models.SearchConfig, runner TaskRunner, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("search config cannot be nil")
	}
	if runner == nil {
		return nil, fmt.Errorf("task runner is required")
	}
	if cfg.ConcurrencyLimit < 1 {
		return nil, fmt.Errorf("concurrency limit must be >= 1, got %d", cfg.ConcurrencyLimit)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	o := &Orchestrator{cfg: cfg, runner: runner, logger: log}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) transition(from, to State) bool {
	if !o.state.CompareAndSwap(int32(from), int32(to)) {
		return false
	}
	o.logger.LogTrace(fmt.Sprintf("run state %s -> %s", from, to))
	return true
}

// taskHandle is what the walker keeps to join a spawned task.
type taskHandle struct {
	entry models.Entry
	done  chan error
}

// Run walks the tree and searches every entry. It returns the run statistics
// and the fatal error of the run, if any; see firstFatal for which error wins
// when several occur. An Orchestrator runs once.
func (o *Orchestrator) Run(ctx context.Context) (models.RunResult, error) {
	var result models.RunResult
	if !o.transition(StateIdle, StateWalking) {
		if state := o.State(); !state.Terminal() {
			return result, fmt.Errorf("orchestrator is already running (state %s)", state)
		}
		return result, fmt.Errorf("orchestrator already ran (state %s)", o.State())
	}

	sem, err := semaphore.New(o.cfg.ConcurrencyLimit)
	if err != nil {
		o.transition(StateWalking, StateFailed)
		return result, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	o.logger.LogDebug(fmt.Sprintf("searching %s (mode %s, depth %d, %d permits)",
		o.cfg.RootPath, o.cfg.Mode, o.cfg.MaxDepth, o.cfg.ConcurrencyLimit))

	var (
		handles []*taskHandle
		walkErr error
	)

	walk := fileutil.Walk(o.cfg.RootPath, fileutil.WalkOptions{
		MaxDepth:    o.cfg.MaxDepth,
		ExcludeDirs: o.excludeDirs,
	})

	for entry, err := range walk {
		if err != nil {
			walkErr = err
			break
		}
		result.EntriesVisited++

		// Blocks while every permit is held; this is what throttles the walk.
		permit, err := sem.AcquireContext(ctx)
		if err != nil {
			walkErr = fmt.Errorf("search stopped before %s: %w", entry.Path, err)
			break
		}
		if o.cfg.Verbose {
			o.logger.LogTrace(fmt.Sprintf("wait %s for %s", sem, entry.Path))
		}

		h := &taskHandle{entry: entry, done: make(chan error, 1)}
		handles = append(handles, h)

		go func(h *taskHandle, permit *semaphore.Permit) {
			var taskErr error
			defer func() {
				if r := recover(); r != nil {
					taskErr = fmt.Errorf("search task for %s panicked: %v", h.entry.Path, r)
				}
				permit.Release()
				if o.cfg.Verbose {
					o.logger.LogTrace(fmt.Sprintf("signal %s after %s", sem, h.entry.Path))
				}
				if taskErr != nil && o.failFast {
					cancel()
				}
				h.done <- taskErr
			}()
			taskErr = o.runner.Run(ctx, h.entry)
		}(h, permit)
	}

	o.transition(StateWalking, StateDraining)
	result.TasksSpawned = len(handles)

	taskErrs := make([]error, 0)
	for _, h := range handles {
		if err := <-h.done; err != nil {
			result.TasksFailed++
			taskErrs = append(taskErrs, err)
			if len(taskErrs) > 1 {
				o.logger.LogDebug(fmt.Sprintf("suppressed error from %s: %v", h.entry.Path, err))
			}
		}
	}

	result.PermitsAcquired, result.PermitsReleased = sem.Stats()
	if stats, ok := o.runner.(statsSource); ok {
		result.Matches = stats.Matches()
		result.BytesScanned = stats.BytesScanned()
	}
	result.Duration = time.Since(start)

	runErr := firstFatal(taskErrs, walkErr)
	if runErr != nil {
		o.transition(StateDraining, StateFailed)
		o.logger.LogDebug(fmt.Sprintf("search failed after %d tasks: %v", result.TasksSpawned, runErr))
		return result, runErr
	}

	o.transition(StateDraining, StateCompleted)
	o.logger.LogDebug(fmt.Sprintf("search completed: %d entries, %d tasks, %d matches in %s",
		result.EntriesVisited, result.TasksSpawned, result.Matches, result.Duration.Round(time.Millisecond)))
	return result, nil
}

// firstFatal picks the error surfaced for the run. Task errors are considered
// in spawn order and the walk error comes after all of them, because it
// stopped spawning. A cancellation or deadline error only wins when nothing
// else failed, so a fail-fast cancel never hides the failure that caused it.
func firstFatal(taskErrs []error, walkErr error) error {
	candidates := append(taskErrs, walkErr)
	var firstCtxErr error
	for _, err := range candidates {
		if err == nil {
			continue
		}
		if isContextErr(err) {
			if firstCtxErr == nil {
				firstCtxErr = err
			}
			continue
		}
		return err
	}
	return firstCtxErr
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
