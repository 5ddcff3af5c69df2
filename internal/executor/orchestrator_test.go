package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harrison/rgrep/internal/display"
	"github.com/harrison/rgrep/internal/models"
	"github.com/harrison/rgrep/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRunner records how many Run calls overlap.
type countingRunner struct {
	current atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
	hold    time.Duration
	failOn  map[string]error
	panicOn string
}

func (p *countingRunner) Run(ctx context.Context, entry models.Entry) error {
	n := p.current.Add(1)
	defer p.current.Add(-1)
	p.calls.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	if p.hold > 0 {
		select {
		case <-time.After(p.hold):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.panicOn != "" && filepath.Base(entry.Path) == p.panicOn {
		panic("runner exploded")
	}
	if err, ok := p.failOn[filepath.Base(entry.Path)]; ok {
		return err
	}
	return nil
}

func searchConfig(root, pattern string, mode models.SearchMode, limit int) *models.SearchConfig {
	return &models.SearchConfig{
		Pattern:          regexp.MustCompile(pattern),
		RootPath:         root,
		Mode:             mode,
		MaxDepth:         1,
		ConcurrencyLimit: limit,
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

// runSearch wires the real searcher and a stream reporter, returning the
// printed lines sorted so cross-file order does not matter.
func runSearch(t *testing.T, cfg *models.SearchConfig, opts ...Option) ([]string, models.RunResult, error) {
	t.Helper()
	var out bytes.Buffer
	rep := display.NewStreamReporter(&out, display.NewFormatter(false, cfg.ShowLineNumber))
	o, err := NewOrchestrator(cfg, search.NewSearcher(cfg, rep, nil), nil, opts...)
	require.NoError(t, err)

	result, runErr := o.Run(context.Background())
	var lines []string
	if s := strings.TrimSuffix(out.String(), "\n"); s != "" {
		lines = strings.Split(s, "\n")
	}
	sort.Strings(lines)
	return lines, result, runErr
}

var scenarioTree = map[string]string{
	"a.txt": "foo\nbar\n",
	"b.txt": "baz\n",
}

func TestRunContentSearch(t *testing.T) {
	root := writeTree(t, scenarioTree)

	lines, result, err := runSearch(t, searchConfig(root, "ba", models.ContentSearch, 2))
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.txt") + ": bar",
		filepath.Join(root, "b.txt") + ": baz",
	}, lines)
	assert.Equal(t, int64(2), result.Matches)
	assert.Equal(t, 3, result.EntriesVisited, "root plus two files")
	assert.Equal(t, 3, result.TasksSpawned)
	assert.Equal(t, int64(12), result.BytesScanned)
	assert.True(t, result.Succeeded())
}

func TestRunInvertMatch(t *testing.T) {
	root := writeTree(t, scenarioTree)
	cfg := searchConfig(root, "ba", models.ContentSearch, 2)
	cfg.InvertMatch = true

	lines, _, err := runSearch(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.txt") + ": foo"}, lines)
}

func TestRunNameSearch(t *testing.T) {
	root := writeTree(t, scenarioTree)

	lines, result, err := runSearch(t, searchConfig(root, "^a", models.NameSearch, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.txt")}, lines)
	assert.Equal(t, int64(0), result.BytesScanned)
}

func TestRunLineNumbers(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "foo\nbar\nbarn\n"})
	cfg := searchConfig(root, "bar", models.ContentSearch, 1)
	cfg.ShowLineNumber = true

	lines, _, err := runSearch(t, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt: 2:bar", "a.txt: 3:barn"}, lines)
}

func TestRunDepthBound(t *testing.T) {
	root := writeTree(t, map[string]string{
		"top.txt":           "hit\n",
		"sub/mid.txt":       "hit\n",
		"sub/deep/low.txt":  "hit\n",
		"sub/deep/more.txt": "hit\n",
	})

	tests := []struct {
		depth int
		want  int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 4},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("depth %d", tt.depth), func(t *testing.T) {
			cfg := searchConfig(root, "hit", models.ContentSearch, 3)
			cfg.MaxDepth = tt.depth
			lines, _, err := runSearch(t, cfg)
			require.NoError(t, err)
			assert.Len(t, lines, tt.want)
		})
	}
}

func TestRunLimitOneIsSerial(t *testing.T) {
	files := make(map[string]string, 100)
	for i := 0; i < 100; i++ {
		files[fmt.Sprintf("f%03d.txt", i)] = "x\n"
	}
	root := writeTree(t, files)

	runner := &countingRunner{hold: 200 * time.Microsecond}
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 1), runner, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), runner.peak.Load())
	assert.Equal(t, int32(101), runner.calls.Load())
	assert.Equal(t, 101, result.TasksSpawned)
}

func TestRunNeverExceedsLimit(t *testing.T) {
	files := make(map[string]string, 60)
	for i := 0; i < 60; i++ {
		files[fmt.Sprintf("f%02d.txt", i)] = ""
	}
	root := writeTree(t, files)

	for _, limit := range []int{2, 4, 8} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			runner := &countingRunner{hold: time.Millisecond}
			o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, limit), runner, nil)
			require.NoError(t, err)

			_, err = o.Run(context.Background())
			require.NoError(t, err)
			assert.LessOrEqual(t, runner.peak.Load(), int32(limit))
			assert.GreaterOrEqual(t, runner.peak.Load(), int32(1))
		})
	}
}

func TestRunPermitsConserved(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "", "b.txt": "", "c.txt": "", "d.txt": ""})
	runner := &countingRunner{
		failOn:  map[string]error{"b.txt": errors.New("b failed"), "d.txt": errors.New("d failed")},
		panicOn: "c.txt",
	}
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 2), runner, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(result.TasksSpawned), result.PermitsAcquired)
	assert.Equal(t, result.PermitsAcquired, result.PermitsReleased)
	assert.Equal(t, 3, result.TasksFailed)
}

func TestRunFirstFailureInSpawnOrderWins(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "", "b.txt": "", "c.txt": ""})
	runner := &countingRunner{failOn: map[string]error{
		"b.txt": errors.New("b failed"),
		"c.txt": errors.New("c failed"),
	}}
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 3), runner, nil)
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "b failed", err.Error())
	assert.Equal(t, StateFailed, o.State())
}

func TestRunPanicBecomesError(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": ""})
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 1), &countingRunner{panicOn: "a.txt"}, nil)
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestRunUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	root := writeTree(t, map[string]string{"a.txt": "hit\n", "locked/inner.txt": "hit\n"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	cfg := searchConfig(root, "hit", models.ContentSearch, 1)
	cfg.MaxDepth = 2
	lines, _, err := runSearch(t, cfg)

	var te *models.TraversalError
	require.True(t, errors.As(err, &te), "expected TraversalError, got %v", err)
	assert.Equal(t, locked, te.Path)
	assert.Equal(t, []string{filepath.Join(root, "a.txt") + ": hit"}, lines, "earlier matches are kept")
}

func TestRunUnreadableFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root bypasses file permissions")
	}
	root := writeTree(t, map[string]string{"a.txt": "hit\n", "b.txt": "hit\n"})
	locked := filepath.Join(root, "b.txt")
	require.NoError(t, os.Chmod(locked, 0000))

	lines, _, err := runSearch(t, searchConfig(root, "hit", models.ContentSearch, 1))

	var foe *models.FileOpenError
	require.True(t, errors.As(err, &foe), "expected FileOpenError, got %v", err)
	assert.Equal(t, locked, foe.Path)
	assert.Equal(t, []string{filepath.Join(root, "a.txt") + ": hit"}, lines)
}

func TestRunMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	runner := &countingRunner{}
	o, err := NewOrchestrator(searchConfig(missing, "x", models.ContentSearch, 1), runner, nil)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	var te *models.TraversalError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, result.TasksSpawned)
	assert.Equal(t, int32(0), runner.calls.Load())
}

func TestRunExcludeDirs(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "hit\n", ".git/config": "hit\n", "src/b.txt": "hit\n"})
	cfg := searchConfig(root, "hit", models.ContentSearch, 2)
	cfg.MaxDepth = 2

	lines, _, err := runSearch(t, cfg, WithExcludeDirs([]string{".git"}))
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	for _, l := range lines {
		assert.NotContains(t, l, ".git")
	}
}

func TestRunFailFastCancelsSiblings(t *testing.T) {
	files := map[string]string{"a.txt": ""}
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("z%02d.txt", i)] = ""
	}
	root := writeTree(t, files)

	runner := &countingRunner{failOn: map[string]error{"a.txt": errors.New("a failed")}}
	slow := &slowAfterFirst{runner: runner, hold: time.Second}

	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 4), slow, nil, WithFailFast(true))
	require.NoError(t, err)

	start := time.Now()
	_, err = o.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "a failed", err.Error(), "the failure wins over the cancellations it caused")
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

// slowAfterFirst fails fast on the entries the runner fails and blocks on the
// rest until the context ends.
type slowAfterFirst struct {
	runner *countingRunner
	hold  time.Duration
}

func (s *slowAfterFirst) Run(ctx context.Context, entry models.Entry) error {
	if err := s.runner.Run(ctx, entry); err != nil {
		return err
	}
	select {
	case <-time.After(s.hold):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRunCancelledContext(t *testing.T) {
	root := writeTree(t, scenarioTree)
	runner := &countingRunner{}
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 1), runner, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.TasksSpawned)
	assert.Equal(t, StateFailed, o.State())
}

func TestRunOnce(t *testing.T) {
	root := writeTree(t, scenarioTree)
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 1), &countingRunner{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, o.State())

	_, err = o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, o.State())

	_, err = o.Run(context.Background())
	assert.ErrorContains(t, err, "already ran")
}

func TestNewOrchestratorValidation(t *testing.T) {
	good := searchConfig(".", "x", models.ContentSearch, 1)

	_, err := NewOrchestrator(nil, &countingRunner{}, nil)
	assert.Error(t, err)

	_, err = NewOrchestrator(good, nil, nil)
	assert.Error(t, err)

	bad := *good
	bad.ConcurrencyLimit = 0
	_, err = NewOrchestrator(&bad, &countingRunner{}, nil)
	assert.ErrorContains(t, err, "concurrency limit")
}

func TestFirstFatal(t *testing.T) {
	taskErr := errors.New("task")
	walkErr := &models.TraversalError{Path: "x", Err: errors.New("denied")}
	ctxErr := fmt.Errorf("stopped: %w", context.Canceled)

	tests := []struct {
		name    string
		tasks   []error
		walk    error
		want    error
		wantNil bool
	}{
		{name: "nothing failed", wantNil: true},
		{name: "task beats walk", tasks: []error{taskErr}, walk: walkErr, want: taskErr},
		{name: "walk beats cancellation", tasks: []error{ctxErr}, walk: walkErr, want: walkErr},
		{name: "cancellation alone", tasks: []error{ctxErr, ctxErr}, want: ctxErr},
		{name: "cancel before failure", tasks: []error{ctxErr, taskErr}, want: taskErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstFatal(tt.tasks, tt.walk)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			assert.Same(t, tt.want, got)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "walking", StateWalking.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "completed", StateCompleted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateDraining.Terminal())
}

// Reports from concurrent tasks never interleave within a line.
func TestRunOutputLinesAreWhole(t *testing.T) {
	files := make(map[string]string, 40)
	for i := 0; i < 40; i++ {
		files[fmt.Sprintf("f%02d.txt", i)] = strings.Repeat("hit line with some length\n", 50)
	}
	root := writeTree(t, files)

	lines, result, err := runSearch(t, searchConfig(root, "hit", models.ContentSearch, 8))
	require.NoError(t, err)
	assert.Len(t, lines, 2000)
	assert.Equal(t, int64(2000), result.Matches)
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, ": hit line with some length"), l)
	}
}

func TestRunContentSearchSkipsSymlinkedDirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "bar\n", "sub/c.txt": "bar\n"})
	if err := os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "link")); err != nil {
		if runtime.GOOS == "windows" {
			t.Skipf("symlinks need extra privileges on windows: %v", err)
		}
		require.NoError(t, err)
	}

	lines, result, err := runSearch(t, searchConfig(root, "ba", models.ContentSearch, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a.txt") + ": bar"}, lines)
	assert.Equal(t, 4, result.TasksSpawned, "root, a.txt, link and sub")
	assert.Equal(t, 0, result.TasksFailed)
}

// gatedRunner blocks every task until release is closed.
type gatedRunner struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedRunner) Run(ctx context.Context, entry models.Entry) error {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRunWhileRunning(t *testing.T) {
	root := writeTree(t, scenarioTree)
	g := &gatedRunner{started: make(chan struct{}), release: make(chan struct{})}
	o, err := NewOrchestrator(searchConfig(root, "x", models.ContentSearch, 1), g, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background())
		done <- err
	}()

	<-g.started
	_, err = o.Run(context.Background())
	assert.ErrorContains(t, err, "already running")
	assert.False(t, o.State().Terminal())

	close(g.release)
	require.NoError(t, <-done)
	assert.True(t, o.State().Terminal())
}
