package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/rgrep/internal/filelock"
)

// FileLogger appends diagnostics to a run log file. Each run is tagged with a
// random run id so runs of several rgrep processes sharing one log can be told
// apart; every line is appended under an exclusive file lock.
type FileLogger struct {
	path     string
	runID    string
	logLevel string
	mu       sync.Mutex
	err      error
}

// NewFileLogger creates a FileLogger appending to path and writes the run
// header. The file and its directory are created if missing.
func NewFileLogger(path string, logLevel string) (*FileLogger, error) {
	fl := &FileLogger{
		path:     path,
		runID:    uuid.NewString(),
		logLevel: normalizeLogLevel(logLevel),
	}

	header := fmt.Sprintf("=== rgrep run %s started at %s ===\n", fl.runID, time.Now().Format(time.RFC3339))
	if err := filelock.LockAndAppend(path, []byte(header)); err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return fl, nil
}

// RunID returns the id stamped on every line of this run.
func (fl *FileLogger) RunID() string {
	return fl.runID
}

// Path returns the log file path.
func (fl *FileLogger) Path() string {
	return fl.path
}

// Err returns the first append error, if any. Logging never fails a search.
func (fl *FileLogger) Err() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.err
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// logWithLevel formats "[RFC3339] [run-id] [LEVEL] message".
func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}

	formatted := fmt.Sprintf("[%s] [%s] [%s] %s\n", time.Now().Format(time.RFC3339), fl.runID, level, message)
	if err := filelock.LockAndAppend(fl.path, []byte(formatted)); err != nil {
		fl.mu.Lock()
		if fl.err == nil {
			fl.err = err
		}
		fl.mu.Unlock()
	}
}
