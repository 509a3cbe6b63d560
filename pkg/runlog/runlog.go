// Package runlog writes the agent run log and parses it back. Each run is
// tagged with a short random identifier so interleaved runs can be told apart
// when the same log file is reused.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// timeLayout renders UTC timestamps with millisecond precision. The trailing
// "Z" is appended by the formatters.
const timeLayout = "2006-01-02T15:04:05.000"

// NewRunID returns an eight character hex identifier for a single agent run.
func NewRunID() string {
	return uuid.NewString()[:8]
}

// Logger emits client-side run log lines of the form
//
//	[<timestamp>Z][client][run_id=<id>] <message>
//
// Every line goes to all configured sinks. Logf never fails; a broken sink is
// silently skipped so logging cannot take down a run.
type Logger struct {
	runID string
	now   func() time.Time

	mu    sync.Mutex
	sinks []io.Writer
	file  *os.File
}

// Open creates (or appends to) the log file at path and mirrors every line to
// stdout. Parent directories are created as needed.
func Open(path, runID string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlog: open log file: %w", err)
	}
	return &Logger{
		runID: runID,
		now:   time.Now,
		sinks: []io.Writer{os.Stdout, f},
		file:  f,
	}, nil
}

// New builds a logger that writes only to the given sinks. Used by callers
// that manage their own destinations, such as tests.
func New(runID string, sinks ...io.Writer) *Logger {
	return &Logger{runID: runID, now: time.Now, sinks: sinks}
}

// RunID returns the identifier stamped on every line.
func (l *Logger) RunID() string { return l.runID }

// Logf formats and emits a single log line.
func (l *Logger) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%sZ][client][run_id=%s] %s\n", l.now().UTC().Format(timeLayout), l.runID, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.sinks {
		_, _ = io.WriteString(w, line)
	}
}

// Close flushes and closes the underlying log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Level gates server-side log output.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values fall back to
// INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// ServerLogger emits level-tagged lines of the form
//
//	[<timestamp>Z][server][<LEVEL>] <message>
//
// Tool servers log to stderr so that stdout stays reserved for the protocol
// stream.
type ServerLogger struct {
	min Level
	now func() time.Time

	mu sync.Mutex
	w  io.Writer
}

// NewServerLogger writes to stderr at the level configured via LOG_LEVEL.
func NewServerLogger() *ServerLogger {
	return &ServerLogger{min: ParseLevel(os.Getenv("LOG_LEVEL")), now: time.Now, w: os.Stderr}
}

// NewServerLoggerTo writes to w at the given minimum level.
func NewServerLoggerTo(w io.Writer, min Level) *ServerLogger {
	return &ServerLogger{min: min, now: time.Now, w: w}
}

func (s *ServerLogger) Debugf(format string, args ...any) { s.logf(LevelDebug, format, args...) }
func (s *ServerLogger) Infof(format string, args ...any)  { s.logf(LevelInfo, format, args...) }
func (s *ServerLogger) Errorf(format string, args ...any) { s.logf(LevelError, format, args...) }

func (s *ServerLogger) logf(lv Level, format string, args ...any) {
	if lv < s.min {
		return
	}
	line := fmt.Sprintf("[%sZ][server][%s] %s\n", s.now().UTC().Format(timeLayout), lv, fmt.Sprintf(format, args...))

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line)
}
