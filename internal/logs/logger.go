// Package logs builds the process logger: human-readable text on stderr,
// plus an optional JSON log file, fanned out with slog-multi.
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"
)

// DefaultLevel keeps normal runs quiet on stderr.
const DefaultLevel = "warn"

// Options configures New.
type Options struct {
	Level  string    // stderr level: debug, info, warn or error
	File   string    // JSON log file, appended at debug level; empty disables
	Stderr io.Writer // text handler destination; nil means os.Stderr
}

// Logger is a slog.Logger tagged with a run ID, owning its log file.
type Logger struct {
	*slog.Logger
	RunID string
	file  *os.File
}

// New creates a logger from opts. Every record carries a run_id attribute.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}

	var file *os.File
	if opts.File != "" {
		file, err = os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", opts.File, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	runID := uuid.NewString()
	logger := slog.New(&contextHandler{Handler: slogmulti.Fanout(handlers...)}).
		With("run_id", runID)

	return &Logger{Logger: logger, RunID: runID, file: file}, nil
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("syncing log file: %w", err)
	}
	return l.file.Close()
}

// ParseLevel accepts the slog level names, case-insensitively.
// An empty string selects DefaultLevel.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		s = DefaultLevel
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q (use debug, info, warn or error)", s)
	}
	return level, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
