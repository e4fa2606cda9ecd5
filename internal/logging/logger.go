// Package logging provides structured, leveled logging for access_time3.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Config holds logging configuration.
type Config struct {
	Level LogLevel
	// Format is "text" (default) or "json".
	Format string
	Output io.Writer
	// Sync forces a Sync() after every line; only meaningful when
	// Output implements it, otherwise ignored. Kept for parity with
	// file-backed outputs used in longer-running invocations.
	Sync bool
	// NoColor disables ANSI level coloring in text format.
	NoColor bool
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

type syncer interface {
	Sync() error
}

var levelColor = map[LogLevel]string{
	LevelDebug: "\x1b[36m",
	LevelInfo:  "\x1b[32m",
	LevelWarn:  "\x1b[33m",
	LevelError: "\x1b[31m",
}

const colorReset = "\x1b[0m"

// Logger writes leveled, structured log lines. Loggers derived via With*
// methods carry a fixed set of fields that are prepended to every line they
// emit; the underlying writer and level are shared with the parent.
type Logger struct {
	mu       *sync.Mutex
	out      io.Writer
	level    LogLevel
	format   string
	sync     bool
	noColor  bool
	fields   []any // flat key, value, key, value ...
}

var (
	defaultLogger *Logger
	defaultMu     sync.RWMutex
)

// NewLogger creates a new logger from config, or DefaultConfig() if nil.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}
	format := config.Format
	if format == "" {
		format = "text"
	}
	return &Logger{
		mu:      &sync.Mutex{},
		out:     output,
		level:   config.Level,
		format:  format,
		sync:    config.Sync,
		noColor: config.NoColor,
	}
}

// Default returns the default logger, creating a stderr/text logger on first use.
func Default() *Logger {
	defaultMu.RLock()
	if defaultLogger != nil {
		defer defaultMu.RUnlock()
		return defaultLogger
	}
	defaultMu.RUnlock()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault installs logger as the package-level default.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

func (l *Logger) withFields(extra ...any) *Logger {
	child := *l
	child.fields = append(append([]any{}, l.fields...), extra...)
	return &child
}

// WithComponent returns a child logger that tags every line with
// component=name, e.g. "controller", "engine:async", "command-reader".
func (l *Logger) WithComponent(name string) *Logger {
	return l.withFields("component", name)
}

// WithRequest returns a child logger tagging every line with the in-flight
// request's tag and operation, mirroring per-request tracing in the engines.
func (l *Logger) WithRequest(tag int, op string) *Logger {
	return l.withFields("tag", tag, "op", op)
}

// WithError returns a child logger tagging every line with err.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.withFields("error", err.Error())
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var result string
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			if result != "" {
				result += " "
			}
			result += fmt.Sprintf("%v=%v", args[i], args[i+1])
		}
	}
	if result != "" {
		return " " + result
	}
	return ""
}

type jsonRecord struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Rest  map[string]any `json:"fields,omitempty"`
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}
	all := append(append([]any{}, l.fields...), args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.format == "json" {
		rest := map[string]any{}
		for i := 0; i+1 < len(all); i += 2 {
			rest[fmt.Sprintf("%v", all[i])] = all[i+1]
		}
		rec := jsonRecord{
			Time:  time.Now().Format(time.RFC3339Nano),
			Level: level.String(),
			Msg:   msg,
			Rest:  rest,
		}
		enc := json.NewEncoder(l.out)
		_ = enc.Encode(rec)
	} else {
		prefix := "[" + level.String() + "]"
		if !l.noColor {
			if c, ok := levelColor[level]; ok {
				prefix = c + prefix + colorReset
			}
		}
		fmt.Fprintf(l.out, "%s %s %s%s\n", time.Now().Format(time.RFC3339), prefix, msg, formatArgs(all))
	}

	if l.sync {
		if s, ok := l.out.(syncer); ok {
			_ = s.Sync()
		}
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, fmt.Sprintf(format, args...)) }

// Printf logs at info level, for compatibility with code expecting a
// *log.Logger-shaped dependency.
func (l *Logger) Printf(format string, args ...any) { l.Infof(format, args...) }

// Global convenience functions operating on Default().
func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
