package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
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

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name to a Level; unknown names map to info
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger fans records out to the console and, optionally, a JSON log file
type Logger struct {
	base    *slog.Logger
	slog    *slog.Logger
	bound   []any
	logFile *os.File
	verbose bool
}

var globalLogger *Logger

// Init initializes the global logger
// consoleOutput: where to write INFO and above (DEBUG too when verbose)
// logFilePath: JSON log file receiving every level; empty disables it
func Init(consoleOutput io.Writer, logFilePath string, verbose bool) error {
	return InitWithFileLevel(consoleOutput, logFilePath, verbose, LevelDebug)
}

// InitWithFileLevel is Init with fileLevel as the lowest level written to
// the log file
func InitWithFileLevel(consoleOutput io.Writer, logFilePath string, verbose bool, fileLevel Level) error {
	consoleLevel := slog.LevelInfo
	if verbose {
		consoleLevel = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(consoleOutput, &slog.HandlerOptions{
			Level: consoleLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) == 0 && a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		}),
	}

	var logFile *os.File
	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		var err error
		logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: fileLevel.slogLevel()}))
	}

	base := slog.New(slogmulti.Fanout(handlers...))
	globalLogger = &Logger{
		base:    base,
		slog:    base,
		logFile: logFile,
		verbose: verbose,
	}
	return nil
}

// Close closes the log file
func Close() {
	if globalLogger != nil && globalLogger.logFile != nil {
		globalLogger.logFile.Close()
		globalLogger.logFile = nil
	}
}

// Bind attaches key/value pairs to every subsequent record (e.g. the run
// id). Binding a key again replaces its value.
func Bind(attrs ...any) {
	if globalLogger == nil {
		return
	}
	l := globalLogger
	for i := 0; i+1 < len(attrs); i += 2 {
		key, _ := attrs[i].(string)
		replaced := false
		for j := 0; j+1 < len(l.bound) && key != ""; j += 2 {
			if l.bound[j] == key {
				l.bound[j+1] = attrs[i+1]
				replaced = true
				break
			}
		}
		if !replaced {
			l.bound = append(l.bound, attrs[i], attrs[i+1])
		}
	}
	l.slog = l.base.With(l.bound...)
}

// Debug logs a debug message (file only, unless verbose)
func Debug(format string, args ...interface{}) {
	if globalLogger == nil {
		return
	}
	globalLogger.log(LevelDebug, fmt.Sprintf(format, args...))
}

// Info logs an info message (console + file)
func Info(format string, args ...interface{}) {
	if globalLogger == nil {
		fmt.Printf(format+"\n", args...)
		return
	}
	globalLogger.log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs a warning message (console + file)
func Warn(format string, args ...interface{}) {
	if globalLogger == nil {
		fmt.Printf("WARN: "+format+"\n", args...)
		return
	}
	globalLogger.log(LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs an error message (console + file)
func Error(format string, args ...interface{}) {
	if globalLogger == nil {
		fmt.Printf("ERROR: "+format+"\n", args...)
		return
	}
	globalLogger.log(LevelError, fmt.Sprintf(format, args...))
}

// WarnAttrs logs a warning with structured attributes
func WarnAttrs(msg string, attrs ...any) {
	if globalLogger == nil {
		fmt.Printf("WARN: %s %v\n", msg, attrs)
		return
	}
	globalLogger.slog.Warn(msg, attrs...)
}

func (l *Logger) log(level Level, message string) {
	l.slog.Log(context.Background(), level.slogLevel(), message)
}

// GetLogFilePath returns the path to the current log file
func GetLogFilePath() string {
	if globalLogger != nil && globalLogger.logFile != nil {
		return globalLogger.logFile.Name()
	}
	return ""
}

// IsVerbose returns whether verbose logging is enabled
func IsVerbose() bool {
	if globalLogger == nil {
		return false
	}
	return globalLogger.verbose
}
