// Package logging provides structured leveled logging for training runs.
//
// The Logger interface decouples the rest of the module from the concrete
// sink; DefaultLogger writes human-readable lines to stdout/stderr and
// NoOpLogger silences output in tests.
package logging

import "os"

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// Level is a log severity.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Fields carries structured key/value context on a log line.
type Fields map[string]any

// Logger is the logging interface used throughout the module.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Fatal(err error, msg string, fields ...Fields)

	// WithFields returns a logger that adds the given fields to every line.
	WithFields(fields Fields) Logger

	// SetLevel sets the minimum level that produces output.
	SetLevel(level Level)
}

// NoOpLogger discards everything. Fatal still exits.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...Fields)        {}
func (NoOpLogger) Info(string, ...Fields)         {}
func (NoOpLogger) Warn(string, ...Fields)         {}
func (NoOpLogger) Error(error, string, ...Fields) {}
func (NoOpLogger) Fatal(error, string, ...Fields) { os.Exit(1) }
func (n NoOpLogger) WithFields(Fields) Logger     { return n }
func (NoOpLogger) SetLevel(Level)                 {}
