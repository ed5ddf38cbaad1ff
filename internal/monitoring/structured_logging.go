package monitoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
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

func (l LogLevel) slogLevel() slog.Level {
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

// ParseLogLevel converts "debug", "info", "warn" or "error" to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatText
	FormatConsole
)

// ParseLogFormat converts "json", "text" or "console" to a LogFormat.
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "console":
		return FormatConsole, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format %q", s)
	}
}

// StructuredLogger writes leveled, structured log records through slog
type StructuredLogger struct {
	logger    *slog.Logger
	level     LogLevel
	fields    map[string]any
	component string
}

// LoggerConfig configures the structured logger
type LoggerConfig struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
	Fields    map[string]any
}

// NewStructuredLogger creates a new structured logger with the given configuration
func NewStructuredLogger(config LoggerConfig) *StructuredLogger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	fields := map[string]any{"service": "structio"}
	for k, v := range config.Fields {
		fields[k] = v
	}
	if config.Component != "" {
		fields["component"] = config.Component
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.Level == LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output, opts)
	case FormatConsole:
		handler = NewConsoleHandler(config.Output, opts)
	default:
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return &StructuredLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		fields:    fields,
		component: config.Component,
	}
}

// WithFields returns a new logger with additional fields
func (l *StructuredLogger) WithFields(fields map[string]any) *StructuredLogger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &StructuredLogger{
		logger:    l.logger,
		level:     l.level,
		fields:    merged,
		component: l.component,
	}
}

// Debug logs a debug level message
func (l *StructuredLogger) Debug(msg string, args ...any) {
	if l.level > LevelDebug {
		return
	}
	l.log(context.Background(), LevelDebug, msg, args...)
}

// Info logs an info level message
func (l *StructuredLogger) Info(msg string, args ...any) {
	if l.level > LevelInfo {
		return
	}
	l.log(context.Background(), LevelInfo, msg, args...)
}

// Warn logs a warning level message
func (l *StructuredLogger) Warn(msg string, args ...any) {
	if l.level > LevelWarn {
		return
	}
	l.log(context.Background(), LevelWarn, msg, args...)
}

// Error logs an error level message
func (l *StructuredLogger) Error(msg string, args ...any) {
	l.log(context.Background(), LevelError, msg, args...)
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, msg string, args ...any) {
	attrs := make([]any, 0, 2*len(l.fields)+2)
	for k, v := range l.fields {
		attrs = append(attrs, k, v)
	}

	// Errors carry the caller
	if level >= LevelError {
		if _, file, line, ok := runtime.Caller(2); ok {
			attrs = append(attrs, "caller", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.With(attrs...).Log(ctx, level.slogLevel(), msg)
}

// LogOperation logs one encode or decode call with its standard fields
func (l *StructuredLogger) LogOperation(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	fields := map[string]any{
		"operation":   operation,
		"duration":    duration.String(),
		"duration_ms": duration.Milliseconds(),
	}
	for k, v := range metadata {
		fields[k] = v
	}

	if err != nil {
		fields["error"] = err.Error()
		fields["error_kind"] = ErrorKind(err)
		l.WithFields(fields).log(ctx, LevelError, "Codec operation failed")
		return
	}
	if l.level <= LevelInfo {
		l.WithFields(fields).log(ctx, LevelInfo, "Codec operation completed")
	}
}

// ConsoleHandler provides colorized console output
type ConsoleHandler struct {
	handler slog.Handler
	output  io.Writer
	attrs   []slog.Attr
}

// NewConsoleHandler creates a new console handler
func NewConsoleHandler(output io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	return &ConsoleHandler{
		handler: slog.NewTextHandler(output, opts),
		output:  output,
	}
}

func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ConsoleHandler) Handle(ctx context.Context, record slog.Record) error {
	var levelStr string
	switch record.Level {
	case slog.LevelDebug:
		levelStr = "\033[36mDEBUG\033[0m" // Cyan
	case slog.LevelInfo:
		levelStr = "\033[32mINFO\033[0m" // Green
	case slog.LevelWarn:
		levelStr = "\033[33mWARN\033[0m" // Yellow
	case slog.LevelError:
		levelStr = "\033[31mERROR\033[0m" // Red
	default:
		levelStr = record.Level.String()
	}

	fmt.Fprintf(h.output, "%s [%s] %s", record.Time.Format("15:04:05.000"), levelStr, record.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(h.output, " %s=%s", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.output, " %s=%s", a.Key, a.Value)
		return true
	})

	_, err := fmt.Fprintln(h.output)
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{
		handler: h.handler.WithAttrs(attrs),
		output:  h.output,
		attrs:   append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	return &ConsoleHandler{
		handler: h.handler.WithGroup(name),
		output:  h.output,
		attrs:   h.attrs,
	}
}

// NewProductionLogger creates a JSON logger whose level and format come from
// STRUCTIO_LOG_LEVEL and STRUCTIO_LOG_FORMAT
func NewProductionLogger(component string) *StructuredLogger {
	level, err := ParseLogLevel(os.Getenv("STRUCTIO_LOG_LEVEL"))
	if err != nil {
		level = LevelInfo
	}
	format, err := ParseLogFormat(os.Getenv("STRUCTIO_LOG_FORMAT"))
	if err != nil {
		format = FormatJSON
	}

	return NewStructuredLogger(LoggerConfig{
		Level:     level,
		Format:    format,
		Component: component,
		Fields: map[string]any{
			"pid": os.Getpid(),
		},
	})
}

// NewDevelopmentLogger creates a logger optimized for development
func NewDevelopmentLogger(component string) *StructuredLogger {
	return NewStructuredLogger(LoggerConfig{
		Level:     LevelDebug,
		Format:    FormatConsole,
		Component: component,
	})
}
