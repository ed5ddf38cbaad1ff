package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/hengadev/structio/internal/codecerr"
)

// Metadata keys set by the entry points on every operation.
const (
	KeyOperationID = "operation_id"
	KeyType        = "type"
	KeyMode        = "mode"
	KeyBytes       = "bytes"
	KeyTarget      = "target"
)

// ObservabilityHook receives the lifecycle of every encode and decode call
type ObservabilityHook interface {
	// Called before the operation starts
	OnOperationStart(ctx context.Context, operation string, metadata map[string]any)

	// Called after the operation completes (success or failure)
	OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any)

	// Called when the operation fails
	OnError(ctx context.Context, operation string, err error, metadata map[string]any)
}

// NoOpObservabilityHook is a no-op implementation of ObservabilityHook
type NoOpObservabilityHook struct{}

func (n *NoOpObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
}
func (n *NoOpObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
}

// Logger defines the interface for logging
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// LoggingObservabilityHook logs all operations
type LoggingObservabilityHook struct {
	logger Logger
}

// NewLoggingObservabilityHook creates a new logging observability hook. A nil
// logger falls back to a production logger writing JSON to stdout.
func NewLoggingObservabilityHook(logger Logger) *LoggingObservabilityHook {
	if sl, ok := logger.(*StructuredLogger); logger == nil || ok && sl == nil {
		logger = NewProductionLogger("structio")
	}
	return &LoggingObservabilityHook{
		logger: logger,
	}
}

func (l *LoggingObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
	l.logger.Debug("Operation started: %s, metadata: %v", operation, metadata)
}

func (l *LoggingObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	if sl, ok := l.logger.(*StructuredLogger); ok {
		sl.LogOperation(ctx, operation, duration, err, metadata)
		return
	}
	if err != nil {
		l.logger.Error("Operation failed: %s, duration: %v, error: %v, metadata: %v", operation, duration, err, metadata)
	} else {
		l.logger.Info("Operation completed: %s, duration: %v, metadata: %v", operation, duration, metadata)
	}
}

func (l *LoggingObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	l.logger.Debug("Operation error: %s, error: %v, metadata: %v", operation, err, metadata)
}

// MetricsObservabilityHook collects metrics for operations
type MetricsObservabilityHook struct {
	collector MetricsCollector
}

// NewMetricsObservabilityHook creates a new metrics observability hook
func NewMetricsObservabilityHook(collector MetricsCollector) *MetricsObservabilityHook {
	if collector == nil {
		collector = &NoOpMetricsCollector{}
	}
	return &MetricsObservabilityHook{
		collector: collector,
	}
}

func (m *MetricsObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
	m.collector.IncrementCounter("structio.operation.started", operationTags(operation, metadata))
}

func (m *MetricsObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	tags := operationTags(operation, metadata)
	if err != nil {
		tags["status"] = "error"
		m.collector.IncrementCounter("structio.operation.failed", tags)
	} else {
		tags["status"] = "success"
		m.collector.IncrementCounter("structio.operation.succeeded", tags)
	}

	m.collector.RecordTiming("structio.operation.duration", duration, tags)
	if n, ok := metadata[KeyBytes].(int); ok {
		m.collector.RecordValue("structio.operation.bytes", float64(n), tags)
	}
}

func (m *MetricsObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	tags := operationTags(operation, metadata)
	tags["error_kind"] = ErrorKind(err)
	m.collector.IncrementCounter("structio.errors", tags)
}

func operationTags(operation string, metadata map[string]any) map[string]string {
	tags := map[string]string{"operation": operation, "type": ""}
	if t, ok := metadata[KeyType].(string); ok {
		tags["type"] = t
	}
	return tags
}

// ErrorKind names the error class of err for use as a metric label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, codecerr.ErrParse):
		return "parse"
	case errors.Is(err, codecerr.ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, codecerr.ErrIO):
		return "io"
	case errors.Is(err, codecerr.ErrNotFound):
		return "not_found"
	case errors.Is(err, codecerr.ErrShortBuffer):
		return "short_buffer"
	case errors.Is(err, codecerr.ErrInvalidConfiguration):
		return "configuration"
	default:
		return "other"
	}
}

// CompositeObservabilityHook combines multiple hooks
type CompositeObservabilityHook struct {
	hooks []ObservabilityHook
}

// NewCompositeObservabilityHook creates a new composite hook
func NewCompositeObservabilityHook(hooks ...ObservabilityHook) *CompositeObservabilityHook {
	return &CompositeObservabilityHook{
		hooks: hooks,
	}
}

func (c *CompositeObservabilityHook) OnOperationStart(ctx context.Context, operation string, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnOperationStart(ctx, operation, metadata)
	}
}

func (c *CompositeObservabilityHook) OnOperationComplete(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnOperationComplete(ctx, operation, duration, err, metadata)
	}
}

func (c *CompositeObservabilityHook) OnError(ctx context.Context, operation string, err error, metadata map[string]any) {
	for _, hook := range c.hooks {
		hook.OnError(ctx, operation, err, metadata)
	}
}
