package structio

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hengadev/structio/internal/monitoring"
)

// Operation names reported to observers.
const (
	OpDump    = "dump"
	OpLoad    = "load"
	OpDumpXML = "dump_xml"
	OpLoadXML = "load_xml"
)

type (
	MetricsCollector           = monitoring.MetricsCollector
	InMemoryMetricsCollector   = monitoring.InMemoryMetricsCollector
	PrometheusMetricsCollector = monitoring.PrometheusMetricsCollector
	StructuredLogger           = monitoring.StructuredLogger
	LoggerConfig               = monitoring.LoggerConfig
)

// NewLoggingObserver returns an observer that logs every call through logger.
// A nil logger logs JSON to stdout at the level set by STRUCTIO_LOG_LEVEL.
func NewLoggingObserver(logger *StructuredLogger) ObservabilityHook {
	return monitoring.NewLoggingObservabilityHook(logger)
}

// NewMetricsObserver returns an observer that records counts, durations and
// sizes of every call into collector.
func NewMetricsObserver(collector MetricsCollector) ObservabilityHook {
	return monitoring.NewMetricsObservabilityHook(collector)
}

// NewCompositeObserver fans every event out to hooks, in order.
func NewCompositeObserver(hooks ...ObservabilityHook) ObservabilityHook {
	return monitoring.NewCompositeObservabilityHook(hooks...)
}

// NewInMemoryMetricsCollector returns a collector that keeps metrics in memory.
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return monitoring.NewInMemoryMetricsCollector()
}

// NewPrometheusMetricsCollector returns a collector registering its metrics
// into reg, or into the default registerer when reg is nil.
func NewPrometheusMetricsCollector(reg prometheus.Registerer) *PrometheusMetricsCollector {
	return monitoring.NewPrometheusMetricsCollector("", reg)
}

// NewStructuredLogger returns a slog backed logger.
func NewStructuredLogger(config LoggerConfig) *StructuredLogger {
	return monitoring.NewStructuredLogger(config)
}

// NewDevelopmentLogger returns a debug level logger writing readable lines
// to stdout, tagged with component.
func NewDevelopmentLogger(component string) *StructuredLogger {
	return monitoring.NewDevelopmentLogger(component)
}

// observe runs fn and reports it to the configured hook. fn returns the
// number of bytes produced or consumed.
func observe(s *settings, operation string, t reflect.Type, fn func() (int, error)) error {
	if s.hook == nil {
		_, err := fn()
		return err
	}

	metadata := map[string]any{
		monitoring.KeyOperationID: uuid.NewString(),
		monitoring.KeyType:        t.String(),
	}
	if operation == OpDumpXML || operation == OpLoadXML {
		metadata[monitoring.KeyMode] = s.mode.String()
	}
	if s.target != "" {
		metadata[monitoring.KeyTarget] = s.target
	}

	start := time.Now()
	s.hook.OnOperationStart(s.ctx, operation, metadata)

	n, err := fn()
	metadata[monitoring.KeyBytes] = n
	if err != nil {
		s.hook.OnError(s.ctx, operation, err, metadata)
	}
	s.hook.OnOperationComplete(s.ctx, operation, time.Since(start), err, metadata)
	return err
}
