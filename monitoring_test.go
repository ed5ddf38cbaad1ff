package structio

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/structio/internal/monitoring"
)

func TestObserverReportsFailures(t *testing.T) {
	hook := &recordingHook{}

	_, err := Load[string]([]byte{5, 0}, WithObserver(hook))
	require.Error(t, err)

	require.Len(t, hook.errors, 1)
	assert.True(t, IsParseError(hook.errors[0]))
	require.Len(t, hook.completed, 1)
	assert.Equal(t, OpLoad, hook.completed[0].operation)
	assert.Equal(t, 2, hook.completed[0].metadata["bytes"])
	assert.Equal(t, err, hook.completed[0].err)
}

func TestObserverXMLMode(t *testing.T) {
	hook := &recordingHook{}

	doc, err := DumpXML(true, WithBase64(), WithObserver(hook))
	require.NoError(t, err)
	_, err = LoadXML[bool](doc, WithBase64(), WithObserver(hook))
	require.NoError(t, err)

	require.Len(t, hook.completed, 2)
	assert.Equal(t, OpDumpXML, hook.completed[0].operation)
	assert.Equal(t, "base64", hook.completed[0].metadata["mode"])
	assert.Equal(t, OpLoadXML, hook.completed[1].operation)
	assert.Equal(t, len(doc), hook.completed[1].metadata["bytes"])
}

func TestMetricsObserver(t *testing.T) {
	collector := NewInMemoryMetricsCollector()
	hook := NewMetricsObserver(collector)

	data, err := Dump([]int32{1, 2, 3}, WithObserver(hook))
	require.NoError(t, err)
	_, err = Load[[]int32](data, WithObserver(hook))
	require.NoError(t, err)
	_, err = Load[[]int32](data[:5], WithObserver(hook))
	require.Error(t, err)

	assert.Equal(t, int64(3), collector.CounterTotal("structio.operation.started"))
	assert.Equal(t, int64(2), collector.CounterTotal("structio.operation.succeeded"))
	assert.Equal(t, int64(1), collector.CounterTotal("structio.operation.failed"))
	assert.Equal(t, int64(1), collector.CounterTotal("structio.errors"))
}

func TestPrometheusObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := NewMetricsObserver(NewPrometheusMetricsCollector(reg))

	_, err := Dump("abc", WithObserver(hook))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "structio_operation_started_total")
	assert.Contains(t, names, "structio_operation_duration_seconds")
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LoggerConfig{
		Level:  monitoring.LevelInfo,
		Format: monitoring.FormatJSON,
		Output: &buf,
	})
	hook := NewCompositeObserver(NewLoggingObserver(logger), &recordingHook{})

	_, err := Dump(point{X: 1}, WithObserver(hook))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Codec operation completed", entry["msg"])
	assert.Equal(t, "structio", entry["service"])
	assert.Equal(t, "structio.point", entry["type"])
	assert.NotEmpty(t, entry["operation_id"])
}

func TestNewLoggingObserverNil(t *testing.T) {
	assert.NotNil(t, NewLoggingObserver(nil))

	hook := NewLoggingObserver(nil)
	_, err := Dump(point{X: 1}, WithObserver(hook))
	assert.NoError(t, err)
}

func TestDevelopmentLoggerDrivesObserver(t *testing.T) {
	logger := NewDevelopmentLogger("tests")
	require.NotNil(t, logger)

	_, err := Dump(point{X: 2}, WithObserver(NewLoggingObserver(logger)))
	assert.NoError(t, err)
}
