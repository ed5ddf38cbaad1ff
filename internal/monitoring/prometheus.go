package monitoring

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsCollector exports metrics through a Prometheus registerer.
// Vectors are created on first use of a metric name; the label names are the
// tag keys seen on that first use and must stay the same afterwards.
type PrometheusMetricsCollector struct {
	namespace  string
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	dropped    int64
}

// NewPrometheusMetricsCollector creates a collector registering into reg, or
// into the default registerer when reg is nil.
func NewPrometheusMetricsCollector(namespace string, reg prometheus.Registerer) *PrometheusMetricsCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PrometheusMetricsCollector{
		namespace:  namespace,
		registerer: reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *PrometheusMetricsCollector) IncrementCounter(name string, tags map[string]string) {
	p.IncrementCounterBy(name, 1, tags)
}

func (p *PrometheusMetricsCollector) IncrementCounterBy(name string, value int64, tags map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      metricName(name) + "_total",
			Help:      "Counter " + name,
		}, labelNames(tags))
		if vec = register(p.registerer, vec); vec == nil {
			p.dropped++
			return
		}
		p.counters[name] = vec
	}
	if c, err := vec.GetMetricWith(tags); err == nil {
		c.Add(float64(value))
	} else {
		p.dropped++
	}
}

func (p *PrometheusMetricsCollector) SetGauge(name string, value float64, tags map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      metricName(name),
			Help:      "Gauge " + name,
		}, labelNames(tags))
		if vec = register(p.registerer, vec); vec == nil {
			p.dropped++
			return
		}
		p.gauges[name] = vec
	}
	if g, err := vec.GetMetricWith(tags); err == nil {
		g.Set(value)
	} else {
		p.dropped++
	}
}

func (p *PrometheusMetricsCollector) RecordTiming(name string, duration time.Duration, tags map[string]string) {
	p.observe(name+"_seconds", prometheus.DefBuckets, duration.Seconds(), tags)
}

func (p *PrometheusMetricsCollector) RecordValue(name string, value float64, tags map[string]string) {
	p.observe(name, prometheus.ExponentialBuckets(16, 4, 10), value, tags)
}

func (p *PrometheusMetricsCollector) observe(name string, buckets []float64, value float64, tags map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      metricName(name),
			Help:      "Distribution of " + name,
			Buckets:   buckets,
		}, labelNames(tags))
		if vec = register(p.registerer, vec); vec == nil {
			p.dropped++
			return
		}
		p.histograms[name] = vec
	}
	if h, err := vec.GetMetricWith(tags); err == nil {
		h.Observe(value)
	} else {
		p.dropped++
	}
}

// Flush is a no-op: Prometheus pulls metrics when it scrapes.
func (p *PrometheusMetricsCollector) Flush() error {
	return nil
}

// Dropped returns how many samples were discarded because their labels did
// not match the registered vector.
func (p *PrometheusMetricsCollector) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// register adds c to reg, reusing an identical collector that is already
// registered. It returns nil when registration is impossible.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	var zero C
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		return zero
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for k := range tags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
