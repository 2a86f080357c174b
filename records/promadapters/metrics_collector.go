// Package promadapters implements records.MetricsCollector with the Prometheus client library.
package promadapters

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yriy-kuskov/cakereact-core/records"
)

// ErrNilRegisterer is returned by NewMetricsCollector when no Registerer is given.
var ErrNilRegisterer = errors.New("prometheus registerer must not be nil")

// MetricsCollector maps records metrics onto Prometheus vectors:
//
//   - RecordDuration: HistogramVec observing seconds
//   - IncrementCounter: CounterVec
//   - RecordValue: GaugeVec
//
// A vector is created and registered the first time a metric name is seen, with the label names of that
// call. Later calls with a different label set, and metrics that fail to register, are dropped.
type MetricsCollector struct {
	registerer prometheus.Registerer
	buckets    []float64

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// Option defines a functional option for configuring MetricsCollector.
type Option func(*MetricsCollector)

// WithBuckets sets the histogram buckets in seconds (default prometheus.DefBuckets).
func WithBuckets(buckets []float64) Option {
	return func(m *MetricsCollector) {
		m.buckets = buckets
	}
}

// NewMetricsCollector creates a MetricsCollector registering its vectors with registerer.
func NewMetricsCollector(registerer prometheus.Registerer, options ...Option) (*MetricsCollector, error) {
	if registerer == nil {
		return nil, ErrNilRegisterer
	}

	m := &MetricsCollector{
		registerer: registerer,
		buckets:    prometheus.DefBuckets,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}

	for _, option := range options {
		option(m)
	}

	return m, nil
}

func (m *MetricsCollector) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	vec := m.histogram(metric, labels)
	if vec == nil {
		return
	}

	if observer, err := vec.GetMetricWith(labels); err == nil {
		observer.Observe(duration.Seconds())
	}
}

func (m *MetricsCollector) IncrementCounter(metric string, labels map[string]string) {
	vec := m.counter(metric, labels)
	if vec == nil {
		return
	}

	if counter, err := vec.GetMetricWith(labels); err == nil {
		counter.Inc()
	}
}

func (m *MetricsCollector) RecordValue(metric string, value float64, labels map[string]string) {
	vec := m.gauge(metric, labels)
	if vec == nil {
		return
	}

	if gauge, err := vec.GetMetricWith(labels); err == nil {
		gauge.Set(value)
	}
}

func (m *MetricsCollector) histogram(name string, labels map[string]string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.histograms[name]; ok {
		return vec
	}

	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "Duration of records operations in seconds.",
		Buckets: m.buckets,
	}, labelNames(labels))

	vec, ok := registerOrExisting(m.registerer, vec)
	if !ok {
		return nil
	}

	m.histograms[name] = vec

	return vec
}

func (m *MetricsCollector) counter(name string, labels map[string]string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.counters[name]; ok {
		return vec
	}

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Count of records operations.",
	}, labelNames(labels))

	vec, ok := registerOrExisting(m.registerer, vec)
	if !ok {
		return nil
	}

	m.counters[name] = vec

	return vec
}

func (m *MetricsCollector) gauge(name string, labels map[string]string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vec, ok := m.gauges[name]; ok {
		return vec
	}

	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Last value reported by records operations.",
	}, labelNames(labels))

	vec, ok := registerOrExisting(m.registerer, vec)
	if !ok {
		return nil
	}

	m.gauges[name] = vec

	return vec
}

// registerOrExisting registers c. When an equal collector is already registered, that one is returned.
func registerOrExisting[T prometheus.Collector](registerer prometheus.Registerer, c T) (T, bool) {
	err := registerer.Register(c)
	if err == nil {
		return c, true
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, true
		}
	}

	var zero T

	return zero, false
}

func labelNames(labels map[string]string) []string {
	return slices.Sorted(maps.Keys(labels))
}

var _ records.MetricsCollector = (*MetricsCollector)(nil)
