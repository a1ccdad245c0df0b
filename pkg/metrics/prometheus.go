package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector on top of client_golang vector
// metrics, registered lazily per metric name so callers don't have to
// pre-declare every metric up front. The label names of a metric are
// fixed by the first call that uses its name.
type PrometheusCollector struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusCollector returns a Collector backed by reg. Pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer's underlying registry to publish through
// the global /metrics handler.
func NewPrometheusCollector(reg *prometheus.Registry) *PrometheusCollector {
	return &PrometheusCollector{
		registry:   reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	return names
}

func (c *PrometheusCollector) IncCounter(name string, labels map[string]string, delta float64) {
	c.mu.Lock()
	vec, ok := c.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labelNames(labels))
		c.registry.MustRegister(vec)
		c.counters[name] = vec
	}
	c.mu.Unlock()
	vec.With(labels).Add(delta)
}

func (c *PrometheusCollector) SetGauge(name string, labels map[string]string, value float64) {
	c.mu.Lock()
	vec, ok := c.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labelNames(labels))
		c.registry.MustRegister(vec)
		c.gauges[name] = vec
	}
	c.mu.Unlock()
	vec.With(labels).Set(value)
}

func (c *PrometheusCollector) ObserveHistogram(name string, labels map[string]string, value float64) {
	c.mu.Lock()
	vec, ok := c.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name}, labelNames(labels))
		c.registry.MustRegister(vec)
		c.histograms[name] = vec
	}
	c.mu.Unlock()
	vec.With(labels).Observe(value)
}
