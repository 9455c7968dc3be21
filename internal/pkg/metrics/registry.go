// Package metrics provides the process-scoped metric registry and the
// instrumentation helpers built on top of it. A Registry is created once at
// startup and handed to every component that observes; tests create fresh
// instances.
package metrics

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Registration and observation errors. Registration conflicts are fatal at
// startup; observation errors are logged and dropped in serving paths.
var (
	ErrConfiguration = errors.New("conflicting metric registration")
	ErrUnknownMetric = errors.New("metric not registered")
	ErrLabelMismatch = errors.New("label values do not match declaration")
)

// Kind identifies the metric type of a declaration.
type Kind int

const (
	KindCounter Kind = iota
	KindGauge
	KindDistribution
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindDistribution:
		return "distribution"
	default:
		return "unknown"
	}
}

// Decl declares a metric: a name plus a fixed, ordered label-key set.
// Buckets applies to distributions only; nil selects the client defaults.
type Decl struct {
	Name    string
	Kind    Kind
	Help    string
	Labels  []string
	Buckets []float64
}

type registered struct {
	decl      Decl
	counter   *prometheus.CounterVec
	gauge     *prometheus.GaugeVec
	histogram *prometheus.HistogramVec
}

// Registry is a named collection of counters, gauges and distributions with
// a pull-based export surface. Individual metrics synchronize their own
// updates; the registry lock guards only the name lookup, so Export never
// blocks writers.
type Registry struct {
	logger *slog.Logger
	prom   *prometheus.Registry

	mu      sync.RWMutex
	metrics map[string]*registered
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		prom:    prometheus.NewRegistry(),
		metrics: make(map[string]*registered),
	}
}

// Register declares a metric. Declaring the same name again with an
// identical kind and label set is a no-op; any schema difference is an
// ErrConfiguration.
func (r *Registry) Register(d Decl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.metrics[d.Name]; ok {
		if existing.decl.Kind != d.Kind || !slices.Equal(existing.decl.Labels, d.Labels) {
			return fmt.Errorf("%w: %s redeclared as %s%v, was %s%v",
				ErrConfiguration, d.Name, d.Kind, d.Labels, existing.decl.Kind, existing.decl.Labels)
		}
		return nil
	}

	reg := &registered{decl: d}
	var collector prometheus.Collector

	switch d.Kind {
	case KindCounter:
		reg.counter = prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: d.Name, Help: d.Help}, d.Labels)
		collector = reg.counter
	case KindGauge:
		reg.gauge = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: d.Name, Help: d.Help}, d.Labels)
		collector = reg.gauge
	case KindDistribution:
		opts := prometheus.HistogramOpts{Name: d.Name, Help: d.Help}
		if len(d.Buckets) > 0 {
			opts.Buckets = d.Buckets
		}
		reg.histogram = prometheus.NewHistogramVec(opts, d.Labels)
		collector = reg.histogram
	default:
		return fmt.Errorf("%w: %s declares unknown kind %d", ErrConfiguration, d.Name, int(d.Kind))
	}

	if err := r.prom.Register(collector); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfiguration, d.Name, err)
	}

	r.metrics[d.Name] = reg
	return nil
}

// Inc adds delta to a counter or gauge. Counters reject negative deltas.
func (r *Registry) Inc(name string, delta float64, labelValues ...string) error {
	m, err := r.lookup(name, labelValues)
	if err != nil {
		return err
	}

	switch m.decl.Kind {
	case KindCounter:
		if delta < 0 {
			return fmt.Errorf("%w: counter %s cannot decrease", ErrConfiguration, name)
		}
		c, err := m.counter.GetMetricWithLabelValues(labelValues...)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLabelMismatch, name, err)
		}
		c.Add(delta)
	case KindGauge:
		g, err := m.gauge.GetMetricWithLabelValues(labelValues...)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLabelMismatch, name, err)
		}
		g.Add(delta)
	default:
		return fmt.Errorf("%w: %s is a %s, not incrementable", ErrConfiguration, name, m.decl.Kind)
	}
	return nil
}

// Set sets the current value of a gauge.
func (r *Registry) Set(name string, value float64, labelValues ...string) error {
	m, err := r.lookup(name, labelValues)
	if err != nil {
		return err
	}
	if m.decl.Kind != KindGauge {
		return fmt.Errorf("%w: %s is a %s, not settable", ErrConfiguration, name, m.decl.Kind)
	}
	g, err := m.gauge.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLabelMismatch, name, err)
	}
	g.Set(value)
	return nil
}

// Observe records a data point into a distribution.
func (r *Registry) Observe(name string, value float64, labelValues ...string) error {
	m, err := r.lookup(name, labelValues)
	if err != nil {
		return err
	}
	if m.decl.Kind != KindDistribution {
		return fmt.Errorf("%w: %s is a %s, not observable", ErrConfiguration, name, m.decl.Kind)
	}
	h, err := m.histogram.GetMetricWithLabelValues(labelValues...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLabelMismatch, name, err)
	}
	h.Observe(value)
	return nil
}

// Export renders a point-in-time snapshot of every registered metric in the
// Prometheus text exposition format. Families are sorted by name, so the
// output is deterministic for a fixed state.
func (r *Registry) Export() ([]byte, error) {
	families, err := r.prom.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}

// Gather returns the current snapshot as decoded metric families.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.prom.Gather()
}

// Handler returns the pull-based scrape handler for this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

func (r *Registry) lookup(name string, labelValues []string) (*registered, error) {
	r.mu.RLock()
	m, ok := r.metrics[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	if len(labelValues) != len(m.decl.Labels) {
		return nil, fmt.Errorf("%w: %s expects %d label values, got %d",
			ErrLabelMismatch, name, len(m.decl.Labels), len(labelValues))
	}
	return m, nil
}
