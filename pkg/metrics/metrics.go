package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 stores the bits of a float64 for atomic access.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		if a.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	// Collect returns all samples, ordered by label values.
	Collect() []Sample
}

// Sample is a single exposed value.
type Sample struct {
	Name   string
	Labels []Label
	Value  float64
}

// Label is one name="value" pair of a sample.
type Label struct {
	Name, Value string
}

// family holds one child per label value combination.
type family[V any] struct {
	name       string
	help       string
	labelNames []string
	newChild   func() *V

	mu       sync.RWMutex
	children map[string]*child[V]
}

type child[V any] struct {
	labels []Label
	value  *V
}

func (f *family[V]) Name() string { return f.name }
func (f *family[V]) Help() string { return f.help }

func (f *family[V]) with(values []string) (*V, error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s expected %d labels, got %d", ErrLabelCountMismatch, f.name, len(f.labelNames), len(values))
	}
	key := strings.Join(values, "\x00")

	f.mu.RLock()
	c, ok := f.children[key]
	f.mu.RUnlock()
	if ok {
		return c.value, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.children[key]; ok {
		return c.value, nil
	}
	labels := make([]Label, len(values))
	for i, v := range values {
		labels[i] = Label{Name: f.labelNames[i], Value: v}
	}
	c = &child[V]{labels: labels, value: f.newChild()}
	f.children[key] = c
	return c.value, nil
}

// sorted returns the children ordered by label values.
func (f *family[V]) sorted() []*child[V] {
	f.mu.RLock()
	keys := make([]string, 0, len(f.children))
	for k := range f.children {
		keys = append(keys, k)
	}
	out := make([]*child[V], 0, len(keys))
	slices.Sort(keys)
	for _, k := range keys {
		out = append(out, f.children[k])
	}
	f.mu.RUnlock()
	return out
}

// Counter is a monotonically increasing metric.
type Counter struct {
	family[atomicFloat64]
}

// Type returns MetricTypeCounter.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// WithLabels returns the counter for the given label values.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	v, err := c.with(values)
	if err != nil {
		return nil, err
	}
	return &CounterVec{v: v}, nil
}

// Inc increments the counter for values by one. Label mismatches are ignored.
func (c *Counter) Inc(values ...string) {
	if vec, err := c.WithLabels(values...); err == nil {
		vec.Inc()
	}
}

// Collect returns one sample per label combination.
func (c *Counter) Collect() []Sample {
	children := c.sorted()
	samples := make([]Sample, 0, len(children))
	for _, ch := range children {
		samples = append(samples, Sample{Name: c.name, Labels: ch.labels, Value: ch.value.Load()})
	}
	return samples
}

// CounterVec is the counter of one label combination.
type CounterVec struct {
	v *atomicFloat64
}

// Inc increments the counter by 1.
func (v *CounterVec) Inc() {
	v.v.Add(1)
}

// Add adds delta, which must not be negative.
func (v *CounterVec) Add(delta float64) error {
	if delta < 0 {
		return errors.New("counter cannot be decreased")
	}
	v.v.Add(delta)
	return nil
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	family[histogramValue]
	buckets []float64
}

type histogramValue struct {
	counts []atomic.Uint64 // per bucket, not cumulative
	sum    atomicFloat64
	count  atomic.Uint64
}

// Type returns MetricTypeHistogram.
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// Observe records value for the given label values. Label mismatches are ignored.
func (h *Histogram) Observe(value float64, values ...string) {
	hv, err := h.with(values)
	if err != nil {
		return
	}
	// first bucket whose upper bound is >= value
	if i, _ := slices.BinarySearch(h.buckets, value); i < len(h.buckets) {
		hv.counts[i].Add(1)
	}
	hv.sum.Add(value)
	hv.count.Add(1)
}

// Collect returns the cumulative buckets, sum and count of every label combination.
func (h *Histogram) Collect() []Sample {
	children := h.sorted()
	samples := make([]Sample, 0, (len(h.buckets)+2)*len(children))
	for _, ch := range children {
		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += ch.value.counts[i].Load()
			labels := append(slices.Clone(ch.labels), Label{Name: "le", Value: formatFloat(bound)})
			samples = append(samples, Sample{Name: h.name + "_bucket", Labels: labels, Value: float64(cumulative)})
		}
		samples = append(samples,
			Sample{Name: h.name + "_sum", Labels: ch.labels, Value: ch.value.sum.Load()},
			Sample{Name: h.name + "_count", Labels: ch.labels, Value: float64(ch.value.count.Load())},
		)
	}
	return samples
}

// Registry holds all registered metrics.
type Registry struct {
	mu      sync.RWMutex
	metrics []Metric
	names   map[string]struct{}
}

// NewRegistry creates a new metric registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// NewCounter creates and registers a new counter.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{family: family[atomicFloat64]{
		name:       name,
		help:       help,
		labelNames: labels,
		newChild:   func() *atomicFloat64 { return new(atomicFloat64) },
		children:   make(map[string]*child[atomicFloat64]),
	}}
	r.register(c)
	return c
}

// NewHistogram creates and registers a new histogram. A +Inf bucket is
// always added.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	b := slices.Clone(buckets)
	slices.Sort(b)
	b = slices.Compact(b)
	if len(b) == 0 || !math.IsInf(b[len(b)-1], 1) {
		b = append(b, math.Inf(1))
	}
	h := &Histogram{buckets: b}
	h.family = family[histogramValue]{
		name:       name,
		help:       help,
		labelNames: labels,
		newChild:   func() *histogramValue { return &histogramValue{counts: make([]atomic.Uint64, len(b))} },
		children:   make(map[string]*child[histogramValue]),
	}
	r.register(h)
	return h
}

// register panics on duplicate names, since they produce invalid output.
func (r *Registry) register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.names[m.Name()]; exists {
		panic(fmt.Sprintf("%s: %s", ErrDuplicateMetric, m.Name()))
	}
	r.names[m.Name()] = struct{}{}
	r.metrics = append(r.metrics, m)
}

// WriteTo writes every metric with at least one sample, in registration order.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	r.mu.RLock()
	metrics := slices.Clone(r.metrics)
	r.mu.RUnlock()

	var b strings.Builder
	for _, m := range metrics {
		samples := m.Collect()
		if len(samples) == 0 {
			continue
		}
		fmt.Fprintf(&b, "# HELP %s %s\n", m.Name(), escapeHelp(m.Help()))
		fmt.Fprintf(&b, "# TYPE %s %s\n", m.Name(), m.Type())
		for _, s := range samples {
			b.WriteString(s.Name)
			if len(s.Labels) > 0 {
				b.WriteByte('{')
				for i, l := range s.Labels {
					if i > 0 {
						b.WriteByte(',')
					}
					fmt.Fprintf(&b, "%s=\"%s\"", l.Name, escapeLabelValue(l.Value))
				}
				b.WriteByte('}')
			}
			b.WriteByte(' ')
			b.WriteString(formatFloat(s.Value))
			b.WriteByte('\n')
		}
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = r.WriteTo(w)
	})
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var (
	helpEscaper  = strings.NewReplacer(`\`, `\\`, "\n", `\n`)
	labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
)

func escapeHelp(s string) string       { return helpEscaper.Replace(s) }
func escapeLabelValue(s string) string { return labelEscaper.Replace(s) }
