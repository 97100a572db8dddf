package metrics

import (
	"io"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Package metrics is a thin process-wide wrapper around a prometheus
// registry. Collectors are created lazily on first use keyed by metric
// name, so call sites stay one-liners. The label-key set is fixed by the
// first use of a name; later calls with a different set are dropped.

type registry struct {
	mu        sync.Mutex
	reg       *prometheus.Registry
	counters  map[string]*prometheus.CounterVec
	gauges    map[string]*prometheus.GaugeVec
	summaries map[string]*prometheus.SummaryVec
}

var def = newRegistry()

func newRegistry() *registry {
	return &registry{
		reg:       prometheus.NewRegistry(),
		counters:  map[string]*prometheus.CounterVec{},
		gauges:    map[string]*prometheus.GaugeVec{},
		summaries: map[string]*prometheus.SummaryVec{},
	}
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Inc increments the counter identified by name and labels.
func Inc(name string, labels map[string]string) {
	def.mu.Lock()
	c, ok := def.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name}, labelKeys(labels))
		def.reg.MustRegister(c)
		def.counters[name] = c
	}
	def.mu.Unlock()
	if m, err := c.GetMetricWith(labels); err == nil {
		m.Inc()
	}
}

// AddGauge adds v to the gauge identified by name and labels.
func AddGauge(name string, labels map[string]string, v float64) {
	withGauge(name, labels, func(g prometheus.Gauge) { g.Add(v) })
}

// SetGauge sets the gauge identified by name and labels to v.
func SetGauge(name string, labels map[string]string, v float64) {
	withGauge(name, labels, func(g prometheus.Gauge) { g.Set(v) })
}

func withGauge(name string, labels map[string]string, f func(prometheus.Gauge)) {
	def.mu.Lock()
	g, ok := def.gauges[name]
	if !ok {
		g = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name}, labelKeys(labels))
		def.reg.MustRegister(g)
		def.gauges[name] = g
	}
	def.mu.Unlock()
	if m, err := g.GetMetricWith(labels); err == nil {
		f(m)
	}
}

// ObserveSummary records v into the summary identified by name and labels.
func ObserveSummary(name string, labels map[string]string, v float64) {
	def.mu.Lock()
	s, ok := def.summaries[name]
	if !ok {
		s = prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       name,
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, labelKeys(labels))
		def.reg.MustRegister(s)
		def.summaries[name] = s
	}
	def.mu.Unlock()
	if m, err := s.GetMetricWith(labels); err == nil {
		m.Observe(v)
	}
}

// DumpProm writes the registry contents in prometheus text format.
func DumpProm(w io.Writer) error {
	mfs, err := def.reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops all collectors. Test hook.
func Reset() {
	def.mu.Lock()
	defer def.mu.Unlock()
	def.reg = prometheus.NewRegistry()
	def.counters = map[string]*prometheus.CounterVec{}
	def.gauges = map[string]*prometheus.GaugeVec{}
	def.summaries = map[string]*prometheus.SummaryVec{}
}
