// Package metrics keeps in-process delivery counters and exposes them
// over the standard Prometheus scrape endpoint.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Key labels one counter series.
type Key struct {
	ClientID int64
	Method   string
	Industry string
}

// Counts are the counter families tracked per series.
type Counts struct {
	Delivered       uint64
	SkippedCap      uint64
	SkippedInactive uint64
	TrialUsed       uint64
}

var labelNames = []string{"client_id", "method", "industry"}

// Registry wraps a dedicated Prometheus registry holding the four
// delivery counter families. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	reg             *prometheus.Registry
	delivered       *prometheus.CounterVec
	skippedCap      *prometheus.CounterVec
	skippedInactive *prometheus.CounterVec
	trialUsed       *prometheus.CounterVec
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	counter := func(name, help string) *prometheus.CounterVec {
		v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labelNames)
		reg.MustRegister(v)
		return v
	}
	return &Registry{
		reg:             reg,
		delivered:       counter("leadgen_delivered_total", "Leads delivered."),
		skippedCap:      counter("leadgen_skipped_cap_total", "Leads skipped because a monthly cap was reached."),
		skippedInactive: counter("leadgen_skipped_inactive_total", "Leads skipped because the client was inactive."),
		trialUsed:       counter("leadgen_trial_used_total", "Leads delivered under the trial price override."),
	}
}

func labels(k Key) prometheus.Labels {
	return prometheus.Labels{
		"client_id": strconv.FormatInt(k.ClientID, 10),
		"method":    k.Method,
		"industry":  k.Industry,
	}
}

func (r *Registry) IncDelivered(k Key)       { r.delivered.With(labels(k)).Inc() }
func (r *Registry) IncSkippedCap(k Key)      { r.skippedCap.With(labels(k)).Inc() }
func (r *Registry) IncSkippedInactive(k Key) { r.skippedInactive.With(labels(k)).Inc() }
func (r *Registry) IncTrialUsed(k Key)       { r.trialUsed.With(labels(k)).Inc() }

// Snapshot gathers every series into a plain map. The gather is a
// point-in-time copy; later increments do not leak into it.
func (r *Registry) Snapshot() map[Key]Counts {
	families, err := r.reg.Gather()
	if err != nil {
		return nil
	}
	out := make(map[Key]Counts)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var k Key
			for _, lp := range m.GetLabel() {
				switch lp.GetName() {
				case "client_id":
					k.ClientID, _ = strconv.ParseInt(lp.GetValue(), 10, 64)
				case "method":
					k.Method = lp.GetValue()
				case "industry":
					k.Industry = lp.GetValue()
				}
			}
			v := uint64(m.GetCounter().GetValue())
			c := out[k]
			switch mf.GetName() {
			case "leadgen_delivered_total":
				c.Delivered = v
			case "leadgen_skipped_cap_total":
				c.SkippedCap = v
			case "leadgen_skipped_inactive_total":
				c.SkippedInactive = v
			case "leadgen_trial_used_total":
				c.TrialUsed = v
			}
			out[k] = c
		}
	}
	return out
}

// Handler serves the scrape endpoint in the text exposition format.
func (r *Registry) Handler() http.HandlerFunc {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}).ServeHTTP
}
