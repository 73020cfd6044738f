// Package analytics computes funnel conversion aggregates over the
// stored pipeline entities. Everything is computed on demand; nothing
// here is cached or incremental.
package analytics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
)

// QualificationFunnel is the lead to qualified conversion for one
// platform.
type QualificationFunnel struct {
	Raw       int     `json:"raw"`
	Qualified int     `json:"qualified"`
	Rate      float64 `json:"rate"`
}

// DeliveryFunnel is the qualified to delivered conversion for one
// (client, platform) pair. Qualified is the platform-wide total, not a
// per-client figure.
type DeliveryFunnel struct {
	Qualified int     `json:"qualified"`
	Delivered int     `json:"delivered"`
	Rate      float64 `json:"rate"`
}

// EngagementFunnel is the opened/bounced breakdown for one
// (client, platform, method) group.
type EngagementFunnel struct {
	Delivered  int     `json:"delivered"`
	Opened     int     `json:"opened"`
	Bounced    int     `json:"bounced"`
	OpenRate   float64 `json:"open_rate"`
	BounceRate float64 `json:"bounce_rate"`
}

// Aggregator answers the funnel queries against the store.
type Aggregator struct {
	st store.AnalyticsStore
}

func NewAggregator(st store.AnalyticsStore) *Aggregator {
	return &Aggregator{st: st}
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0.0
	}
	return float64(num) / float64(denom)
}

// LeadToQualifiedByPlatform groups raw and qualified lead counts by
// source platform. Platforms with raw leads but no qualified leads
// still appear, at rate 0.
func (a *Aggregator) LeadToQualifiedByPlatform(ctx context.Context) (map[string]QualificationFunnel, error) {
	raw, err := a.st.RawLeadPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	qualified, err := a.st.QualifiedLeadPlatforms(ctx)
	if err != nil {
		return nil, err
	}

	rawCounts := make(map[string]int)
	for _, r := range raw {
		rawCounts[r.Platform]++
	}
	qualCounts := make(map[string]int)
	for _, q := range qualified {
		qualCounts[q.Platform]++
	}

	out := make(map[string]QualificationFunnel, len(rawCounts))
	for pf, rc := range rawCounts {
		qc := qualCounts[pf]
		out[pf] = QualificationFunnel{Raw: rc, Qualified: qc, Rate: ratio(qc, rc)}
	}
	return out, nil
}

// QualifiedToDeliveredByClientPlatform groups delivery counts by
// (client, platform) against the platform-wide qualified totals.
func (a *Aggregator) QualifiedToDeliveredByClientPlatform(ctx context.Context) (map[int64]map[string]DeliveryFunnel, error) {
	qualified, err := a.st.QualifiedLeadPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := a.st.DeliveryRows(ctx)
	if err != nil {
		return nil, err
	}

	qualByPlatform := make(map[string]int)
	for _, q := range qualified {
		qualByPlatform[q.Platform]++
	}

	type key struct {
		client   int64
		platform string
	}
	delivered := make(map[key]int)
	for _, r := range rows {
		delivered[key{r.ClientID, r.Platform}]++
	}

	out := make(map[int64]map[string]DeliveryFunnel)
	for k, dc := range delivered {
		denom := qualByPlatform[k.platform]
		if out[k.client] == nil {
			out[k.client] = make(map[string]DeliveryFunnel)
		}
		out[k.client][k.platform] = DeliveryFunnel{Qualified: denom, Delivered: dc, Rate: ratio(dc, denom)}
	}
	return out, nil
}

// EngagementByClientPlatformMethod groups opened and bounced counts by
// (client, platform, method). Bounces are matched all-time against the
// set of targets delivered in each group; a target bounced twice
// counts twice.
func (a *Aggregator) EngagementByClientPlatformMethod(ctx context.Context) (map[int64]map[string]map[string]EngagementFunnel, error) {
	rows, err := a.st.DeliveryRows(ctx)
	if err != nil {
		return nil, err
	}
	bounces, err := a.st.Bounces(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		client   int64
		platform string
		method   domain.Method
	}
	type target struct {
		method domain.Method
		value  string
	}
	delivered := make(map[key]int)
	opened := make(map[key]int)
	targets := make(map[key]map[target]struct{})
	for _, r := range rows {
		k := key{r.ClientID, r.Platform, r.Method}
		delivered[k]++
		if r.Opened {
			opened[k]++
		}
		var t target
		switch {
		case r.Method == domain.MethodEmail && r.Email != "":
			t = target{domain.MethodEmail, r.Email}
		case r.Method == domain.MethodWhatsApp && r.Phone != "":
			t = target{domain.MethodWhatsApp, r.Phone}
		default:
			continue
		}
		if targets[k] == nil {
			targets[k] = make(map[target]struct{})
		}
		targets[k][t] = struct{}{}
	}

	bounceCounts := make(map[target]int)
	for _, b := range bounces {
		bounceCounts[target{b.Method, domain.CanonicalTarget(b.Target)}]++
	}

	out := make(map[int64]map[string]map[string]EngagementFunnel)
	for k, dc := range delivered {
		bounced := 0
		for t := range targets[k] {
			bounced += bounceCounts[t]
		}
		if out[k.client] == nil {
			out[k.client] = make(map[string]map[string]EngagementFunnel)
		}
		if out[k.client][k.platform] == nil {
			out[k.client][k.platform] = make(map[string]EngagementFunnel)
		}
		out[k.client][k.platform][string(k.method)] = EngagementFunnel{
			Delivered:  dc,
			Opened:     opened[k],
			Bounced:    bounced,
			OpenRate:   ratio(opened[k], dc),
			BounceRate: ratio(bounced, dc),
		}
	}
	return out, nil
}

// Register mounts the read-only funnel endpoints on the ops router.
func (a *Aggregator) Register(r chi.Router) {
	r.Get("/analytics/qualification", func(w http.ResponseWriter, req *http.Request) {
		serve(w, req, func(ctx context.Context) (any, error) { return a.LeadToQualifiedByPlatform(ctx) })
	})
	r.Get("/analytics/delivery", func(w http.ResponseWriter, req *http.Request) {
		serve(w, req, func(ctx context.Context) (any, error) { return a.QualifiedToDeliveredByClientPlatform(ctx) })
	})
	r.Get("/analytics/engagement", func(w http.ResponseWriter, req *http.Request) {
		serve(w, req, func(ctx context.Context) (any, error) { return a.EngagementByClientPlatformMethod(ctx) })
	})
}

func serve(w http.ResponseWriter, r *http.Request, query func(context.Context) (any, error)) {
	out, err := query(r.Context())
	if err != nil {
		logger.Error("analytics query failed", "path", r.URL.Path, "error", err.Error())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "query_failed"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}
