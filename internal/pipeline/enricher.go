package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/leadflow/internal/pkg/logger"
)

const (
	enrichTimeout   = 8 * time.Second
	keywordScanSize = 5000
	maxBodyBytes    = 1 << 20
)

var enrichKeywords = []string{"contact", "review", "rating", "about"}

// Enrichment is the probe result stored in QualifiedLead.Enriched.
type Enrichment struct {
	SiteOK     bool     `json:"site_ok"`
	ContentLen int      `json:"content_len"`
	Keywords   []string `json:"keywords"`
}

// Enricher probes lead websites. The zero client default is replaced by
// one with the probe timeout.
type Enricher struct {
	client *http.Client
}

func NewEnricher(client *http.Client) *Enricher {
	if client == nil {
		client = &http.Client{Timeout: enrichTimeout}
	}
	return &Enricher{client: client}
}

// Enrich probes the website and mutates the scored lead in place:
// Summary, Enriched, and Verified are overwritten, so re-running is
// idempotent. Network errors never propagate; they yield site_ok=false.
func (e *Enricher) Enrich(ctx context.Context, s *Scored) {
	enr := e.probe(ctx, s.Website)

	s.Lead.Summary = fmt.Sprintf("site_ok=%t, content_len=%d", enr.SiteOK, enr.ContentLen)
	s.Lead.Verified = enr.SiteOK
	blob, err := json.Marshal(enr)
	if err != nil {
		blob = []byte("{}")
	}
	s.Lead.Enriched = string(blob)
}

func (e *Enricher) probe(ctx context.Context, website string) Enrichment {
	enr := Enrichment{Keywords: []string{}}
	target := ensureScheme(website)
	if target == "" {
		return enr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return enr
	}
	resp, err := e.client.Do(req)
	if err != nil {
		logger.Debug("enrich probe failed", "website", target, "error", err.Error())
		return enr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return enr
	}
	enr.SiteOK = true
	enr.ContentLen = len(body)

	scan := body
	if len(scan) > keywordScanSize {
		scan = scan[:keywordScanSize]
	}
	text := strings.ToLower(string(scan))
	for _, kw := range enrichKeywords {
		if strings.Contains(text, kw) {
			enr.Keywords = append(enr.Keywords, kw)
		}
	}
	return enr
}

func ensureScheme(website string) string {
	if website == "" {
		return ""
	}
	if u, err := url.Parse(website); err == nil && u.Scheme != "" {
		return website
	}
	return "http://" + website
}
