package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
)

// Ingester captures one platform's leads. Ingest returns the IDs of the
// raw leads inserted this cycle.
type Ingester interface {
	Platform() string
	Ingest(ctx context.Context) ([]int64, error)
}

// Item is one captured business contact before it becomes a RawLead.
type Item struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Industry string `json:"industry"`
	Category string `json:"category,omitempty"`
	Profile  string `json:"profile"`
	Campaign string `json:"campaign"`
}

// SocialIngester covers the profile-listing platforms (LinkedIn,
// Instagram). Items come from an export file when ImportPath is set,
// otherwise a synthetic feed is generated for local runs.
type SocialIngester struct {
	st         store.LeadStore
	pacer      Pacer
	platform   string
	scrapeURL  string
	query      string
	limit      int
	importPath string
	defaultInd string
}

func NewLinkedIn(st store.LeadStore, pacer Pacer, query string, limit int, importPath string) *SocialIngester {
	return &SocialIngester{
		st: st, pacer: pacer,
		platform:   "linkedin",
		scrapeURL:  "https://www.linkedin.com",
		query:      query,
		limit:      limit,
		importPath: importPath,
		defaultInd: "saas",
	}
}

func NewInstagram(st store.LeadStore, pacer Pacer, query string, limit int, importPath string) *SocialIngester {
	return &SocialIngester{
		st: st, pacer: pacer,
		platform:   "instagram",
		scrapeURL:  "https://www.instagram.com",
		query:      query,
		limit:      limit,
		importPath: importPath,
		defaultInd: "restaurants",
	}
}

func (g *SocialIngester) Platform() string { return g.platform }

// Ingest ensures the LeadSource row, collects items under pacing, and
// inserts the batch with attributions in one transaction.
func (g *SocialIngester) Ingest(ctx context.Context) ([]int64, error) {
	src, err := g.st.EnsureLeadSource(ctx, g.platform, "social", g.scrapeURL)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", g.platform, err)
	}

	items, err := g.collect()
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", g.platform, err)
	}

	now := time.Now().UTC()
	leads := make([]*domain.RawLead, 0, len(items))
	attrs := make([]*domain.SourceAttribution, 0, len(items))
	for _, it := range items {
		if g.pacer != nil {
			if err := g.pacer.Wait(ctx); err != nil {
				return nil, fmt.Errorf("ingest %s: %w", g.platform, err)
			}
		}
		industry := it.Industry
		if industry == "" {
			industry = it.Category
		}
		blob, _ := json.Marshal(it)
		leads = append(leads, &domain.RawLead{
			Name:        it.Name,
			CompanyName: it.Name,
			Email:       it.Email,
			Phone:       it.Phone,
			Website:     it.Website,
			Industry:    industry,
			SourceID:    src.ID,
			CapturedAt:  now,
			RawData:     string(blob),
		})
		attrs = append(attrs, &domain.SourceAttribution{
			Platform:    g.platform,
			Reference:   it.Profile,
			Campaign:    it.Campaign,
			CollectedAt: now,
		})
	}

	if err := g.st.InsertRawLeads(ctx, leads, attrs); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", g.platform, err)
	}
	ids := make([]int64, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	logger.Info("ingest cycle complete", "platform", g.platform, "captured", len(ids))
	return ids, nil
}

func (g *SocialIngester) collect() ([]Item, error) {
	if g.importPath != "" {
		if _, err := os.Stat(g.importPath); err == nil {
			return g.importFile()
		}
	}
	return g.synthetic(), nil
}

func (g *SocialIngester) importFile() ([]Item, error) {
	data, err := os.ReadFile(g.importPath)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if len(items) > g.limit {
		items = items[:g.limit]
	}
	return items, nil
}

func (g *SocialIngester) synthetic() []Item {
	items := make([]Item, 0, g.limit)
	for i := 0; i < g.limit; i++ {
		items = append(items, Item{
			Name:     fmt.Sprintf("%s Company %d", g.platform, i),
			Email:    fmt.Sprintf("contact%d@example.com", i),
			Phone:    fmt.Sprintf("+1%07d", i),
			Website:  fmt.Sprintf("https://example%d.com", i),
			Industry: g.defaultInd,
			Profile:  fmt.Sprintf("%s/example-%d/", g.scrapeURL, i),
			Campaign: g.query,
		})
	}
	return items
}
