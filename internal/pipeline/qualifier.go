package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
)

// QualifierConfig is the parsed form of IndustryRule.ScoringRules. All
// fields are optional in the stored JSON; zero values fall back to the
// defaults below at scoring time.
type QualifierConfig struct {
	Weights    Weights    `json:"weights"`
	Thresholds Thresholds `json:"thresholds"`
	Keywords   []string   `json:"keywords"`
}

type Weights struct {
	Email   *int `json:"email"`
	Phone   *int `json:"phone"`
	Website *int `json:"website"`
	Keyword *int `json:"keyword"`
}

type Thresholds struct {
	Hot  *int `json:"hot"`
	Warm *int `json:"warm"`
}

func orDefault(v *int, d int) int {
	if v == nil {
		return d
	}
	return *v
}

// ParseConfig parses a scoring_rules document. Malformed or empty input
// yields the all-defaults config rather than an error.
func ParseConfig(raw string) QualifierConfig {
	var cfg QualifierConfig
	if strings.TrimSpace(raw) == "" {
		return cfg
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Warn("scoring rules unparseable, using defaults", "error", err.Error())
		return QualifierConfig{}
	}
	return cfg
}

// Scored pairs a qualified lead with the validated website it was scored
// from. The website is not a QualifiedLead column; the enricher consumes
// it before the row is persisted.
type Scored struct {
	Lead    *domain.QualifiedLead
	Website string
}

// Qualifier scores validated views against per-industry rules.
type Qualifier struct {
	rules store.LeadStore
}

func NewQualifier(rules store.LeadStore) *Qualifier {
	return &Qualifier{rules: rules}
}

// Qualify scores a batch. Within the batch, duplicates by
// (lower(email), phone, lower(company_name)) are dropped keeping the
// first. Rule lookups are cached per industry for the batch.
func (q *Qualifier) Qualify(ctx context.Context, views []View) []Scored {
	type dedupKey struct {
		email   string
		phone   string
		company string
	}
	seen := make(map[dedupKey]struct{}, len(views))
	ruleCache := make(map[string]QualifierConfig)

	out := make([]Scored, 0, len(views))
	for _, v := range views {
		key := dedupKey{
			email:   strings.ToLower(strings.TrimSpace(v.Email)),
			phone:   strings.TrimSpace(v.Phone),
			company: strings.ToLower(strings.TrimSpace(v.CompanyName)),
		}
		if _, dup := seen[key]; dup {
			logger.Debug("qualify dedup skipped", "raw_lead_id", v.RawLeadID)
			continue
		}
		seen[key] = struct{}{}

		cfg, ok := ruleCache[v.Industry]
		if !ok {
			cfg = q.configFor(ctx, v.Industry)
			ruleCache[v.Industry] = cfg
		}
		score, cat := Score(v, cfg)
		out = append(out, Scored{
			Lead: &domain.QualifiedLead{
				RawLeadID:   v.RawLeadID,
				Name:        v.Name,
				CompanyName: v.CompanyName,
				Phone:       v.Phone,
				Email:       v.Email,
				Score:       score,
				Category:    cat,
				Industry:    v.Industry,
				Enriched:    "{}",
			},
			Website: v.Website,
		})
	}
	logger.Info("qualifier processed", "input", len(views), "output", len(out))
	return out
}

func (q *Qualifier) configFor(ctx context.Context, industry string) QualifierConfig {
	if industry == "" || q.rules == nil {
		return QualifierConfig{}
	}
	rule, err := q.rules.IndustryRule(ctx, industry)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("industry rule lookup failed", "industry", industry, "error", err.Error())
		}
		return QualifierConfig{}
	}
	return ParseConfig(rule.ScoringRules)
}

// Score computes the qualification score and category for one view.
// Defaults: weights {email:30, phone:25, website:20, keyword:5},
// thresholds {hot:75, warm:50}. The score is clamped to [0,100].
func Score(v View, cfg QualifierConfig) (int, domain.Category) {
	score := 0
	if v.Email != "" {
		score += orDefault(cfg.Weights.Email, 30)
	}
	if v.Phone != "" {
		score += orDefault(cfg.Weights.Phone, 25)
	}
	if v.Website != "" {
		score += orDefault(cfg.Weights.Website, 20)
	}
	if len(cfg.Keywords) > 0 {
		haystack := strings.ToLower(v.CompanyName + " " + v.Name)
		for _, kw := range cfg.Keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				score += orDefault(cfg.Weights.Keyword, 5)
			}
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	hot := orDefault(cfg.Thresholds.Hot, 75)
	warm := orDefault(cfg.Thresholds.Warm, 50)
	switch {
	case score >= hot:
		return score, domain.CategoryHot
	case score >= warm:
		return score, domain.CategoryWarm
	default:
		return score, domain.CategoryCold
	}
}
