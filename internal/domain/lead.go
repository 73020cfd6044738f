package domain

import "time"

// LeadSource identifies a platform a lead was captured from.
type LeadSource struct {
	ID           int64  `json:"id" db:"id"`
	SourceName   string `json:"source_name" db:"source_name"`
	Industry     string `json:"industry" db:"industry"`
	PlatformType string `json:"platform_type" db:"platform_type"`
	ScrapeURL    string `json:"scrape_url" db:"scrape_url"`
	Active       bool   `json:"active" db:"active_status"`
}

// RawLead is an unvalidated business contact exactly as captured.
// Rows are immutable once inserted.
type RawLead struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	CompanyName string    `json:"company_name" db:"company_name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	Website     string    `json:"website" db:"website"`
	Industry    string    `json:"industry" db:"industry"`
	SourceID    int64     `json:"source_id" db:"source_id"`
	CapturedAt  time.Time `json:"captured_at" db:"captured_at"`
	RawData     string    `json:"raw_data_json" db:"raw_data_json"`
}

// SourceAttribution records where a raw lead came from, 1:1 with RawLead
// when attribution is known.
type SourceAttribution struct {
	ID          int64     `json:"id" db:"id"`
	RawLeadID   int64     `json:"raw_lead_id" db:"raw_lead_id"`
	Platform    string    `json:"source_platform" db:"source_platform"`
	Reference   string    `json:"source_reference" db:"source_reference"`
	Campaign    string    `json:"campaign" db:"campaign"`
	CollectedAt time.Time `json:"collected_at" db:"collected_at"`
}

// Category buckets a qualified lead by score.
type Category string

const (
	CategoryHot  Category = "hot"
	CategoryWarm Category = "warm"
	CategoryCold Category = "cold"
)

// QualifiedLead is a scored, categorized lead eligible for delivery.
// At most one exists per RawLead.
type QualifiedLead struct {
	ID          int64    `json:"id" db:"id"`
	RawLeadID   int64    `json:"raw_lead_id" db:"raw_lead_id"`
	Name        string   `json:"name" db:"name"`
	CompanyName string   `json:"company_name" db:"company_name"`
	Phone       string   `json:"phone" db:"phone"`
	WhatsApp    string   `json:"whatsapp" db:"whatsapp"`
	Email       string   `json:"email" db:"email"`
	Score       int      `json:"qualification_score" db:"qualification_score"`
	Category    Category `json:"score_category" db:"score_category"`
	Industry    string   `json:"industry" db:"industry"`
	Summary     string   `json:"summary" db:"summary"`
	Enriched    string   `json:"enriched_data_json" db:"enriched_data_json"`
	Verified    bool     `json:"verified_status" db:"verified_status"`
}

// IndustryRule carries per-industry qualification configuration.
// ScoringRules is a JSON document; see pipeline.QualifierConfig.
type IndustryRule struct {
	ID              int64  `json:"id" db:"id"`
	Industry        string `json:"industry" db:"industry"`
	Questions       string `json:"qualification_questions" db:"qualification_questions"`
	ScoringRules    string `json:"scoring_rules" db:"scoring_rules"`
	EnrichmentNotes string `json:"enrichment_notes" db:"enrichment_notes"`
}
