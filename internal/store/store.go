// Package store defines the typed persistence interface the pipeline runs
// against, plus an in-memory implementation used as the local fallback
// store and as the test double. The Postgres implementation lives in the
// postgres subpackage.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ignite/leadflow/internal/domain"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert would violate a uniqueness rule
// (e.g. a second QualifiedLead for the same RawLead).
var ErrDuplicate = errors.New("store: duplicate")

// LeadStore covers sources, raw leads, and qualified leads.
type LeadStore interface {
	// EnsureLeadSource returns the LeadSource for (sourceName, platformType),
	// creating it when absent.
	EnsureLeadSource(ctx context.Context, sourceName, platformType, scrapeURL string) (*domain.LeadSource, error)

	// InsertRawLeads inserts a batch of raw leads with their attributions in
	// one transaction: all or nothing. attrs may be shorter than leads; each
	// attribution is matched to its lead by index and gets the lead's ID.
	InsertRawLeads(ctx context.Context, leads []*domain.RawLead, attrs []*domain.SourceAttribution) error

	RawLeadsByIDs(ctx context.Context, ids []int64) ([]*domain.RawLead, error)

	IndustryRule(ctx context.Context, industry string) (*domain.IndustryRule, error)
	UpsertIndustryRule(ctx context.Context, rule *domain.IndustryRule) error

	// QualifiedLeadByRawID returns the qualified lead for a raw lead, or
	// ErrNotFound.
	QualifiedLeadByRawID(ctx context.Context, rawLeadID int64) (*domain.QualifiedLead, error)
	// InsertQualifiedLead inserts and sets ql.ID. A second insert for the
	// same RawLeadID returns ErrDuplicate.
	InsertQualifiedLead(ctx context.Context, ql *domain.QualifiedLead) error
	// UpdateEnrichment overwrites the enricher-owned columns.
	UpdateEnrichment(ctx context.Context, id int64, summary, enriched string, verified bool) error
	QualifiedLeadsByIDs(ctx context.Context, ids []int64) ([]*domain.QualifiedLead, error)
	// CandidateLeads returns hot/warm leads for an industry, in insertion order.
	CandidateLeads(ctx context.Context, industry string) ([]*domain.QualifiedLead, error)
}

// ClientStore covers business clients, including the soft-delete lifecycle.
type ClientStore interface {
	// Client returns a client by id, soft-deleted rows included; callers
	// decide what a deleted row means. ErrNotFound when absent.
	Client(ctx context.Context, id int64) (*domain.BusinessClient, error)
	InsertClient(ctx context.Context, c *domain.BusinessClient) error
	UpdateClient(ctx context.Context, c *domain.BusinessClient) error
	// ListClients returns non-deleted clients; with includeDeleted it
	// returns the trash view too.
	ListClients(ctx context.Context, includeDeleted bool) ([]*domain.BusinessClient, error)
	SoftDeleteClient(ctx context.Context, id int64) error
	RestoreClient(ctx context.Context, id int64) error
	HardDeleteClient(ctx context.Context, id int64) error
}

// DeliveryStore covers delivered-lead recording and the cap counters.
type DeliveryStore interface {
	// InsertDelivery upserts against the (qualified, client, method) unique
	// index and reports whether a row was actually created. When the row
	// already existed, the existing id is returned with created=false.
	InsertDelivery(ctx context.Context, d *domain.DeliveredLead) (id int64, created bool, err error)

	// DeliveredCount counts a client's deliveries with delivered_at in
	// [from, to), all channels.
	DeliveredCount(ctx context.Context, clientID int64, from, to time.Time) (int, error)
	// DeliveredCountByIndustry restricts the count to deliveries whose
	// qualified lead has the given industry.
	DeliveredCountByIndustry(ctx context.Context, clientID int64, industry string, from, to time.Time) (int, error)

	// MarkOpened flips the opened flag on the delivered lead whose qualified
	// lead matches the channel target (email for email, phone for whatsapp).
	// Returns false when nothing matches; the flip is monotonic.
	MarkOpened(ctx context.Context, method domain.Method, target string) (bool, error)
}

// BillingStore covers payments.
type BillingStore interface {
	InsertPayment(ctx context.Context, p *domain.Payment) error
	Payment(ctx context.Context, id int64) (*domain.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
	PaymentsByClient(ctx context.Context, clientID int64) ([]*domain.Payment, error)
	// HasSettledPayment reports whether any paid/success payment exists.
	HasSettledPayment(ctx context.Context, clientID int64) (bool, error)
	// TrialPayment returns the first settled trial payment, or ErrNotFound.
	TrialPayment(ctx context.Context, clientID int64) (*domain.Payment, error)
}

// SuppressionStore covers opt-outs and bounces. Values are canonicalized
// before storage and comparison.
type SuppressionStore interface {
	InsertOptOut(ctx context.Context, method domain.Method, value string) error
	IsOptedOut(ctx context.Context, method domain.Method, value string) (bool, error)
	InsertBounce(ctx context.Context, b *domain.Bounce) error
}

// RawPlatformRow pairs a raw lead with its source platform.
type RawPlatformRow struct {
	RawLeadID int64
	Platform  string
}

// QualifiedPlatformRow pairs a qualified lead with its source platform.
type QualifiedPlatformRow struct {
	QualifiedLeadID int64
	Platform        string
}

// DeliveryRow is the joined view the analytics aggregator consumes.
type DeliveryRow struct {
	ClientID        int64
	QualifiedLeadID int64
	Method          domain.Method
	Platform        string
	Opened          bool
	Email           string
	Phone           string
}

// AnalyticsStore exposes the joined reads behind the funnel aggregates.
type AnalyticsStore interface {
	RawLeadPlatforms(ctx context.Context) ([]RawPlatformRow, error)
	QualifiedLeadPlatforms(ctx context.Context) ([]QualifiedPlatformRow, error)
	DeliveryRows(ctx context.Context) ([]DeliveryRow, error)
	Bounces(ctx context.Context) ([]*domain.Bounce, error)
}

// Store is the full persistence surface the application is wired against.
type Store interface {
	LeadStore
	ClientStore
	DeliveryStore
	BillingStore
	SuppressionStore
	AnalyticsStore
}
