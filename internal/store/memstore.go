package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ignite/leadflow/internal/domain"
)

// Mem is an in-memory Store. It backs local runs without a database and
// doubles as the test fixture for everything above the storage layer.
// All methods are safe for concurrent use.
type Mem struct {
	mu sync.RWMutex

	seq map[string]int64

	sources    map[int64]*domain.LeadSource
	rawLeads   map[int64]*domain.RawLead
	attrs      map[int64]*domain.SourceAttribution
	qualified  map[int64]*domain.QualifiedLead
	clients    map[int64]*domain.BusinessClient
	deliveries map[int64]*domain.DeliveredLead
	payments   map[int64]*domain.Payment
	rules      map[string]*domain.IndustryRule
	optOuts    []*domain.OptOut
	bounces    []*domain.Bounce
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{
		seq:        make(map[string]int64),
		sources:    make(map[int64]*domain.LeadSource),
		rawLeads:   make(map[int64]*domain.RawLead),
		attrs:      make(map[int64]*domain.SourceAttribution),
		qualified:  make(map[int64]*domain.QualifiedLead),
		clients:    make(map[int64]*domain.BusinessClient),
		deliveries: make(map[int64]*domain.DeliveredLead),
		payments:   make(map[int64]*domain.Payment),
		rules:      make(map[string]*domain.IndustryRule),
	}
}

func (m *Mem) nextID(table string) int64 {
	m.seq[table]++
	return m.seq[table]
}

// ---- LeadStore ----

func (m *Mem) EnsureLeadSource(ctx context.Context, sourceName, platformType, scrapeURL string) (*domain.LeadSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.SourceName == sourceName && s.PlatformType == platformType {
			cp := *s
			return &cp, nil
		}
	}
	s := &domain.LeadSource{
		ID:           m.nextID("lead_sources"),
		SourceName:   sourceName,
		PlatformType: platformType,
		ScrapeURL:    scrapeURL,
		Active:       true,
	}
	m.sources[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *Mem) InsertRawLeads(ctx context.Context, leads []*domain.RawLead, attrs []*domain.SourceAttribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range leads {
		l.ID = m.nextID("raw_leads")
		cp := *l
		m.rawLeads[l.ID] = &cp
		if i < len(attrs) && attrs[i] != nil {
			a := attrs[i]
			a.ID = m.nextID("source_attributions")
			a.RawLeadID = l.ID
			acp := *a
			m.attrs[a.ID] = &acp
		}
	}
	return nil
}

func (m *Mem) RawLeadsByIDs(ctx context.Context, ids []int64) ([]*domain.RawLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.RawLead, 0, len(ids))
	for _, id := range ids {
		if l, ok := m.rawLeads[id]; ok {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Mem) IndustryRule(ctx context.Context, industry string) (*domain.IndustryRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[industry]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Mem) UpsertIndustryRule(ctx context.Context, rule *domain.IndustryRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rules[rule.Industry]; ok {
		rule.ID = existing.ID
	} else {
		rule.ID = m.nextID("industry_rules")
	}
	cp := *rule
	m.rules[rule.Industry] = &cp
	return nil
}

func (m *Mem) QualifiedLeadByRawID(ctx context.Context, rawLeadID int64) (*domain.QualifiedLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, q := range m.qualified {
		if q.RawLeadID == rawLeadID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Mem) InsertQualifiedLead(ctx context.Context, ql *domain.QualifiedLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.qualified {
		if q.RawLeadID == ql.RawLeadID && ql.RawLeadID != 0 {
			return ErrDuplicate
		}
	}
	ql.ID = m.nextID("qualified_leads")
	cp := *ql
	m.qualified[ql.ID] = &cp
	return nil
}

func (m *Mem) UpdateEnrichment(ctx context.Context, id int64, summary, enriched string, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.qualified[id]
	if !ok {
		return ErrNotFound
	}
	q.Summary = summary
	q.Enriched = enriched
	q.Verified = verified
	return nil
}

func (m *Mem) QualifiedLeadsByIDs(ctx context.Context, ids []int64) ([]*domain.QualifiedLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.QualifiedLead, 0, len(ids))
	for _, id := range ids {
		if q, ok := m.qualified[id]; ok {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Mem) CandidateLeads(ctx context.Context, industry string) ([]*domain.QualifiedLead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.QualifiedLead
	for _, q := range m.qualified {
		if q.Industry != industry {
			continue
		}
		if q.Category != domain.CategoryHot && q.Category != domain.CategoryWarm {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- ClientStore ----

func (m *Mem) Client(ctx context.Context, id int64) (*domain.BusinessClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Mem) InsertClient(ctx context.Context, c *domain.BusinessClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID("business_clients")
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *Mem) UpdateClient(ctx context.Context, c *domain.BusinessClient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *Mem) ListClients(ctx context.Context, includeDeleted bool) ([]*domain.BusinessClient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.BusinessClient
	for _, c := range m.clients {
		if c.IsDeleted && !includeDeleted {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Mem) SoftDeleteClient(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	c.IsDeleted = true
	c.DeletedAt = &now
	return nil
}

func (m *Mem) RestoreClient(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return ErrNotFound
	}
	c.IsDeleted = false
	c.DeletedAt = nil
	return nil
}

func (m *Mem) HardDeleteClient(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

// ---- DeliveryStore ----

func (m *Mem) InsertDelivery(ctx context.Context, d *domain.DeliveredLead) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.deliveries {
		if ex.QualifiedLeadID == d.QualifiedLeadID && ex.ClientID == d.ClientID && ex.Method == d.Method {
			return ex.ID, false, nil
		}
	}
	d.ID = m.nextID("delivered_leads")
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now().UTC()
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return d.ID, true, nil
}

func (m *Mem) DeliveredCount(ctx context.Context, clientID int64, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.deliveries {
		if d.ClientID == clientID && !d.DeliveredAt.Before(from) && d.DeliveredAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (m *Mem) DeliveredCountByIndustry(ctx context.Context, clientID int64, industry string, from, to time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.deliveries {
		if d.ClientID != clientID || d.DeliveredAt.Before(from) || !d.DeliveredAt.Before(to) {
			continue
		}
		q, ok := m.qualified[d.QualifiedLeadID]
		if ok && q.Industry == industry {
			n++
		}
	}
	return n, nil
}

func (m *Mem) MarkOpened(ctx context.Context, method domain.Method, target string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target = domain.CanonicalTarget(target)
	if target == "" {
		return false, nil
	}
	// duplicate targets can span several qualified leads; any delivery
	// whose lead matches flips
	matched := make(map[int64]bool)
	for _, q := range m.qualified {
		switch method {
		case domain.MethodEmail:
			if domain.CanonicalTarget(q.Email) == target {
				matched[q.ID] = true
			}
		case domain.MethodWhatsApp:
			if domain.CanonicalTarget(q.Phone) == target {
				matched[q.ID] = true
			}
		}
	}
	if len(matched) == 0 {
		return false, nil
	}
	for _, d := range m.deliveries {
		if matched[d.QualifiedLeadID] && d.Method == method {
			d.Opened = true
			return true, nil
		}
	}
	return false, nil
}

// ---- BillingStore ----

func (m *Mem) InsertPayment(ctx context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID("payments")
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *Mem) Payment(ctx context.Context, id int64) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Mem) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *Mem) PaymentsByClient(ctx context.Context, clientID int64) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.ClientID == clientID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Mem) HasSettledPayment(ctx context.Context, clientID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.ClientID == clientID && p.Status.Settled() {
			return true, nil
		}
	}
	return false, nil
}

func (m *Mem) TrialPayment(ctx context.Context, clientID int64) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *domain.Payment
	for _, p := range m.payments {
		if p.ClientID == clientID && p.PlanName == domain.PlanTrial && p.Status.Settled() {
			if found == nil || p.ID < found.ID {
				found = p
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	cp := *found
	return &cp, nil
}

// ---- SuppressionStore ----

func (m *Mem) InsertOptOut(ctx context.Context, method domain.Method, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optOuts = append(m.optOuts, &domain.OptOut{
		ID:        m.nextID("opt_outs"),
		Method:    method,
		Value:     domain.CanonicalTarget(value),
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *Mem) IsOptedOut(ctx context.Context, method domain.Method, value string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value = domain.CanonicalTarget(value)
	for _, o := range m.optOuts {
		if o.Method == method && o.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func (m *Mem) InsertBounce(ctx context.Context, b *domain.Bounce) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.nextID("bounces")
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Target = domain.CanonicalTarget(b.Target)
	cp := *b
	m.bounces = append(m.bounces, &cp)
	return nil
}

// OptOuts returns a copy of all opt-out rows, in insertion order.
func (m *Mem) OptOuts() []*domain.OptOut {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.OptOut, len(m.optOuts))
	for i, o := range m.optOuts {
		cp := *o
		out[i] = &cp
	}
	return out
}

// Deliveries returns a copy of all delivered-lead rows, ordered by id.
func (m *Mem) Deliveries() []*domain.DeliveredLead {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.DeliveredLead, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- AnalyticsStore ----

func (m *Mem) platformOf(sourceID int64) string {
	if s, ok := m.sources[sourceID]; ok {
		return s.PlatformType
	}
	return ""
}

func (m *Mem) RawLeadPlatforms(ctx context.Context) ([]RawPlatformRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RawPlatformRow, 0, len(m.rawLeads))
	for _, l := range m.rawLeads {
		out = append(out, RawPlatformRow{RawLeadID: l.ID, Platform: m.platformOf(l.SourceID)})
	}
	return out, nil
}

func (m *Mem) QualifiedLeadPlatforms(ctx context.Context) ([]QualifiedPlatformRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]QualifiedPlatformRow, 0, len(m.qualified))
	for _, q := range m.qualified {
		raw, ok := m.rawLeads[q.RawLeadID]
		if !ok {
			continue
		}
		out = append(out, QualifiedPlatformRow{QualifiedLeadID: q.ID, Platform: m.platformOf(raw.SourceID)})
	}
	return out, nil
}

func (m *Mem) DeliveryRows(ctx context.Context) ([]DeliveryRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DeliveryRow, 0, len(m.deliveries))
	for _, d := range m.deliveries {
		q, ok := m.qualified[d.QualifiedLeadID]
		if !ok {
			continue
		}
		platform := ""
		if raw, ok := m.rawLeads[q.RawLeadID]; ok {
			platform = m.platformOf(raw.SourceID)
		}
		out = append(out, DeliveryRow{
			ClientID:        d.ClientID,
			QualifiedLeadID: q.ID,
			Method:          d.Method,
			Platform:        platform,
			Opened:          d.Opened,
			Email:           strings.ToLower(q.Email),
			Phone:           strings.ToLower(q.Phone),
		})
	}
	return out, nil
}

func (m *Mem) Bounces(ctx context.Context) ([]*domain.Bounce, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Bounce, len(m.bounces))
	for i, b := range m.bounces {
		cp := *b
		out[i] = &cp
	}
	return out, nil
}

var _ Store = (*Mem)(nil)
