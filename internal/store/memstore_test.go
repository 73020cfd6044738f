package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
)

func TestEnsureLeadSourceIsIdempotent(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	a, err := m.EnsureLeadSource(ctx, "linkedin", "social", "https://www.linkedin.com")
	require.NoError(t, err)
	b, err := m.EnsureLeadSource(ctx, "linkedin", "social", "https://www.linkedin.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	c, err := m.EnsureLeadSource(ctx, "google_maps", "maps", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestInsertRawLeadsAssignsIDsAndAttribution(t *testing.T) {
	m := NewMem()
	ctx := context.Background()
	src, _ := m.EnsureLeadSource(ctx, "instagram", "social", "")

	leads := []*domain.RawLead{
		{CompanyName: "Biz 0", SourceID: src.ID, CapturedAt: time.Now()},
		{CompanyName: "Biz 1", SourceID: src.ID, CapturedAt: time.Now()},
	}
	attrs := []*domain.SourceAttribution{
		{Platform: "instagram", Reference: "https://www.instagram.com/biz0/"},
		{Platform: "instagram", Reference: "https://www.instagram.com/biz1/"},
	}
	require.NoError(t, m.InsertRawLeads(ctx, leads, attrs))

	assert.NotZero(t, leads[0].ID)
	assert.NotZero(t, leads[1].ID)
	assert.Equal(t, leads[0].ID, attrs[0].RawLeadID)

	got, err := m.RawLeadsByIDs(ctx, []int64{leads[0].ID, leads[1].ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestQualifiedLeadUniquePerRaw(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	ql := &domain.QualifiedLead{RawLeadID: 7, Category: domain.CategoryHot, Industry: "saas"}
	require.NoError(t, m.InsertQualifiedLead(ctx, ql))
	assert.NotZero(t, ql.ID)

	dup := &domain.QualifiedLead{RawLeadID: 7}
	assert.ErrorIs(t, m.InsertQualifiedLead(ctx, dup), ErrDuplicate)

	got, err := m.QualifiedLeadByRawID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ql.ID, got.ID)
}

func TestInsertDeliveryIdempotency(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	id1, created, err := m.InsertDelivery(ctx, &domain.DeliveredLead{QualifiedLeadID: 1, ClientID: 2, Method: domain.MethodEmail})
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := m.InsertDelivery(ctx, &domain.DeliveredLead{QualifiedLeadID: 1, ClientID: 2, Method: domain.MethodEmail})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)

	// Different method is a distinct delivery.
	_, created, err = m.InsertDelivery(ctx, &domain.DeliveredLead{QualifiedLeadID: 1, ClientID: 2, Method: domain.MethodWhatsApp})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestDeliveredCountWindows(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	in := base.AddDate(0, 0, 10)
	out := base.AddDate(0, 1, 2)

	m.InsertQualifiedLead(ctx, &domain.QualifiedLead{RawLeadID: 1, Industry: "fitness"})
	m.InsertQualifiedLead(ctx, &domain.QualifiedLead{RawLeadID: 2, Industry: "saas"})

	m.InsertDelivery(ctx, &domain.DeliveredLead{QualifiedLeadID: 1, ClientID: 5, Method: domain.MethodEmail, DeliveredAt: in})
	m.InsertDelivery(ctx, &domain.DeliveredLead{QualifiedLeadID: 2, ClientID: 5, Method: domain.MethodEmail, DeliveredAt: out})

	n, err := m.DeliveredCount(ctx, 5, base, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.DeliveredCountByIndustry(ctx, 5, "fitness", base, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.DeliveredCountByIndustry(ctx, 5, "saas", base, base.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSoftDeleteVisibility(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	c := &domain.BusinessClient{BusinessName: "Acme", Industry: "saas"}
	require.NoError(t, m.InsertClient(ctx, c))
	require.NoError(t, m.SoftDeleteClient(ctx, c.ID))

	live, err := m.ListClients(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, live)

	trash, err := m.ListClients(ctx, true)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.True(t, trash[0].IsDeleted)
	assert.NotNil(t, trash[0].DeletedAt)

	// Soft-deleted clients still resolve by id so the caller can decide.
	got, err := m.Client(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)

	require.NoError(t, m.RestoreClient(ctx, c.ID))
	live, _ = m.ListClients(ctx, false)
	assert.Len(t, live, 1)

	require.NoError(t, m.HardDeleteClient(ctx, c.ID))
	_, err = m.Client(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkOpenedMatchesChannelTarget(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	ql := &domain.QualifiedLead{RawLeadID: 1, Email: "Lead@X.com", Phone: "+15551234"}
	require.NoError(t, m.InsertQualifiedLead(ctx, ql))
	m.InsertDelivery(ctx, &domain.DeliveredLead{QualifiedLeadID: ql.ID, ClientID: 1, Method: domain.MethodEmail})

	ok, err := m.MarkOpened(ctx, domain.MethodEmail, "lead@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ds := m.Deliveries()
	require.Len(t, ds, 1)
	assert.True(t, ds[0].Opened)

	// No whatsapp delivery exists for this lead.
	ok, err = m.MarkOpened(ctx, domain.MethodWhatsApp, "+15551234")
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown target is a silent no-op.
	ok, err = m.MarkOpened(ctx, domain.MethodEmail, "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

// The same email can appear on several qualified leads; the flip must
// find the one that was actually delivered.
func TestMarkOpenedSpansDuplicateTargets(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	undelivered := &domain.QualifiedLead{RawLeadID: 1, Email: "dup@x.com"}
	require.NoError(t, m.InsertQualifiedLead(ctx, undelivered))
	delivered := &domain.QualifiedLead{RawLeadID: 2, Email: "dup@x.com"}
	require.NoError(t, m.InsertQualifiedLead(ctx, delivered))

	_, _, err := m.InsertDelivery(ctx, &domain.DeliveredLead{
		QualifiedLeadID: delivered.ID, ClientID: 1, Method: domain.MethodEmail,
	})
	require.NoError(t, err)

	ok, err := m.MarkOpened(ctx, domain.MethodEmail, "dup@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ds := m.Deliveries()
	require.Len(t, ds, 1)
	assert.True(t, ds[0].Opened)
}

func TestOptOutCanonicalization(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	require.NoError(t, m.InsertOptOut(ctx, domain.MethodEmail, "  Lead@X.com "))
	ok, err := m.IsOptedOut(ctx, domain.MethodEmail, "lead@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = m.IsOptedOut(ctx, domain.MethodWhatsApp, "lead@x.com")
	assert.False(t, ok)
}

func TestTrialPayment(t *testing.T) {
	m := NewMem()
	ctx := context.Background()

	_, err := m.TrialPayment(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	m.InsertPayment(ctx, &domain.Payment{ClientID: 1, PlanName: domain.PlanTrial, Status: domain.PaymentFailed})
	_, err = m.TrialPayment(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	m.InsertPayment(ctx, &domain.Payment{ClientID: 1, PlanName: domain.PlanTrial, Status: domain.PaymentPaid})
	p, err := m.TrialPayment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanTrial, p.PlanName)

	ok, err := m.HasSettledPayment(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}
