package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/store"
)

var now = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *store.Mem) {
	t.Helper()
	mem := store.NewMem()
	return NewService(mem, mem).WithClock(func() time.Time { return now }), mem
}

func seedClient(t *testing.T, mem *store.Mem, c *domain.BusinessClient) *domain.BusinessClient {
	t.Helper()
	require.NoError(t, mem.InsertClient(context.Background(), c))
	return c
}

func TestActiveRule(t *testing.T) {
	future := now.AddDate(0, 0, 10)
	withinGrace := now.AddDate(0, 0, -3)
	pastGrace := now.AddDate(0, 0, -6)

	tests := []struct {
		name       string
		client     *domain.BusinessClient
		hasSettled bool
		want       bool
	}{
		{"nil client", nil, true, false},
		{"soft deleted", &domain.BusinessClient{IsDeleted: true, SubscriptionPlan: domain.PlanPro, NextBillingDate: &future}, true, false},
		{"plan current", &domain.BusinessClient{SubscriptionPlan: domain.PlanStarter, NextBillingDate: &future}, false, true},
		{"plan within grace", &domain.BusinessClient{SubscriptionPlan: domain.PlanStarter, NextBillingDate: &withinGrace}, false, true},
		{"plan past grace", &domain.BusinessClient{SubscriptionPlan: domain.PlanStarter, NextBillingDate: &pastGrace}, true, false},
		{"plan without billing date", &domain.BusinessClient{SubscriptionPlan: domain.PlanElite}, true, false},
		{"pay per lead with settled payment", &domain.BusinessClient{}, true, true},
		{"pay per lead without payment", &domain.BusinessClient{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Active(tt.client, tt.hasSettled, now))
		})
	}
}

func TestIsClientActiveMissingClient(t *testing.T) {
	svc, _ := newService(t)
	active, err := svc.IsClientActive(context.Background(), 404)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestUpdateSubscriptionSettled(t *testing.T) {
	svc, mem := newService(t)
	c := seedClient(t, mem, &domain.BusinessClient{BusinessName: "Acme", Industry: "saas"})

	ok, err := svc.UpdateSubscription(context.Background(), c.ID, domain.PlanPro, 4, domain.PaymentPaid)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := mem.Client(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanPro, got.SubscriptionPlan)
	assert.Equal(t, 4, got.NumberOfUsers)
	require.NotNil(t, got.NextBillingDate)
	assert.Equal(t, now.AddDate(0, 0, 30), *got.NextBillingDate)
}

func TestUpdateSubscriptionFailedPaymentNullsPlan(t *testing.T) {
	svc, mem := newService(t)
	next := now.AddDate(0, 0, 15)
	c := seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanStarter, NextBillingDate: &next})

	ok, err := svc.UpdateSubscription(context.Background(), c.ID, domain.PlanStarter, 0, domain.PaymentFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := mem.Client(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.SubscriptionPlan)
}

func TestUpdateSubscriptionUnknownPlan(t *testing.T) {
	svc, mem := newService(t)
	c := seedClient(t, mem, &domain.BusinessClient{})

	ok, err := svc.UpdateSubscription(context.Background(), c.ID, domain.PlanName("platinum"), 1, domain.PaymentPaid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeactivateExpired(t *testing.T) {
	svc, mem := newService(t)
	expired := now.AddDate(0, 0, -10)
	current := now.AddDate(0, 0, 10)
	lapsed := seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanStarter, NextBillingDate: &expired})
	kept := seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanPro, NextBillingDate: &current})
	seedClient(t, mem, &domain.BusinessClient{})

	n, err := svc.DeactivateExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := mem.Client(context.Background(), lapsed.ID)
	assert.Empty(t, got.SubscriptionPlan)
	got, _ = mem.Client(context.Background(), kept.ID)
	assert.Equal(t, domain.PlanPro, got.SubscriptionPlan)
}

func TestCheckUpcomingBilling(t *testing.T) {
	svc, mem := newService(t)
	in3 := now.AddDate(0, 0, 3)
	in12 := now.AddDate(0, 0, 12)
	past := now.AddDate(0, 0, -1)
	due := seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanPro, NextBillingDate: &in3})
	seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanPro, NextBillingDate: &in12})
	seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanPro, NextBillingDate: &past})

	got, err := svc.CheckUpcomingBilling(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)
}

func TestInvoiceLifecycle(t *testing.T) {
	svc, mem := newService(t)
	next := now.AddDate(0, 0, 30)
	c := seedClient(t, mem, &domain.BusinessClient{SubscriptionPlan: domain.PlanElite, NextBillingDate: &next})

	inv, err := svc.GenerateInvoice(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.Equal(t, float64(1999), inv.Amount)
	assert.Equal(t, domain.PaymentDue, inv.Status)

	require.NoError(t, svc.SettleInvoice(context.Background(), inv.ID))
	p, err := mem.Payment(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, p.Status)
}

func TestGenerateInvoiceNoPlan(t *testing.T) {
	svc, mem := newService(t)
	c := seedClient(t, mem, &domain.BusinessClient{})

	inv, err := svc.GenerateInvoice(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Nil(t, inv)
}
