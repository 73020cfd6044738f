// Package billing implements the subscription lifecycle: payment
// recording, activation, grace-period expiry, and invoicing.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/pricing"
	"github.com/ignite/leadflow/internal/store"
)

// Service mutates clients and payments through the store.
type Service struct {
	clients  store.ClientStore
	payments store.BillingStore
	now      func() time.Time
}

func NewService(clients store.ClientStore, payments store.BillingStore) *Service {
	return &Service{clients: clients, payments: payments, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Active is the activation rule. A client with a subscription plan is
// active while next_billing_date has not elapsed beyond the grace
// period. A plan-less client is active only with a settled payment on
// record; the pay-per-lead and trial policies take over from there.
func Active(c *domain.BusinessClient, hasSettled bool, now time.Time) bool {
	if c == nil || c.IsDeleted {
		return false
	}
	if c.SubscriptionPlan != "" {
		if c.NextBillingDate == nil {
			return false
		}
		return now.Before(c.NextBillingDate.AddDate(0, 0, pricing.GracePeriodDays))
	}
	return hasSettled
}

// IsClientActive resolves the client and its payment history and applies
// Active. A missing client is simply inactive.
func (s *Service) IsClientActive(ctx context.Context, clientID int64) (bool, error) {
	c, err := s.clients.Client(ctx, clientID)
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("billing: load client %d: %w", clientID, err)
	}
	hasSettled, err := s.payments.HasSettledPayment(ctx, clientID)
	if err != nil {
		return false, fmt.Errorf("billing: payment lookup for client %d: %w", clientID, err)
	}
	return Active(c, hasSettled, s.now()), nil
}

// RecordPayment appends a payment row for an existing client and returns
// it with the ID set.
func (s *Service) RecordPayment(ctx context.Context, clientID int64, plan domain.PlanName, amount float64, status domain.PaymentStatus) (*domain.Payment, error) {
	if _, err := s.clients.Client(ctx, clientID); err != nil {
		return nil, fmt.Errorf("billing: record payment: %w", err)
	}
	p := &domain.Payment{
		ClientID:    clientID,
		PlanName:    plan,
		Amount:      amount,
		PaymentDate: s.now(),
		Status:      status,
	}
	if err := s.payments.InsertPayment(ctx, p); err != nil {
		return nil, fmt.Errorf("billing: record payment: %w", err)
	}
	logger.Info("payment recorded", "client_id", clientID, "plan", string(plan), "status", string(status))
	return p, nil
}

// UpdateSubscription activates a plan when the payment settled, or nulls
// the plan otherwise. Returns whether the plan ended up active.
func (s *Service) UpdateSubscription(ctx context.Context, clientID int64, plan domain.PlanName, users int, status domain.PaymentStatus) (bool, error) {
	c, err := s.clients.Client(ctx, clientID)
	if err != nil {
		return false, fmt.Errorf("billing: update subscription: %w", err)
	}
	terms, ok := pricing.BasePlans[plan]
	if !ok {
		logger.Info("subscription update skipped", "reason", "plan_unknown", "plan", string(plan))
		return false, nil
	}

	if status.Settled() {
		c.SubscriptionPlan = plan
		if users > 0 {
			c.NumberOfUsers = users
		}
		next := s.now().AddDate(0, 0, terms.PeriodDays)
		c.NextBillingDate = &next
		if err := s.clients.UpdateClient(ctx, c); err != nil {
			return false, fmt.Errorf("billing: update subscription: %w", err)
		}
		logger.Info("subscription updated", "client_id", clientID, "plan", string(plan))
		return true, nil
	}

	c.SubscriptionPlan = ""
	if err := s.clients.UpdateClient(ctx, c); err != nil {
		return false, fmt.Errorf("billing: update subscription: %w", err)
	}
	logger.Info("subscription deactivated", "client_id", clientID, "reason", "failed_payment")
	return false, nil
}

// DeactivateExpired nulls the plan of every client whose next_billing_date
// plus grace period is in the past. Returns how many were downgraded.
func (s *Service) DeactivateExpired(ctx context.Context) (int, error) {
	if !pricing.AutoDowngrade {
		return 0, nil
	}
	clients, err := s.clients.ListClients(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("billing: deactivate expired: %w", err)
	}
	now := s.now()
	count := 0
	for _, c := range clients {
		if c.SubscriptionPlan == "" || c.NextBillingDate == nil {
			continue
		}
		if c.NextBillingDate.AddDate(0, 0, pricing.GracePeriodDays).Before(now) {
			c.SubscriptionPlan = ""
			if err := s.clients.UpdateClient(ctx, c); err != nil {
				return count, fmt.Errorf("billing: deactivate client %d: %w", c.ID, err)
			}
			count++
		}
	}
	logger.Info("expired clients deactivated", "count", count)
	return count, nil
}

// CheckUpcomingBilling lists clients whose next_billing_date falls within
// the threshold window starting now.
func (s *Service) CheckUpcomingBilling(ctx context.Context, thresholdDays int) ([]*domain.BusinessClient, error) {
	clients, err := s.clients.ListClients(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("billing: upcoming billing: %w", err)
	}
	now := s.now()
	soon := now.AddDate(0, 0, thresholdDays)
	var due []*domain.BusinessClient
	for _, c := range clients {
		if c.NextBillingDate == nil {
			continue
		}
		if !c.NextBillingDate.Before(now) && !c.NextBillingDate.After(soon) {
			due = append(due, c)
		}
	}
	logger.Info("billing upcoming", "count", len(due), "threshold_days", thresholdDays)
	return due, nil
}

// GenerateInvoice records a due payment at the client's current plan
// price. Clients without a plan get no invoice.
func (s *Service) GenerateInvoice(ctx context.Context, clientID int64) (*domain.Payment, error) {
	c, err := s.clients.Client(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("billing: generate invoice: %w", err)
	}
	terms, ok := pricing.BasePlans[c.SubscriptionPlan]
	if !ok {
		return nil, nil
	}
	p, err := s.RecordPayment(ctx, clientID, c.SubscriptionPlan, terms.Price, domain.PaymentDue)
	if err != nil {
		return nil, err
	}
	logger.Info("invoice generated", "client_id", clientID, "amount", terms.Price)
	return p, nil
}

// SettleInvoice flips a payment to paid.
func (s *Service) SettleInvoice(ctx context.Context, paymentID int64) error {
	if _, err := s.payments.Payment(ctx, paymentID); err != nil {
		return fmt.Errorf("billing: settle invoice: %w", err)
	}
	if err := s.payments.UpdatePaymentStatus(ctx, paymentID, domain.PaymentPaid); err != nil {
		return fmt.Errorf("billing: settle invoice: %w", err)
	}
	logger.Info("invoice settled", "payment_id", paymentID)
	return nil
}
