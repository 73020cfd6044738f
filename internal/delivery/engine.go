// Package delivery implements the per-client delivery gate: activity,
// opt-out, cap, trial, pricing, idempotent recording, and the channel
// transports behind it.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/leadflow/internal/billing"
	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/metrics"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/pricing"
	"github.com/ignite/leadflow/internal/store"
)

// Outcome statuses.
const (
	StatusDelivered = "delivered"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Skip reasons.
const (
	ReasonOptOut          = "opt_out"
	ReasonInactive        = "inactive"
	ReasonCapSubscription = "cap_reached_subscription"
	ReasonCapPayPerLead   = "cap_reached_ppl"
)

// Outcome is the per-candidate result of one delivery invocation.
// Price is set only on delivered outcomes.
type Outcome struct {
	LeadID int64    `json:"lead_id"`
	Status string   `json:"status"`
	Reason string   `json:"reason,omitempty"`
	Price  *float64 `json:"price,omitempty"`
}

// Engine evaluates the delivery gate for one client at a time.
// Invocations for the same client serialize through the Locker; the
// DeliveredLead unique index backstops races across processes.
type Engine struct {
	st       store.Store
	email    Sender
	whatsapp Sender
	renderer *Renderer
	reg      *metrics.Registry
	locks    Locker
	now      func() time.Time
}

func NewEngine(st store.Store, email, whatsapp Sender, reg *metrics.Registry, locks Locker) *Engine {
	if locks == nil {
		locks = NewLocalLocker()
	}
	return &Engine{
		st:       st,
		email:    email,
		whatsapp: whatsapp,
		renderer: NewRenderer(),
		reg:      reg,
		locks:    locks,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// DeliverWhatsApp runs the gate over the candidates and sends survivors
// through the WhatsApp transport. Empty qualifiedIDs selects hot/warm
// leads in the client's industry.
func (e *Engine) DeliverWhatsApp(ctx context.Context, clientID int64, qualifiedIDs []int64) ([]Outcome, error) {
	return e.deliver(ctx, clientID, domain.MethodWhatsApp, qualifiedIDs, "")
}

// DeliverEmail is DeliverWhatsApp's email counterpart. template is a
// Liquid document; empty selects the default.
func (e *Engine) DeliverEmail(ctx context.Context, clientID int64, qualifiedIDs []int64, template string) ([]Outcome, error) {
	return e.deliver(ctx, clientID, domain.MethodEmail, qualifiedIDs, template)
}

// MarkDashboard records dashboard deliveries. The gate applies but no
// transport is invoked.
func (e *Engine) MarkDashboard(ctx context.Context, clientID int64, qualifiedIDs []int64) ([]Outcome, error) {
	return e.deliver(ctx, clientID, domain.MethodDashboard, qualifiedIDs, "")
}

// monthWindow is the calendar month containing t: [first, first of next).
func monthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

func (e *Engine) deliver(ctx context.Context, clientID int64, method domain.Method, qualifiedIDs []int64, template string) ([]Outcome, error) {
	client, err := e.st.Client(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Info("delivery skipped", "reason", "client_missing", "client_id", clientID)
			return nil, nil
		}
		return nil, fmt.Errorf("delivery: load client %d: %w", clientID, err)
	}
	if client.IsDeleted {
		logger.Info("delivery skipped", "reason", "client_deleted", "client_id", clientID)
		return nil, nil
	}

	release, err := e.locks.Lock(ctx, fmt.Sprintf("deliver:%d", clientID))
	if err != nil {
		return nil, fmt.Errorf("delivery: lock client %d: %w", clientID, err)
	}
	defer release()

	now := e.now()
	monthStart, monthEnd := monthWindow(now)

	hasSettled, err := e.st.HasSettledPayment(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("delivery: payment lookup: %w", err)
	}
	active := billing.Active(client, hasSettled, now)
	plan, hasPlan := pricing.BasePlans[client.SubscriptionPlan]

	trialActive, trialUsed := false, 0
	if trial, err := e.st.TrialPayment(ctx, clientID); err == nil {
		deadline := trial.PaymentDate.AddDate(0, 0, pricing.Trial.DaysValid)
		if !now.After(deadline) {
			trialActive = true
			// the window is end-inclusive; DeliveredCount excludes its
			// upper bound
			trialUsed, err = e.st.DeliveredCount(ctx, clientID, trial.PaymentDate, deadline.Add(time.Nanosecond))
			if err != nil {
				return nil, fmt.Errorf("delivery: trial count: %w", err)
			}
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("delivery: trial lookup: %w", err)
	}

	var candidates []*domain.QualifiedLead
	if len(qualifiedIDs) == 0 {
		candidates, err = e.st.CandidateLeads(ctx, client.Industry)
	} else {
		candidates, err = e.st.QualifiedLeadsByIDs(ctx, qualifiedIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("delivery: load candidates: %w", err)
	}

	monthCount, err := e.st.DeliveredCount(ctx, clientID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("delivery: month count: %w", err)
	}
	industryCounts := make(map[string]int)

	out := make([]Outcome, 0, len(candidates))
	for _, lead := range candidates {
		key := metrics.Key{ClientID: clientID, Method: string(method), Industry: lead.Industry}
		target := e.targetFor(method, client, lead)

		if method != domain.MethodDashboard && target != "" {
			opted, err := e.st.IsOptedOut(ctx, method, target)
			if err != nil {
				return out, fmt.Errorf("delivery: opt-out lookup: %w", err)
			}
			if opted {
				out = append(out, Outcome{LeadID: lead.ID, Status: StatusSkipped, Reason: ReasonOptOut})
				continue
			}
		}

		if !active {
			out = append(out, Outcome{LeadID: lead.ID, Status: StatusSkipped, Reason: ReasonInactive})
			e.reg.IncSkippedInactive(key)
			continue
		}

		var price float64
		if hasPlan {
			if monthCount >= plan.LeadCap {
				out = append(out, Outcome{LeadID: lead.ID, Status: StatusSkipped, Reason: ReasonCapSubscription})
				e.reg.IncSkippedCap(key)
				continue
			}
			price = pricing.PlanPrice(lead.Industry, plan)
		} else {
			cnt, cached := industryCounts[lead.Industry]
			if !cached {
				cnt, err = e.st.DeliveredCountByIndustry(ctx, clientID, lead.Industry, monthStart, monthEnd)
				if err != nil {
					return out, fmt.Errorf("delivery: tier count: %w", err)
				}
				industryCounts[lead.Industry] = cnt
			}
			if cnt >= pricing.PayPerLeadCap[pricing.TierFor(lead.Industry)] {
				out = append(out, Outcome{LeadID: lead.ID, Status: StatusSkipped, Reason: ReasonCapPayPerLead})
				e.reg.IncSkippedCap(key)
				continue
			}
			price = pricing.BasePrice(lead.Industry)
		}

		if trialActive && trialUsed < pricing.Trial.Leads {
			price = 0
			trialUsed++
			e.reg.IncTrialUsed(key)
		}

		if err := e.send(ctx, method, target, client, lead, template); err != nil {
			e.recordBounce(ctx, method, target, err)
			out = append(out, Outcome{LeadID: lead.ID, Status: StatusFailed, Reason: "error:" + err.Error()})
			continue
		}

		_, created, err := e.st.InsertDelivery(ctx, &domain.DeliveredLead{
			QualifiedLeadID: lead.ID,
			ClientID:        clientID,
			Method:          method,
			DeliveredAt:     now,
		})
		if err != nil {
			e.recordBounce(ctx, method, target, err)
			out = append(out, Outcome{LeadID: lead.ID, Status: StatusFailed, Reason: "error:" + err.Error()})
			continue
		}
		if created {
			monthCount++
			if !hasPlan {
				industryCounts[lead.Industry]++
			}
			e.reg.IncDelivered(key)
		}
		p := price
		out = append(out, Outcome{LeadID: lead.ID, Status: StatusDelivered, Price: &p})
	}

	e.logSummary(method, clientID, out, trialUsed)
	return out, nil
}

func (e *Engine) targetFor(method domain.Method, client *domain.BusinessClient, lead *domain.QualifiedLead) string {
	switch method {
	case domain.MethodEmail:
		return domain.CanonicalTarget(lead.Email)
	case domain.MethodWhatsApp:
		if client.WhatsApp != "" {
			return domain.CanonicalTarget(client.WhatsApp)
		}
		return domain.CanonicalTarget(lead.Phone)
	default:
		return ""
	}
}

func (e *Engine) send(ctx context.Context, method domain.Method, target string, client *domain.BusinessClient, lead *domain.QualifiedLead, template string) error {
	switch method {
	case domain.MethodEmail:
		subject := fmt.Sprintf("New qualified lead: %s", lead.CompanyName)
		body := e.renderer.Render(template, lead, client)
		return e.email.Send(ctx, target, subject, body)
	case domain.MethodWhatsApp:
		return e.whatsapp.Send(ctx, target, "", "New qualified lead")
	default:
		// dashboard deliveries have no transport
		return nil
	}
}

func (e *Engine) recordBounce(ctx context.Context, method domain.Method, target string, sendErr error) {
	if method == domain.MethodDashboard {
		return
	}
	b := &domain.Bounce{Method: method, Target: target, Reason: sendErr.Error()}
	if err := e.st.InsertBounce(ctx, b); err != nil {
		logger.Error("bounce insert failed", "error", err.Error())
	}
}

func (e *Engine) logSummary(method domain.Method, clientID int64, out []Outcome, trialUsed int) {
	delivered, skippedCap, skippedInactive := 0, 0, 0
	for _, o := range out {
		switch {
		case o.Status == StatusDelivered:
			delivered++
		case o.Reason == ReasonCapSubscription || o.Reason == ReasonCapPayPerLead:
			skippedCap++
		case o.Reason == ReasonInactive:
			skippedInactive++
		}
	}
	logger.Info("delivery summary",
		"method", string(method),
		"client_id", clientID,
		"processed", len(out),
		"delivered", delivered,
		"skipped_cap", skippedCap,
		"skipped_inactive", skippedInactive,
		"trial_used", trialUsed,
	)
}
