package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/leadflow/internal/delivery"
	"github.com/ignite/leadflow/internal/ingest"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
)

// ActivityChecker gates the fan-out to clients; billing.Service
// implements it.
type ActivityChecker interface {
	IsClientActive(ctx context.Context, clientID int64) (bool, error)
}

// Cycle is one scheduled ingestion run: capture, validate, qualify,
// enrich, persist, and fan out to every active client on both channels.
type Cycle struct {
	st        store.Store
	ingester  ingest.Ingester
	qualifier *Qualifier
	enricher  *Enricher
	engine    *delivery.Engine
	activity  ActivityChecker
}

func NewCycle(st store.Store, ingester ingest.Ingester, qualifier *Qualifier, enricher *Enricher, engine *delivery.Engine, activity ActivityChecker) *Cycle {
	return &Cycle{
		st:        st,
		ingester:  ingester,
		qualifier: qualifier,
		enricher:  enricher,
		engine:    engine,
		activity:  activity,
	}
}

// Run executes the cycle. One bad lead never halts the run; store and
// ingestion failures propagate so the job queue can retry.
func (c *Cycle) Run(ctx context.Context) error {
	platform := c.ingester.Platform()

	rawIDs, err := c.ingester.Ingest(ctx)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", platform, err)
	}
	if len(rawIDs) == 0 {
		logger.Info("cycle empty", "platform", platform)
		return nil
	}

	raws, err := c.st.RawLeadsByIDs(ctx, rawIDs)
	if err != nil {
		return fmt.Errorf("cycle %s: load raw leads: %w", platform, err)
	}

	views := ValidateBatch(raws)
	scored := c.qualifier.Qualify(ctx, views)
	for i := range scored {
		c.enricher.Enrich(ctx, &scored[i])
	}

	qualifiedIDs, err := c.upsert(ctx, scored)
	if err != nil {
		return fmt.Errorf("cycle %s: %w", platform, err)
	}
	logger.Info("cycle processed", "platform", platform, "raw", len(raws), "qualified", len(qualifiedIDs))

	if len(qualifiedIDs) == 0 {
		return nil
	}
	return c.fanOut(ctx, qualifiedIDs)
}

// upsert persists the scored leads, skipping raw leads that already have
// a qualified row and collecting the resulting IDs either way.
func (c *Cycle) upsert(ctx context.Context, scored []Scored) ([]int64, error) {
	ids := make([]int64, 0, len(scored))
	for _, s := range scored {
		existing, err := c.st.QualifiedLeadByRawID(ctx, s.Lead.RawLeadID)
		if err == nil {
			ids = append(ids, existing.ID)
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("qualified lookup: %w", err)
		}

		if err := c.st.InsertQualifiedLead(ctx, s.Lead); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				// lost a race with a concurrent cycle
				if existing, err := c.st.QualifiedLeadByRawID(ctx, s.Lead.RawLeadID); err == nil {
					ids = append(ids, existing.ID)
				}
				continue
			}
			return nil, fmt.Errorf("qualified insert: %w", err)
		}
		ids = append(ids, s.Lead.ID)
	}
	return ids, nil
}

// fanOut delivers the new leads to every active, non-deleted client on
// both channels. Per-client failures are logged and skipped so one bad
// client cannot starve the rest.
func (c *Cycle) fanOut(ctx context.Context, qualifiedIDs []int64) error {
	clients, err := c.st.ListClients(ctx, false)
	if err != nil {
		return fmt.Errorf("list clients: %w", err)
	}
	for _, client := range clients {
		active, err := c.activity.IsClientActive(ctx, client.ID)
		if err != nil {
			logger.Warn("activity check failed", "client_id", client.ID, "error", err.Error())
			continue
		}
		if !active {
			continue
		}
		if _, err := c.engine.DeliverWhatsApp(ctx, client.ID, qualifiedIDs); err != nil {
			logger.Error("whatsapp fan-out failed", "client_id", client.ID, "error", err.Error())
		}
		if _, err := c.engine.DeliverEmail(ctx, client.ID, qualifiedIDs, ""); err != nil {
			logger.Error("email fan-out failed", "client_id", client.ID, "error", err.Error())
		}
	}
	return nil
}
