package postgres

import (
	"context"
	"fmt"

	"github.com/ignite/leadflow/internal/pkg/logger"
)

// migrations run in order on every startup; each statement is idempotent.
// The ALTER TABLE block backfills the soft-delete columns on installations
// created before they existed.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS lead_sources (
		id BIGSERIAL PRIMARY KEY,
		source_name TEXT NOT NULL,
		industry TEXT NOT NULL DEFAULT '',
		platform_type TEXT NOT NULL,
		scrape_url TEXT NOT NULL DEFAULT '',
		active_status BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS raw_leads (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		industry TEXT NOT NULL DEFAULT '',
		source_id BIGINT NOT NULL REFERENCES lead_sources(id),
		captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		raw_data_json TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS source_attributions (
		id BIGSERIAL PRIMARY KEY,
		raw_lead_id BIGINT NOT NULL REFERENCES raw_leads(id),
		source_platform TEXT NOT NULL DEFAULT '',
		source_reference TEXT NOT NULL DEFAULT '',
		campaign TEXT NOT NULL DEFAULT '',
		collected_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS qualified_leads (
		id BIGSERIAL PRIMARY KEY,
		raw_lead_id BIGINT NOT NULL REFERENCES raw_leads(id),
		name TEXT NOT NULL DEFAULT '',
		company_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		whatsapp TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		qualification_score INT NOT NULL DEFAULT 0,
		score_category TEXT NOT NULL DEFAULT 'cold',
		industry TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		enriched_data_json TEXT NOT NULL DEFAULT '{}',
		verified_status BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS qualified_leads_raw_lead_id_key ON qualified_leads (raw_lead_id)`,
	`CREATE TABLE IF NOT EXISTS business_clients (
		id BIGSERIAL PRIMARY KEY,
		business_name TEXT NOT NULL DEFAULT '',
		industry TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		whatsapp TEXT NOT NULL DEFAULT '',
		subscription_plan TEXT,
		number_of_users INT NOT NULL DEFAULT 1,
		next_billing_date TIMESTAMPTZ
	)`,
	`ALTER TABLE business_clients ADD COLUMN IF NOT EXISTS is_deleted BOOLEAN NOT NULL DEFAULT false`,
	`ALTER TABLE business_clients ADD COLUMN IF NOT EXISTS deleted_at TIMESTAMPTZ`,
	`CREATE TABLE IF NOT EXISTS delivered_leads (
		id BIGSERIAL PRIMARY KEY,
		qualified_lead_id BIGINT NOT NULL REFERENCES qualified_leads(id),
		business_client_id BIGINT NOT NULL REFERENCES business_clients(id),
		delivered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		delivery_method TEXT NOT NULL,
		opened_status BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS delivered_leads_idempotency_key
		ON delivered_leads (qualified_lead_id, business_client_id, delivery_method)`,
	`CREATE INDEX IF NOT EXISTS delivered_leads_client_time_idx
		ON delivered_leads (business_client_id, delivered_at)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		business_client_id BIGINT NOT NULL REFERENCES business_clients(id),
		plan_name TEXT NOT NULL DEFAULT '',
		amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		payment_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		payment_status TEXT NOT NULL DEFAULT 'due'
	)`,
	`CREATE TABLE IF NOT EXISTS industry_rules (
		id BIGSERIAL PRIMARY KEY,
		industry TEXT NOT NULL UNIQUE,
		qualification_questions TEXT NOT NULL DEFAULT '{}',
		scoring_rules TEXT NOT NULL DEFAULT '{}',
		enrichment_notes TEXT NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS opt_outs (
		id BIGSERIAL PRIMARY KEY,
		method TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS opt_outs_method_value_idx ON opt_outs (method, value)`,
	`CREATE TABLE IF NOT EXISTS bounces (
		id BIGSERIAL PRIMARY KEY,
		method TEXT NOT NULL,
		target TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate ensures the schema exists. Safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("schema ensured", "statements", len(migrations))
	return nil
}
