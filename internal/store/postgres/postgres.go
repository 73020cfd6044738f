// Package postgres implements store.Store against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/store"
)

// Store is the PostgreSQL-backed persistence layer.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Open connects with the given DSN and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for callers that need it (migrations, locks).
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// isUniqueViolation reports whether err is a unique-index violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ---- LeadStore ----

func (s *Store) EnsureLeadSource(ctx context.Context, sourceName, platformType, scrapeURL string) (*domain.LeadSource, error) {
	src := &domain.LeadSource{SourceName: sourceName, PlatformType: platformType, ScrapeURL: scrapeURL, Active: true}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_name, industry, platform_type, scrape_url, active_status
		FROM lead_sources WHERE source_name = $1 AND platform_type = $2
	`, sourceName, platformType).Scan(&src.ID, &src.SourceName, &src.Industry, &src.PlatformType, &src.ScrapeURL, &src.Active)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup lead source: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO lead_sources (source_name, industry, platform_type, scrape_url, active_status)
		VALUES ($1, '', $2, $3, true) RETURNING id
	`, sourceName, platformType, scrapeURL).Scan(&src.ID)
	if err != nil {
		return nil, fmt.Errorf("insert lead source: %w", err)
	}
	return src, nil
}

func (s *Store) InsertRawLeads(ctx context.Context, leads []*domain.RawLead, attrs []*domain.SourceAttribution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin raw lead insert: %w", err)
	}
	defer tx.Rollback()

	for i, l := range leads {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO raw_leads (name, company_name, email, phone, website, industry, source_id, captured_at, raw_data_json)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id
		`, l.Name, l.CompanyName, l.Email, l.Phone, l.Website, l.Industry, l.SourceID, l.CapturedAt, l.RawData).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("insert raw lead: %w", err)
		}
		if i < len(attrs) && attrs[i] != nil {
			a := attrs[i]
			a.RawLeadID = l.ID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO source_attributions (raw_lead_id, source_platform, source_reference, campaign, collected_at)
				VALUES ($1, $2, $3, $4, $5) RETURNING id
			`, a.RawLeadID, a.Platform, a.Reference, a.Campaign, a.CollectedAt).Scan(&a.ID)
			if err != nil {
				return fmt.Errorf("insert source attribution: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit raw lead insert: %w", err)
	}
	return nil
}

func (s *Store) RawLeadsByIDs(ctx context.Context, ids []int64) ([]*domain.RawLead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, company_name, email, phone, website, industry, source_id, captured_at, raw_data_json
		FROM raw_leads WHERE id = ANY($1) ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query raw leads: %w", err)
	}
	defer rows.Close()

	var out []*domain.RawLead
	for rows.Next() {
		var l domain.RawLead
		if err := rows.Scan(&l.ID, &l.Name, &l.CompanyName, &l.Email, &l.Phone, &l.Website, &l.Industry, &l.SourceID, &l.CapturedAt, &l.RawData); err != nil {
			return nil, fmt.Errorf("scan raw lead: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (s *Store) IndustryRule(ctx context.Context, industry string) (*domain.IndustryRule, error) {
	var r domain.IndustryRule
	err := s.db.QueryRowContext(ctx, `
		SELECT id, industry, qualification_questions, scoring_rules, enrichment_notes
		FROM industry_rules WHERE industry = $1
	`, industry).Scan(&r.ID, &r.Industry, &r.Questions, &r.ScoringRules, &r.EnrichmentNotes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup industry rule: %w", err)
	}
	return &r, nil
}

func (s *Store) UpsertIndustryRule(ctx context.Context, rule *domain.IndustryRule) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO industry_rules (industry, qualification_questions, scoring_rules, enrichment_notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (industry) DO UPDATE SET
			qualification_questions = EXCLUDED.qualification_questions,
			scoring_rules = EXCLUDED.scoring_rules,
			enrichment_notes = EXCLUDED.enrichment_notes
		RETURNING id
	`, rule.Industry, rule.Questions, rule.ScoringRules, rule.EnrichmentNotes).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("upsert industry rule: %w", err)
	}
	return nil
}

const qualifiedCols = `id, raw_lead_id, name, company_name, phone, whatsapp, email,
	qualification_score, score_category, industry, summary, enriched_data_json, verified_status`

func scanQualified(row interface{ Scan(...interface{}) error }) (*domain.QualifiedLead, error) {
	var q domain.QualifiedLead
	err := row.Scan(&q.ID, &q.RawLeadID, &q.Name, &q.CompanyName, &q.Phone, &q.WhatsApp, &q.Email,
		&q.Score, &q.Category, &q.Industry, &q.Summary, &q.Enriched, &q.Verified)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (s *Store) QualifiedLeadByRawID(ctx context.Context, rawLeadID int64) (*domain.QualifiedLead, error) {
	q, err := scanQualified(s.db.QueryRowContext(ctx,
		`SELECT `+qualifiedCols+` FROM qualified_leads WHERE raw_lead_id = $1`, rawLeadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup qualified lead: %w", err)
	}
	return q, nil
}

func (s *Store) InsertQualifiedLead(ctx context.Context, ql *domain.QualifiedLead) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO qualified_leads (raw_lead_id, name, company_name, phone, whatsapp, email,
			qualification_score, score_category, industry, summary, enriched_data_json, verified_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id
	`, ql.RawLeadID, ql.Name, ql.CompanyName, ql.Phone, ql.WhatsApp, ql.Email,
		ql.Score, ql.Category, ql.Industry, ql.Summary, ql.Enriched, ql.Verified).Scan(&ql.ID)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert qualified lead: %w", err)
	}
	return nil
}

func (s *Store) UpdateEnrichment(ctx context.Context, id int64, summary, enriched string, verified bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE qualified_leads SET summary = $2, enriched_data_json = $3, verified_status = $4 WHERE id = $1
	`, id, summary, enriched, verified)
	if err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) QualifiedLeadsByIDs(ctx context.Context, ids []int64) ([]*domain.QualifiedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+qualifiedCols+` FROM qualified_leads WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query qualified leads: %w", err)
	}
	defer rows.Close()
	return collectQualified(rows)
}

func (s *Store) CandidateLeads(ctx context.Context, industry string) ([]*domain.QualifiedLead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualifiedCols+` FROM qualified_leads
		WHERE industry = $1 AND score_category IN ('hot', 'warm') ORDER BY id
	`, industry)
	if err != nil {
		return nil, fmt.Errorf("query candidate leads: %w", err)
	}
	defer rows.Close()
	return collectQualified(rows)
}

func collectQualified(rows *sql.Rows) ([]*domain.QualifiedLead, error) {
	var out []*domain.QualifiedLead
	for rows.Next() {
		q, err := scanQualified(rows)
		if err != nil {
			return nil, fmt.Errorf("scan qualified lead: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- ClientStore ----

const clientCols = `id, business_name, industry, email, phone, whatsapp, subscription_plan,
	number_of_users, next_billing_date, is_deleted, deleted_at`

func scanClient(row interface{ Scan(...interface{}) error }) (*domain.BusinessClient, error) {
	var c domain.BusinessClient
	var plan sql.NullString
	err := row.Scan(&c.ID, &c.BusinessName, &c.Industry, &c.Email, &c.Phone, &c.WhatsApp, &plan,
		&c.NumberOfUsers, &c.NextBillingDate, &c.IsDeleted, &c.DeletedAt)
	if err != nil {
		return nil, err
	}
	c.SubscriptionPlan = domain.PlanName(plan.String)
	return &c, nil
}

func (s *Store) Client(ctx context.Context, id int64) (*domain.BusinessClient, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientCols+` FROM business_clients WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	return c, nil
}

func planValue(p domain.PlanName) interface{} {
	if p == "" {
		return nil
	}
	return string(p)
}

func (s *Store) InsertClient(ctx context.Context, c *domain.BusinessClient) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO business_clients (business_name, industry, email, phone, whatsapp,
			subscription_plan, number_of_users, next_billing_date, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false) RETURNING id
	`, c.BusinessName, c.Industry, c.Email, c.Phone, c.WhatsApp,
		planValue(c.SubscriptionPlan), c.NumberOfUsers, c.NextBillingDate).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *Store) UpdateClient(ctx context.Context, c *domain.BusinessClient) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE business_clients SET business_name = $2, industry = $3, email = $4, phone = $5,
			whatsapp = $6, subscription_plan = $7, number_of_users = $8, next_billing_date = $9
		WHERE id = $1
	`, c.ID, c.BusinessName, c.Industry, c.Email, c.Phone, c.WhatsApp,
		planValue(c.SubscriptionPlan), c.NumberOfUsers, c.NextBillingDate)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListClients(ctx context.Context, includeDeleted bool) ([]*domain.BusinessClient, error) {
	q := `SELECT ` + clientCols + ` FROM business_clients`
	if !includeDeleted {
		q += ` WHERE is_deleted = false`
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []*domain.BusinessClient
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) SoftDeleteClient(ctx context.Context, id int64) error {
	return s.clientFlag(ctx, `UPDATE business_clients SET is_deleted = true, deleted_at = NOW() WHERE id = $1`, id)
}

func (s *Store) RestoreClient(ctx context.Context, id int64) error {
	return s.clientFlag(ctx, `UPDATE business_clients SET is_deleted = false, deleted_at = NULL WHERE id = $1`, id)
}

func (s *Store) HardDeleteClient(ctx context.Context, id int64) error {
	return s.clientFlag(ctx, `DELETE FROM business_clients WHERE id = $1`, id)
}

func (s *Store) clientFlag(ctx context.Context, query string, id int64) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("client update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- DeliveryStore ----

func (s *Store) InsertDelivery(ctx context.Context, d *domain.DeliveredLead) (int64, bool, error) {
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO delivered_leads (qualified_lead_id, business_client_id, delivered_at, delivery_method, opened_status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (qualified_lead_id, business_client_id, delivery_method) DO NOTHING
		RETURNING id
	`, d.QualifiedLeadID, d.ClientID, d.DeliveredAt, d.Method, d.Opened).Scan(&d.ID)
	if err == nil {
		return d.ID, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("insert delivery: %w", err)
	}

	// Conflict: the row already exists, return its id.
	var id int64
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM delivered_leads
		WHERE qualified_lead_id = $1 AND business_client_id = $2 AND delivery_method = $3
	`, d.QualifiedLeadID, d.ClientID, d.Method).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup existing delivery: %w", err)
	}
	return id, false, nil
}

func (s *Store) DeliveredCount(ctx context.Context, clientID int64, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delivered_leads
		WHERE business_client_id = $1 AND delivered_at >= $2 AND delivered_at < $3
	`, clientID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count deliveries: %w", err)
	}
	return n, nil
}

func (s *Store) DeliveredCountByIndustry(ctx context.Context, clientID int64, industry string, from, to time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delivered_leads d
		JOIN qualified_leads q ON q.id = d.qualified_lead_id
		WHERE d.business_client_id = $1 AND q.industry = $2 AND d.delivered_at >= $3 AND d.delivered_at < $4
	`, clientID, industry, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count deliveries by industry: %w", err)
	}
	return n, nil
}

func (s *Store) MarkOpened(ctx context.Context, method domain.Method, target string) (bool, error) {
	target = domain.CanonicalTarget(target)
	if target == "" {
		return false, nil
	}
	col := "email"
	if method == domain.MethodWhatsApp {
		col = "phone"
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE delivered_leads SET opened_status = true
		WHERE id IN (
			SELECT d.id FROM delivered_leads d
			JOIN qualified_leads q ON q.id = d.qualified_lead_id
			WHERE d.delivery_method = $1 AND LOWER(q.`+col+`) = $2
			ORDER BY d.id LIMIT 1
		)
	`, method, target)
	if err != nil {
		return false, fmt.Errorf("mark opened: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---- BillingStore ----

func (s *Store) InsertPayment(ctx context.Context, p *domain.Payment) error {
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO payments (business_client_id, plan_name, amount, payment_date, payment_status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, p.ClientID, string(p.PlanName), p.Amount, p.PaymentDate, string(p.Status)).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *Store) Payment(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_client_id, plan_name, amount, payment_date, payment_status
		FROM payments WHERE id = $1
	`, id).Scan(&p.ID, &p.ClientID, &p.PlanName, &p.Amount, &p.PaymentDate, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup payment: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE payments SET payment_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) PaymentsByClient(ctx context.Context, clientID int64) ([]*domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_client_id, plan_name, amount, payment_date, payment_status
		FROM payments WHERE business_client_id = $1 ORDER BY id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.PlanName, &p.Amount, &p.PaymentDate, &p.Status); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) HasSettledPayment(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM payments
			WHERE business_client_id = $1 AND payment_status IN ('paid', 'success'))
	`, clientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("settled payment check: %w", err)
	}
	return exists, nil
}

func (s *Store) TrialPayment(ctx context.Context, clientID int64) (*domain.Payment, error) {
	var p domain.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, business_client_id, plan_name, amount, payment_date, payment_status
		FROM payments
		WHERE business_client_id = $1 AND plan_name = 'trial' AND payment_status IN ('paid', 'success')
		ORDER BY id LIMIT 1
	`, clientID).Scan(&p.ID, &p.ClientID, &p.PlanName, &p.Amount, &p.PaymentDate, &p.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup trial payment: %w", err)
	}
	return &p, nil
}

// ---- SuppressionStore ----

func (s *Store) InsertOptOut(ctx context.Context, method domain.Method, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opt_outs (method, value, created_at) VALUES ($1, $2, NOW())
	`, method, domain.CanonicalTarget(value))
	if err != nil {
		return fmt.Errorf("insert opt-out: %w", err)
	}
	return nil
}

func (s *Store) IsOptedOut(ctx context.Context, method domain.Method, value string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM opt_outs WHERE method = $1 AND value = $2)
	`, method, domain.CanonicalTarget(value)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("opt-out check: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertBounce(ctx context.Context, b *domain.Bounce) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Target = domain.CanonicalTarget(b.Target)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO bounces (method, target, reason, created_at) VALUES ($1, $2, $3, $4) RETURNING id
	`, b.Method, b.Target, b.Reason, b.CreatedAt).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert bounce: %w", err)
	}
	return nil
}

// ---- AnalyticsStore ----

func (s *Store) RawLeadPlatforms(ctx context.Context) ([]store.RawPlatformRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, COALESCE(ls.platform_type, '')
		FROM raw_leads r LEFT JOIN lead_sources ls ON ls.id = r.source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("raw lead platforms: %w", err)
	}
	defer rows.Close()

	var out []store.RawPlatformRow
	for rows.Next() {
		var row store.RawPlatformRow
		if err := rows.Scan(&row.RawLeadID, &row.Platform); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) QualifiedLeadPlatforms(ctx context.Context) ([]store.QualifiedPlatformRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, COALESCE(ls.platform_type, '')
		FROM qualified_leads q
		JOIN raw_leads r ON r.id = q.raw_lead_id
		LEFT JOIN lead_sources ls ON ls.id = r.source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("qualified lead platforms: %w", err)
	}
	defer rows.Close()

	var out []store.QualifiedPlatformRow
	for rows.Next() {
		var row store.QualifiedPlatformRow
		if err := rows.Scan(&row.QualifiedLeadID, &row.Platform); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) DeliveryRows(ctx context.Context) ([]store.DeliveryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.business_client_id, d.qualified_lead_id, d.delivery_method, d.opened_status,
			COALESCE(ls.platform_type, ''), LOWER(q.email), LOWER(q.phone)
		FROM delivered_leads d
		JOIN qualified_leads q ON q.id = d.qualified_lead_id
		JOIN raw_leads r ON r.id = q.raw_lead_id
		LEFT JOIN lead_sources ls ON ls.id = r.source_id
	`)
	if err != nil {
		return nil, fmt.Errorf("delivery rows: %w", err)
	}
	defer rows.Close()

	var out []store.DeliveryRow
	for rows.Next() {
		var row store.DeliveryRow
		if err := rows.Scan(&row.ClientID, &row.QualifiedLeadID, &row.Method, &row.Opened, &row.Platform, &row.Email, &row.Phone); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) Bounces(ctx context.Context) ([]*domain.Bounce, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, method, target, reason, created_at FROM bounces ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list bounces: %w", err)
	}
	defer rows.Close()

	var out []*domain.Bounce
	for rows.Next() {
		var b domain.Bounce
		if err := rows.Scan(&b.ID, &b.Method, &b.Target, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

var _ store.Store = (*Store)(nil)
