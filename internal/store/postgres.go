package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/db"
	"github.com/contractlink/contract-hub/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const leadColumns = `id, external_id, category, title, agency, location, description, contact_email, source_url, data_source, posted_at, created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot request-path operations.
var preparedStatements = map[string]string{
	"get_lead":         `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`,
	"get_quota":        `SELECT views_used FROM user_quota WHERE user_id = $1`,
	"view_seen":        `SELECT q.views_used, EXISTS(SELECT 1 FROM lead_views v WHERE v.user_id = $1 AND v.lead_id = $2) FROM user_quota q WHERE q.user_id = $1`,
	"consume_view":     `UPDATE user_quota SET views_used = views_used + 1, updated_at = now() WHERE user_id = $1 AND views_used < $2 RETURNING views_used`,
	"insert_lead_view": `INSERT INTO lead_views (user_id, lead_id, viewed_at) VALUES ($1, $2, now()) ON CONFLICT (user_id, lead_id) DO NOTHING`,
	"fill_source_url":  `UPDATE leads SET source_url = $1, data_source = $2, updated_at = now() WHERE id = $3 AND source_url IS NULL`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., the bulk feed importer).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            BIGSERIAL PRIMARY KEY,
	external_id   TEXT NOT NULL,
	category      TEXT NOT NULL,
	title         TEXT NOT NULL,
	agency        TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	contact_email TEXT,
	source_url    TEXT,
	data_source   TEXT NOT NULL DEFAULT 'api',
	posted_at     TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (category, external_id)
);

CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_missing_url ON leads(created_at) WHERE source_url IS NULL;

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	tier       TEXT NOT NULL DEFAULT 'free',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_quota (
	user_id    TEXT PRIMARY KEY,
	views_used INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS lead_views (
	user_id   TEXT NOT NULL,
	lead_id   BIGINT NOT NULL REFERENCES leads(id),
	viewed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, lead_id)
);

CREATE TABLE IF NOT EXISTS saved_leads (
	user_id  TEXT NOT NULL,
	lead_id  BIGINT NOT NULL REFERENCES leads(id),
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, lead_id)
);

CREATE INDEX IF NOT EXISTS idx_saved_leads_lead ON saved_leads(lead_id);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id           BIGSERIAL PRIMARY KEY,
	trigger_kind TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	batch_size   INTEGER NOT NULL,
	filled       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	results      JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	link       TEXT NOT NULL DEFAULT '',
	is_read    BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS search_cache (
	query_hash TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Leads

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	if lead.DataSource == "" {
		lead.DataSource = model.DataSourceManual
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO leads (external_id, category, title, agency, location, description, contact_email, source_url, data_source, posted_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		lead.ExternalID, string(lead.Category), lead.Title, lead.Agency, lead.Location,
		lead.Description, lead.ContactEmail, lead.SourceURL, string(lead.DataSource),
		lead.PostedAt, now, now,
	).Scan(&lead.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}

	lead.CreatedAt = now
	lead.UpdatedAt = now
	return &lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)

	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get lead %d", id)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, string(filter.Category))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

// UpsertLeads bulk-upserts a feed batch keyed on (category, external_id).
// Protected fields (contact_email, source_url) are set on first insert only;
// re-imports never clobber values an admin or the enrichment path has filled.
func (s *PostgresStore) UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, len(leads))
	for i, l := range leads {
		ds := l.DataSource
		if ds == "" {
			ds = model.DataSourceAPI
		}
		rows[i] = []any{
			l.ExternalID, string(l.Category), l.Title, l.Agency, l.Location,
			l.Description, l.ContactEmail, l.SourceURL, string(ds), l.PostedAt, now, now,
		}
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table: "leads",
		Columns: []string{
			"external_id", "category", "title", "agency", "location",
			"description", "contact_email", "source_url", "data_source",
			"posted_at", "created_at", "updated_at",
		},
		ConflictKeys: []string{"category", "external_id"},
		UpdateCols:   []string{"title", "agency", "location", "description", "posted_at", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert leads")
	}
	return n, nil
}

func (s *PostgresStore) LeadsMissingSourceURL(ctx context.Context, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 20
	}

	// Oldest-first so older records are never starved by new imports.
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE source_url IS NULL
		 ORDER BY created_at ASC, id ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leads missing source url")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: leads missing source url iterate")
}

// FillSourceURL sets the lead's source_url only if it is still null, so a
// concurrent manual edit or overlapping run wins and this becomes a no-op.
// Returns true when the value was written.
func (s *PostgresStore) FillSourceURL(ctx context.Context, id int64, url string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET source_url = $1, data_source = $2, updated_at = now()
		 WHERE id = $3 AND source_url IS NULL`,
		url, string(model.DataSourceAI), id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: fill source url %d", id)
	}
	return tag.RowsAffected() == 1, nil
}

// Users and quotas

func (s *PostgresStore) SetUserTier(ctx context.Context, userID string, tier model.Tier) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, tier, created_at, updated_at) VALUES ($1, $2, now(), now())
		 ON CONFLICT (id) DO UPDATE SET tier = $2, updated_at = now()`,
		userID, string(tier),
	)
	return eris.Wrapf(err, "postgres: set user tier %s", userID)
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	var tier string
	err := s.pool.QueryRow(ctx,
		`SELECT id, tier FROM users WHERE id = $1`, userID,
	).Scan(&u.ID, &tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get user %s", userID)
	}
	u.Tier = model.Tier(tier)
	return &u, nil
}

func (s *PostgresStore) GetQuota(ctx context.Context, userID string) (int, error) {
	var used int
	err := s.pool.QueryRow(ctx,
		`SELECT views_used FROM user_quota WHERE user_id = $1`, userID,
	).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, eris.Wrapf(err, "postgres: get quota %s", userID)
	}
	return used, nil
}

// RecordView consumes one free view for (userID, leadID), idempotently.
// Re-viewing an already-counted lead is always allowed and consumes nothing.
// The counter row is advanced with a compare-and-set bounded by limit, so a
// restart or an overlapping request can never grant views past the limit.
func (s *PostgresStore) RecordView(ctx context.Context, userID string, leadID int64, limit int) (bool, int, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_quota (user_id, views_used, updated_at) VALUES ($1, 0, now())
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "postgres: init quota %s", userID)
	}

	var used int
	var seen bool
	err = s.pool.QueryRow(ctx,
		`SELECT q.views_used, EXISTS(SELECT 1 FROM lead_views v WHERE v.user_id = $1 AND v.lead_id = $2)
		 FROM user_quota q WHERE q.user_id = $1`,
		userID, leadID,
	).Scan(&used, &seen)
	if err != nil {
		return false, 0, eris.Wrapf(err, "postgres: check view %s", userID)
	}

	if seen {
		return true, remaining(limit, used), nil
	}

	// Counter first, membership second: a crash in between over-counts
	// rather than under-counts.
	err = s.pool.QueryRow(ctx,
		`UPDATE user_quota SET views_used = views_used + 1, updated_at = now()
		 WHERE user_id = $1 AND views_used < $2
		 RETURNING views_used`,
		userID, limit,
	).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, nil
		}
		return false, 0, eris.Wrapf(err, "postgres: consume view %s", userID)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO lead_views (user_id, lead_id, viewed_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id, lead_id) DO NOTHING`,
		userID, leadID,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "postgres: record lead view %s", userID)
	}

	return true, remaining(limit, used), nil
}

func (s *PostgresStore) ResetQuota(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE user_quota SET views_used = 0, updated_at = now() WHERE user_id = $1`,
		userID,
	); err != nil {
		return eris.Wrapf(err, "postgres: reset quota %s", userID)
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM lead_views WHERE user_id = $1`, userID,
	); err != nil {
		return eris.Wrapf(err, "postgres: clear lead views %s", userID)
	}
	return nil
}

// Saved leads

func (s *PostgresStore) SaveLead(ctx context.Context, userID string, leadID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_leads (user_id, lead_id, saved_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id, lead_id) DO NOTHING`,
		userID, leadID,
	)
	return eris.Wrapf(err, "postgres: save lead %d", leadID)
}

// ActiveSaversOf returns ids of paid/admin users who saved the lead; they
// are the audience for fill notifications.
func (s *PostgresStore) ActiveSaversOf(ctx context.Context, leadID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.user_id FROM saved_leads s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.lead_id = $1 AND u.tier IN ('paid', 'admin')
		 ORDER BY s.user_id`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: savers of lead %d", leadID)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan saver")
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, eris.Wrap(rows.Err(), "postgres: savers iterate")
}

// Enrichment runs

func (s *PostgresStore) StartRun(ctx context.Context, trigger model.RunTrigger, batchSize int) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO enrichment_runs (trigger_kind, status, batch_size, started_at)
		 VALUES ($1, $2, $3, now()) RETURNING id`,
		string(trigger), string(model.RunStatusRunning), batchSize,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: start run (%s)", trigger)
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID int64, results []model.LeadOutcome) error {
	run := model.EnrichmentRun{Results: results}
	run.Tally()

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal run results")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE enrichment_runs
		 SET status = $1, filled = $2, skipped = $3, failed = $4, results = $5, completed_at = now()
		 WHERE id = $6`,
		string(model.RunStatusComplete), run.Filled, run.Skipped, run.Failed, resultsJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %d", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %d", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID int64, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE enrichment_runs SET status = $1, error = $2, completed_at = now() WHERE id = $3`,
		string(model.RunStatusFailed), errMsg, runID,
	)
	return eris.Wrapf(err, "postgres: fail run %d", runID)
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.EnrichmentRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, trigger_kind, status, batch_size, filled, skipped, failed, results, error, started_at, completed_at
		 FROM enrichment_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.EnrichmentRun
	for rows.Next() {
		var r model.EnrichmentRun
		var trigger, status string
		var resultsJSON []byte
		var errStr *string
		if err := rows.Scan(&r.ID, &trigger, &status, &r.BatchSize, &r.Filled, &r.Skipped, &r.Failed,
			&resultsJSON, &errStr, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Trigger = model.RunTrigger(trigger)
		r.Status = model.RunStatus(status)
		if errStr != nil {
			r.Error = *errStr
		}
		if resultsJSON != nil {
			if err := json.Unmarshal(resultsJSON, &r.Results); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal run results")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// Notifications

func (s *PostgresStore) AddNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, body, link, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, false, now())`,
		n.ID, n.UserID, n.Title, n.Body, n.Link,
	)
	return eris.Wrapf(err, "postgres: add notification for %s", n.UserID)
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, title, body, link, is_read, created_at FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = false`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list notifications")
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan notification")
		}
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list notifications iterate")
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark notification read %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("notification not found: %s", id)
	}
	return nil
}

// Search cache

func (s *PostgresStore) GetCachedSearch(ctx context.Context, queryHash string) ([]byte, error) {
	var result []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM search_cache WHERE query_hash = $1 AND expires_at > now()`,
		queryHash,
	).Scan(&result)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached search")
	}
	return result, nil
}

func (s *PostgresStore) SetCachedSearch(ctx context.Context, queryHash string, result []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_cache (query_hash, result, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (query_hash) DO UPDATE SET result = $2, cached_at = $3, expires_at = $4`,
		queryHash, result, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached search")
}

// helpers

func remaining(limit, used int) int {
	if used >= limit {
		return 0
	}
	return limit - used
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var category, dataSource string
	err := row.Scan(&l.ID, &l.ExternalID, &category, &l.Title, &l.Agency, &l.Location,
		&l.Description, &l.ContactEmail, &l.SourceURL, &dataSource,
		&l.PostedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Category = model.Category(category)
	l.DataSource = model.DataSource(dataSource)
	return &l, nil
}
