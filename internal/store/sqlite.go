package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/contractlink/contract-hub/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and the behavioral test suite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id   TEXT NOT NULL,
	category      TEXT NOT NULL,
	title         TEXT NOT NULL,
	agency        TEXT NOT NULL DEFAULT '',
	location      TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	contact_email TEXT,
	source_url    TEXT,
	data_source   TEXT NOT NULL DEFAULT 'api',
	posted_at     DATETIME,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	UNIQUE (category, external_id)
);

CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_missing_url ON leads(created_at) WHERE source_url IS NULL;

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	tier       TEXT NOT NULL DEFAULT 'free',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_quota (
	user_id    TEXT PRIMARY KEY,
	views_used INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS lead_views (
	user_id   TEXT NOT NULL,
	lead_id   INTEGER NOT NULL REFERENCES leads(id),
	viewed_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, lead_id)
);

CREATE TABLE IF NOT EXISTS saved_leads (
	user_id  TEXT NOT NULL,
	lead_id  INTEGER NOT NULL REFERENCES leads(id),
	saved_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, lead_id)
);

CREATE INDEX IF NOT EXISTS idx_saved_leads_lead ON saved_leads(lead_id);

CREATE TABLE IF NOT EXISTS enrichment_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	trigger_kind TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	batch_size   INTEGER NOT NULL,
	filled       INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	results      TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	body       TEXT NOT NULL,
	link       TEXT NOT NULL DEFAULT '',
	is_read    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS search_cache (
	query_hash TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Leads

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	now := time.Now().UTC()
	if lead.DataSource == "" {
		lead.DataSource = model.DataSourceManual
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (external_id, category, title, agency, location, description, contact_email, source_url, data_source, posted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ExternalID, string(lead.Category), lead.Title, lead.Agency, lead.Location,
		lead.Description, nullStr(lead.ContactEmail), nullStr(lead.SourceURL),
		string(lead.DataSource), nullTime(lead.PostedAt), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	lead.ID = id
	lead.CreatedAt = now
	lead.UpdatedAt = now
	return &lead, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id int64) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)

	lead, err := scanSQLiteLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %d", id)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	var n int64
	for _, l := range leads {
		ds := l.DataSource
		if ds == "" {
			ds = model.DataSourceAPI
		}
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO leads (external_id, category, title, agency, location, description, contact_email, source_url, data_source, posted_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (category, external_id) DO UPDATE SET
			   title = excluded.title, agency = excluded.agency, location = excluded.location,
			   description = excluded.description, posted_at = excluded.posted_at, updated_at = excluded.updated_at`,
			l.ExternalID, string(l.Category), l.Title, l.Agency, l.Location,
			l.Description, nullStr(l.ContactEmail), nullStr(l.SourceURL),
			string(ds), nullTime(l.PostedAt), now, now,
		)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: upsert lead %s/%s", l.Category, l.ExternalID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	return n, nil
}

func (s *SQLiteStore) LeadsMissingSourceURL(ctx context.Context, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE source_url IS NULL
		 ORDER BY created_at ASC, id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leads missing source url")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: leads missing source url iterate")
}

func (s *SQLiteStore) FillSourceURL(ctx context.Context, id int64, url string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET source_url = ?, data_source = ?, updated_at = ?
		 WHERE id = ? AND source_url IS NULL`,
		url, string(model.DataSourceAI), time.Now().UTC(), id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: fill source url %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

// Users and quotas

func (s *SQLiteStore) SetUserTier(ctx context.Context, userID string, tier model.Tier) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, tier, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET tier = excluded.tier, updated_at = excluded.updated_at`,
		userID, string(tier), now, now,
	)
	return eris.Wrapf(err, "sqlite: set user tier %s", userID)
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	var tier string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tier FROM users WHERE id = ?`, userID,
	).Scan(&u.ID, &tier)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get user %s", userID)
	}
	u.Tier = model.Tier(tier)
	return &u, nil
}

func (s *SQLiteStore) GetQuota(ctx context.Context, userID string) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT views_used FROM user_quota WHERE user_id = ?`, userID,
	).Scan(&used)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: get quota %s", userID)
	}
	return used, nil
}

func (s *SQLiteStore) RecordView(ctx context.Context, userID string, leadID int64, limit int) (bool, int, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_quota (user_id, views_used, updated_at) VALUES (?, 0, ?)`,
		userID, now,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: init quota %s", userID)
	}

	var used int
	var seen bool
	err = s.db.QueryRowContext(ctx,
		`SELECT q.views_used, EXISTS(SELECT 1 FROM lead_views v WHERE v.user_id = ? AND v.lead_id = ?)
		 FROM user_quota q WHERE q.user_id = ?`,
		userID, leadID, userID,
	).Scan(&used, &seen)
	if err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: check view %s", userID)
	}

	if seen {
		return true, remaining(limit, used), nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE user_quota SET views_used = views_used + 1, updated_at = ?
		 WHERE user_id = ? AND views_used < ?`,
		now, userID, limit,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: consume view %s", userID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return false, 0, nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO lead_views (user_id, lead_id, viewed_at) VALUES (?, ?, ?)`,
		userID, leadID, now,
	)
	if err != nil {
		return false, 0, eris.Wrapf(err, "sqlite: record lead view %s", userID)
	}

	return true, remaining(limit, used+1), nil
}

func (s *SQLiteStore) ResetQuota(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE user_quota SET views_used = 0, updated_at = ? WHERE user_id = ?`,
		time.Now().UTC(), userID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: reset quota %s", userID)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM lead_views WHERE user_id = ?`, userID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: clear lead views %s", userID)
	}
	return nil
}

// Saved leads

func (s *SQLiteStore) SaveLead(ctx context.Context, userID string, leadID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO saved_leads (user_id, lead_id, saved_at) VALUES (?, ?, ?)`,
		userID, leadID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save lead %d", leadID)
}

func (s *SQLiteStore) ActiveSaversOf(ctx context.Context, leadID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.user_id FROM saved_leads s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.lead_id = ? AND u.tier IN ('paid', 'admin')
		 ORDER BY s.user_id`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: savers of lead %d", leadID)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan saver")
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, eris.Wrap(rows.Err(), "sqlite: savers iterate")
}

// Enrichment runs

func (s *SQLiteStore) StartRun(ctx context.Context, trigger model.RunTrigger, batchSize int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO enrichment_runs (trigger_kind, status, batch_size, started_at) VALUES (?, ?, ?, ?)`,
		string(trigger), string(model.RunStatusRunning), batchSize, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: start run (%s)", trigger)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: last insert id")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID int64, results []model.LeadOutcome) error {
	run := model.EnrichmentRun{Results: results}
	run.Tally()

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run results")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE enrichment_runs
		 SET status = ?, filled = ?, skipped = ?, failed = ?, results = ?, completed_at = ?
		 WHERE id = ?`,
		string(model.RunStatusComplete), run.Filled, run.Skipped, run.Failed,
		string(resultsJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %d", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID int64, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE enrichment_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errMsg, time.Now().UTC(), runID,
	)
	return eris.Wrapf(err, "sqlite: fail run %d", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.EnrichmentRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_kind, status, batch_size, filled, skipped, failed, results, error, started_at, completed_at
		 FROM enrichment_runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.EnrichmentRun
	for rows.Next() {
		var r model.EnrichmentRun
		var trigger, status string
		var resultsJSON, errStr sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &trigger, &status, &r.BatchSize, &r.Filled, &r.Skipped, &r.Failed,
			&resultsJSON, &errStr, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Trigger = model.RunTrigger(trigger)
		r.Status = model.RunStatus(status)
		if errStr.Valid {
			r.Error = errStr.String
		}
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		if resultsJSON.Valid && resultsJSON.String != "" {
			if err := json.Unmarshal([]byte(resultsJSON.String), &r.Results); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal run results")
			}
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Notifications

func (s *SQLiteStore) AddNotification(ctx context.Context, n model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, title, body, link, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, n.Title, n.Body, n.Link, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: add notification for %s", n.UserID)
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, title, body, link, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list notifications")
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan notification")
		}
		out = append(out, n)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list notifications iterate")
}

func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark notification read %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("notification not found: %s", id)
	}
	return nil
}

// Search cache

func (s *SQLiteStore) GetCachedSearch(ctx context.Context, queryHash string) ([]byte, error) {
	var result string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM search_cache WHERE query_hash = ? AND expires_at > ?`,
		queryHash, time.Now().UTC(),
	).Scan(&result)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached search")
	}
	return []byte(result), nil
}

func (s *SQLiteStore) SetCachedSearch(ctx context.Context, queryHash string, result []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_cache (query_hash, result, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (query_hash) DO UPDATE SET result = excluded.result, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		queryHash, string(result), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached search")
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func scanSQLiteLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var category, dataSource string
	var contactEmail, sourceURL sql.NullString
	var postedAt sql.NullTime

	err := row.Scan(&l.ID, &l.ExternalID, &category, &l.Title, &l.Agency, &l.Location,
		&l.Description, &contactEmail, &sourceURL, &dataSource,
		&postedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	l.Category = model.Category(category)
	l.DataSource = model.DataSource(dataSource)
	if contactEmail.Valid {
		v := contactEmail.String
		l.ContactEmail = &v
	}
	if sourceURL.Valid {
		v := sourceURL.String
		l.SourceURL = &v
	}
	if postedAt.Valid {
		t := postedAt.Time
		l.PostedAt = &t
	}
	return &l, nil
}
