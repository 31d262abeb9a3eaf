package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractlink/contract-hub/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestRecordView_ConsumesQuota(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO user_quota`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT q\.views_used, EXISTS`).
		WithArgs("user-1", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"views_used", "exists"}).AddRow(0, false))
	mock.ExpectQuery(`UPDATE user_quota SET views_used = views_used \+ 1`).
		WithArgs("user-1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"views_used"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO lead_views`).
		WithArgs("user-1", int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	allowed, remaining, err := s.RecordView(context.Background(), "user-1", 7, 3)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordView_RepeatViewIsFree(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO user_quota`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT q\.views_used, EXISTS`).
		WithArgs("user-1", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"views_used", "exists"}).AddRow(3, true))

	// Already viewed: allowed even at the limit, no counter update.
	allowed, remaining, err := s.RecordView(context.Background(), "user-1", 7, 3)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordView_DeniedAtLimit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO user_quota`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT q\.views_used, EXISTS`).
		WithArgs("user-1", int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"views_used", "exists"}).AddRow(3, false))
	// The guarded UPDATE matches no row once views_used reached the limit.
	mock.ExpectQuery(`UPDATE user_quota SET views_used = views_used \+ 1`).
		WithArgs("user-1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"views_used"}))

	allowed, remaining, err := s.RecordView(context.Background(), "user-1", 9, 3)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordView_StorageErrorPropagates(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO user_quota`).
		WithArgs("user-1").
		WillReturnError(assert.AnError)

	allowed, _, err := s.RecordView(context.Background(), "user-1", 7, 3)
	require.Error(t, err)
	assert.False(t, allowed)
}

func TestFillSourceURL_NullOnly(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE leads SET source_url`).
		WithArgs("https://example.gov/rfp/1", "ai-generated", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	filled, err := s.FillSourceURL(context.Background(), 42, "https://example.gov/rfp/1")
	require.NoError(t, err)
	assert.True(t, filled)
}

func TestFillSourceURL_AlreadySet(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE leads SET source_url`).
		WithArgs("https://example.gov/rfp/1", "ai-generated", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	filled, err := s.FillSourceURL(context.Background(), 42, "https://example.gov/rfp/1")
	require.NoError(t, err)
	assert.False(t, filled)
}

func TestGetLead_NotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .+ FROM leads WHERE id`).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	lead, err := s.GetLead(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestGetCachedSearch_MissReturnsNil(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT result FROM search_cache`).
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows([]string{"result"}))

	result, err := s.GetCachedSearch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSetCachedSearch_StoresRawURL(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO search_cache`).
		WithArgs("abc123", []byte("https://sam.gov/opp/123"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedSearch(context.Background(), "abc123", []byte("https://sam.gov/opp/123"), time.Hour)
	require.NoError(t, err)

	// The cached value is a bare URL, not JSON; the column must stay TEXT.
	assert.Contains(t, postgresMigration, "result     TEXT NOT NULL")
}

func TestGetCachedSearch_Hit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT result FROM search_cache`).
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows([]string{"result"}).AddRow([]byte("https://sam.gov/opp/123")))

	result, err := s.GetCachedSearch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://sam.gov/opp/123", string(result))
}

func TestCompleteRun_TalliesOutcomes(t *testing.T) {
	s, mock := newMockStore(t)

	results := []model.LeadOutcome{
		{LeadID: 1, Outcome: model.OutcomeFilled},
		{LeadID: 2, Outcome: model.OutcomeFilled},
		{LeadID: 3, Outcome: model.OutcomeSkipped, Detail: "unavailable"},
		{LeadID: 4, Outcome: model.OutcomeFailed, Detail: "timeout"},
	}

	mock.ExpectExec(`UPDATE enrichment_runs`).
		WithArgs("complete", 2, 1, 1, pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), 5, results)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun_MissingRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE enrichment_runs`).
		WithArgs("complete", 0, 0, 0, pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), 404, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}
