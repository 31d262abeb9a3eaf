package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractlink/contract-hub/internal/model"
)

type fakeLeadStore struct {
	mu sync.Mutex

	leads       []model.Lead
	selectErr   error
	selectLimit int

	filled     map[int64]string
	fillDenied map[int64]bool
	fillErr    error

	savers map[int64][]string

	startErr  error
	runID     int64
	completed []model.LeadOutcome
	failedMsg string
}

func newFakeLeadStore(leads ...model.Lead) *fakeLeadStore {
	return &fakeLeadStore{
		leads:      leads,
		filled:     map[int64]string{},
		fillDenied: map[int64]bool{},
		savers:     map[int64][]string{},
		runID:      7,
	}
}

func (f *fakeLeadStore) LeadsMissingSourceURL(ctx context.Context, limit int) ([]model.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectLimit = limit
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	if len(f.leads) > limit {
		return f.leads[:limit], nil
	}
	return f.leads, nil
}

func (f *fakeLeadStore) FillSourceURL(ctx context.Context, id int64, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fillErr != nil {
		return false, f.fillErr
	}
	if f.fillDenied[id] {
		return false, nil
	}
	f.filled[id] = url
	return true, nil
}

func (f *fakeLeadStore) ActiveSaversOf(ctx context.Context, leadID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.savers[leadID], nil
}

func (f *fakeLeadStore) StartRun(ctx context.Context, trigger model.RunTrigger, batchSize int) (int64, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	return f.runID, nil
}

func (f *fakeLeadStore) CompleteRun(ctx context.Context, runID int64, results []model.LeadOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = results
	return nil
}

func (f *fakeLeadStore) FailRun(ctx context.Context, runID int64, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedMsg = errMsg
	return nil
}

type fakeLookuper struct {
	results map[int64]Result
	block   chan struct{}
	started chan struct{}
	panicOn int64
}

func (f *fakeLookuper) Lookup(ctx context.Context, lead model.Lead) Result {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.panicOn == lead.ID {
		panic("strategy blew up")
	}
	if res, ok := f.results[lead.ID]; ok {
		return res
	}
	return Result{Status: StatusUnavailable}
}

type recordingSink struct {
	mu    sync.Mutex
	sent  []model.Notification
	fail  bool
}

func (r *recordingSink) Notify(ctx context.Context, n model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("sink down")
	}
	r.sent = append(r.sent, n)
	return nil
}

func fastCfg() SchedulerConfig {
	return SchedulerConfig{
		DailyBatchSize:  20,
		ImportBatchSize: 10,
		Pause:           time.Millisecond,
		RunBudget:       5 * time.Second,
	}
}

func lead(id int64, title string) model.Lead {
	return model.Lead{ID: id, Category: model.CategoryFederal, Title: title}
}

func TestRun_FillsAndNotifiesSavers(t *testing.T) {
	store := newFakeLeadStore(lead(1, "Janitorial"), lead(2, "Paving"))
	store.savers[1] = []string{"paid-1", "admin-1"}

	look := &fakeLookuper{results: map[int64]Result{
		1: {Status: StatusFilled, URL: "https://sam.gov/opp/1"},
		2: {Status: StatusUnavailable},
	}}
	sink := &recordingSink{}

	s := NewScheduler(store, look, sink, fastCfg())
	run, err := s.Run(context.Background(), model.TriggerManual, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Filled)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 0, run.Failed)
	assert.Equal(t, "https://sam.gov/opp/1", store.filled[1])
	assert.Len(t, store.completed, 2)
	assert.Len(t, sink.sent, 2)
}

func TestRun_FailureIsolatedPerLead(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"), lead(2, "b"), lead(3, "c"))
	look := &fakeLookuper{results: map[int64]Result{
		1: {Status: StatusFailed, Detail: "api down"},
		2: {Status: StatusFilled, URL: "https://sam.gov/opp/2"},
		3: {Status: StatusInvalid, Detail: "not a url"},
	}}

	s := NewScheduler(store, look, nil, fastCfg())
	run, err := s.Run(context.Background(), model.TriggerDaily, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Filled)
	assert.Equal(t, 1, run.Skipped)
}

func TestRun_PanicContainedAsFailure(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"), lead(2, "b"))
	look := &fakeLookuper{
		panicOn: 1,
		results: map[int64]Result{2: {Status: StatusFilled, URL: "https://sam.gov/opp/2"}},
	}

	s := NewScheduler(store, look, nil, fastCfg())
	run, err := s.Run(context.Background(), model.TriggerManual, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 1, run.Filled)
	assert.Contains(t, run.Results[0].Detail, "panic")
}

func TestRun_ConcurrentWriteSkipped(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"))
	store.fillDenied[1] = true
	look := &fakeLookuper{results: map[int64]Result{
		1: {Status: StatusFilled, URL: "https://sam.gov/opp/1"},
	}}
	sink := &recordingSink{}

	s := NewScheduler(store, look, sink, fastCfg())
	run, err := s.Run(context.Background(), model.TriggerManual, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, run.Skipped)
	assert.Empty(t, sink.sent, "no notification when the write lost the race")
}

func TestRun_OverlappingTriggerRejected(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"))
	look := &fakeLookuper{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}

	s := NewScheduler(store, look, nil, fastCfg())

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), model.TriggerDaily, 0)
		done <- err
	}()

	<-look.started
	_, err := s.Run(context.Background(), model.TriggerManual, 0)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(look.block)
	require.NoError(t, <-done)
}

func TestRun_BatchSizePerTrigger(t *testing.T) {
	store := newFakeLeadStore()
	s := NewScheduler(store, &fakeLookuper{}, nil, fastCfg())

	_, err := s.Run(context.Background(), model.TriggerImport, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, store.selectLimit)

	_, err = s.Run(context.Background(), model.TriggerDaily, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, store.selectLimit)

	_, err = s.Run(context.Background(), model.TriggerManual, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, store.selectLimit)
}

func TestRun_SelectErrorFailsRun(t *testing.T) {
	store := newFakeLeadStore()
	store.selectErr = errors.New("connection refused")

	s := NewScheduler(store, &fakeLookuper{}, nil, fastCfg())
	_, err := s.Run(context.Background(), model.TriggerDaily, 0)
	require.Error(t, err)
	assert.Contains(t, store.failedMsg, "connection refused")
}

func TestRun_ProceedsWithoutRunRecord(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"))
	store.startErr = errors.New("insert failed")
	look := &fakeLookuper{results: map[int64]Result{
		1: {Status: StatusFilled, URL: "https://sam.gov/opp/1"},
	}}

	s := NewScheduler(store, look, nil, fastCfg())
	run, err := s.Run(context.Background(), model.TriggerManual, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Filled)
	assert.Zero(t, run.ID)
	assert.Nil(t, store.completed, "no record to complete")
}

type slowLookuper struct {
	delay       time.Duration
	interrupted bool
}

func (s *slowLookuper) Lookup(ctx context.Context, lead model.Lead) Result {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		s.interrupted = true
		return Result{Status: StatusFailed, Detail: ctx.Err().Error()}
	}
	return Result{Status: StatusFilled, URL: "https://sam.gov/opp/9"}
}

func TestRun_InFlightLookupOutlivesBudget(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"))
	look := &slowLookuper{delay: 150 * time.Millisecond}

	cfg := fastCfg()
	cfg.RunBudget = 50 * time.Millisecond

	s := NewScheduler(store, look, nil, cfg)
	run, err := s.Run(context.Background(), model.TriggerManual, 0)
	require.NoError(t, err)

	assert.False(t, look.interrupted, "budget expiry must not cancel the lookup in flight")
	assert.Equal(t, 1, run.Filled)
	assert.Equal(t, "https://sam.gov/opp/9", store.filled[1])
}

func TestRun_BudgetExhaustionSkipsRemainder(t *testing.T) {
	store := newFakeLeadStore(lead(1, "a"), lead(2, "b"), lead(3, "c"))
	look := &fakeLookuper{results: map[int64]Result{
		1: {Status: StatusFilled, URL: "https://sam.gov/opp/1"},
	}}

	cfg := fastCfg()
	cfg.Pause = 200 * time.Millisecond
	cfg.RunBudget = 50 * time.Millisecond

	s := NewScheduler(store, look, nil, cfg)
	run, err := s.Run(context.Background(), model.TriggerDaily, 0)
	require.NoError(t, err)

	require.Len(t, run.Results, 3)
	assert.Equal(t, 1, run.Filled)
	assert.Equal(t, 2, run.Skipped)
	for _, r := range run.Results[1:] {
		assert.Equal(t, model.OutcomeSkipped, r.Outcome)
		assert.Equal(t, "run budget exhausted", r.Detail)
	}
}
