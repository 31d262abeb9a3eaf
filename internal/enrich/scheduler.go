package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/contractlink/contract-hub/internal/model"
	"github.com/contractlink/contract-hub/internal/notify"
)

// ErrRunInProgress is returned when a trigger fires while a run is active.
// Triggers are not queued; the next scheduled run picks up the backlog.
var ErrRunInProgress = eris.New("enrich: run already in progress")

// LeadStore is the persistence slice the scheduler needs.
type LeadStore interface {
	LeadsMissingSourceURL(ctx context.Context, limit int) ([]model.Lead, error)
	FillSourceURL(ctx context.Context, id int64, url string) (bool, error)
	ActiveSaversOf(ctx context.Context, leadID int64) ([]string, error)
	StartRun(ctx context.Context, trigger model.RunTrigger, batchSize int) (int64, error)
	CompleteRun(ctx context.Context, runID int64, results []model.LeadOutcome) error
	FailRun(ctx context.Context, runID int64, errMsg string) error
}

// Lookuper resolves one lead's posting URL.
type Lookuper interface {
	Lookup(ctx context.Context, lead model.Lead) Result
}

// SchedulerConfig carries the batch and pacing knobs.
type SchedulerConfig struct {
	DailyBatchSize  int
	ImportBatchSize int
	Pause           time.Duration
	RunBudget       time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.DailyBatchSize <= 0 {
		c.DailyBatchSize = 20
	}
	if c.ImportBatchSize <= 0 {
		c.ImportBatchSize = 10
	}
	if c.Pause <= 0 {
		c.Pause = 500 * time.Millisecond
	}
	if c.RunBudget <= 0 {
		c.RunBudget = 5 * time.Minute
	}
	return c
}

// Scheduler runs bounded enrichment batches over leads missing their
// source URL. Daily, post-import, and manual triggers all funnel through
// Run; at most one run is active at a time.
type Scheduler struct {
	store   LeadStore
	client  Lookuper
	sink    notify.Sink
	cfg     SchedulerConfig
	running atomic.Bool
}

// NewScheduler creates a Scheduler. sink may be nil to disable notifications.
func NewScheduler(store LeadStore, client Lookuper, sink notify.Sink, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{store: store, client: client, sink: sink, cfg: cfg.withDefaults()}
}

// Run executes one enrichment batch. batchSize <= 0 selects the configured
// size for the trigger. The returned run is the recorded summary.
func (s *Scheduler) Run(ctx context.Context, trigger model.RunTrigger, batchSize int) (*model.EnrichmentRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	if batchSize <= 0 {
		if trigger == model.TriggerImport {
			batchSize = s.cfg.ImportBatchSize
		} else {
			batchSize = s.cfg.DailyBatchSize
		}
	}

	startedAt := time.Now().UTC()
	runID, err := s.store.StartRun(ctx, trigger, batchSize)
	if err != nil {
		// The run proceeds without its record; enrichment matters more
		// than bookkeeping.
		zap.L().Error("enrich: start run record failed", zap.Error(err))
		runID = 0
	}

	zap.L().Info("enrich: run started",
		zap.Int64("run_id", runID),
		zap.String("trigger", string(trigger)),
		zap.Int("batch_size", batchSize),
	)

	budgetCtx, cancel := context.WithTimeout(ctx, s.cfg.RunBudget)
	defer cancel()

	leads, err := s.store.LeadsMissingSourceURL(budgetCtx, batchSize)
	if err != nil {
		err = eris.Wrap(err, "enrich: select leads")
		s.failRun(ctx, runID, err)
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(s.cfg.Pause), 1)
	results := make([]model.LeadOutcome, 0, len(leads))

	for _, lead := range leads {
		if waitErr := limiter.Wait(budgetCtx); waitErr != nil {
			results = append(results, model.LeadOutcome{
				LeadID:  lead.ID,
				Outcome: model.OutcomeSkipped,
				Detail:  "run budget exhausted",
			})
			continue
		}
		// The budget gates selection only; an in-flight lookup finishes
		// under the client's own timeout.
		results = append(results, s.processLead(ctx, lead))
	}

	run := &model.EnrichmentRun{
		ID:        runID,
		Trigger:   trigger,
		Status:    model.RunStatusComplete,
		BatchSize: batchSize,
		Results:   results,
		StartedAt: startedAt,
	}
	run.Tally()
	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt

	if runID != 0 {
		// Record completion on the parent context so a budget timeout
		// cannot lose the run record.
		if err := s.store.CompleteRun(ctx, runID, results); err != nil {
			zap.L().Error("enrich: complete run record failed",
				zap.Int64("run_id", runID),
				zap.Error(err),
			)
		}
	}

	zap.L().Info("enrich: run finished",
		zap.Int64("run_id", runID),
		zap.Int("filled", run.Filled),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
	)
	return run, nil
}

// processLead resolves and persists one lead. A panic in a strategy or
// client is contained here as a failed outcome.
func (s *Scheduler) processLead(ctx context.Context, lead model.Lead) (outcome model.LeadOutcome) {
	outcome = model.LeadOutcome{LeadID: lead.ID}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("enrich: panic while processing lead",
				zap.Int64("lead_id", lead.ID),
				zap.Any("panic", r),
			)
			outcome.Outcome = model.OutcomeFailed
			outcome.Detail = fmt.Sprintf("panic: %v", r)
		}
	}()

	res := s.client.Lookup(ctx, lead)
	switch res.Status {
	case StatusFilled:
		written, err := s.store.FillSourceURL(ctx, lead.ID, res.URL)
		if err != nil {
			outcome.Outcome = model.OutcomeFailed
			outcome.Detail = err.Error()
			return
		}
		if !written {
			// Someone filled it between selection and persist.
			outcome.Outcome = model.OutcomeSkipped
			outcome.Detail = "source url already set"
			return
		}
		outcome.Outcome = model.OutcomeFilled
		s.notifySavers(ctx, lead)
	case StatusUnavailable:
		outcome.Outcome = model.OutcomeSkipped
		outcome.Detail = "no source found"
	case StatusInvalid:
		outcome.Outcome = model.OutcomeSkipped
		outcome.Detail = "invalid candidate: " + res.Detail
	default:
		outcome.Outcome = model.OutcomeFailed
		outcome.Detail = res.Detail
	}
	return
}

// notifySavers tells paid and admin savers their lead gained a link.
// Best-effort: failures are logged, never propagated.
func (s *Scheduler) notifySavers(ctx context.Context, lead model.Lead) {
	if s.sink == nil {
		return
	}

	savers, err := s.store.ActiveSaversOf(ctx, lead.ID)
	if err != nil {
		zap.L().Warn("enrich: list savers failed", zap.Int64("lead_id", lead.ID), zap.Error(err))
		return
	}
	for _, userID := range savers {
		if err := s.sink.Notify(ctx, notify.LeadFilled(userID, lead)); err != nil {
			zap.L().Warn("enrich: notify saver failed",
				zap.String("user_id", userID),
				zap.Int64("lead_id", lead.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *Scheduler) failRun(ctx context.Context, runID int64, runErr error) {
	if runID == 0 {
		return
	}
	if err := s.store.FailRun(ctx, runID, runErr.Error()); err != nil {
		zap.L().Error("enrich: fail run record failed", zap.Int64("run_id", runID), zap.Error(err))
	}
}
