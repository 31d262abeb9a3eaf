package model

import "time"

// RunTrigger identifies what started an enrichment run.
type RunTrigger string

const (
	TriggerDaily  RunTrigger = "daily"
	TriggerImport RunTrigger = "import"
	TriggerManual RunTrigger = "manual"
)

// RunStatus is the lifecycle state of an enrichment run record.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Outcome is the per-lead result within an enrichment run.
type Outcome string

const (
	OutcomeFilled  Outcome = "filled"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// LeadOutcome records what happened to a single lead in a run.
type LeadOutcome struct {
	LeadID  int64   `json:"lead_id"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// EnrichmentRun is an append-only audit record of one scheduler run.
// Results are ordered in selection (processing) order.
type EnrichmentRun struct {
	ID          int64         `json:"id"`
	Trigger     RunTrigger    `json:"trigger"`
	Status      RunStatus     `json:"status"`
	BatchSize   int           `json:"batch_size"`
	Filled      int           `json:"filled"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Results     []LeadOutcome `json:"results,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Tally recomputes the filled/skipped/failed counters from Results.
func (r *EnrichmentRun) Tally() {
	r.Filled, r.Skipped, r.Failed = 0, 0, 0
	for _, o := range r.Results {
		switch o.Outcome {
		case OutcomeFilled:
			r.Filled++
		case OutcomeSkipped:
			r.Skipped++
		case OutcomeFailed:
			r.Failed++
		}
	}
}
