package store

import (
	"context"
	"time"

	"github.com/contractlink/contract-hub/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Category model.Category `json:"category,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for leads, quotas, enrichment
// runs, and notifications.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	UpsertLeads(ctx context.Context, leads []model.Lead) (int64, error)
	LeadsMissingSourceURL(ctx context.Context, limit int) ([]model.Lead, error)
	FillSourceURL(ctx context.Context, id int64, url string) (bool, error)

	// Users and quotas
	SetUserTier(ctx context.Context, userID string, tier model.Tier) error
	GetUser(ctx context.Context, userID string) (*model.User, error)
	GetQuota(ctx context.Context, userID string) (int, error)
	RecordView(ctx context.Context, userID string, leadID int64, limit int) (allowed bool, remaining int, err error)
	ResetQuota(ctx context.Context, userID string) error

	// Saved leads
	SaveLead(ctx context.Context, userID string, leadID int64) error
	ActiveSaversOf(ctx context.Context, leadID int64) ([]string, error)

	// Enrichment runs
	StartRun(ctx context.Context, trigger model.RunTrigger, batchSize int) (int64, error)
	CompleteRun(ctx context.Context, runID int64, results []model.LeadOutcome) error
	FailRun(ctx context.Context, runID int64, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]model.EnrichmentRun, error)

	// Notifications
	AddNotification(ctx context.Context, n model.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error

	// Search cache
	GetCachedSearch(ctx context.Context, queryHash string) ([]byte, error)
	SetCachedSearch(ctx context.Context, queryHash string, result []byte, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
