// Package gate decides whether a user may open the full detail view of a
// lead, enforcing the free-tier view allowance.
package gate

import (
	"context"

	"go.uber.org/zap"

	"github.com/contractlink/contract-hub/internal/model"
)

// Outcome is the access decision for a lead detail request.
type Outcome string

const (
	// Granted allows the full detail view.
	Granted Outcome = "granted"
	// RequiresLogin tells an anonymous visitor to sign in first.
	RequiresLogin Outcome = "requires_login"
	// Denied means the free allowance is exhausted (or the check failed).
	Denied Outcome = "denied"
)

// Decision carries the outcome plus quota context for the response.
type Decision struct {
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
	Remaining int     `json:"remaining"`
	Unlimited bool    `json:"unlimited,omitempty"`
}

// QuotaStore is the slice of persistence the gate needs.
type QuotaStore interface {
	RecordView(ctx context.Context, userID string, leadID int64, limit int) (allowed bool, remaining int, err error)
	GetQuota(ctx context.Context, userID string) (int, error)
}

// Gate checks lead access per user tier.
type Gate struct {
	quota QuotaStore
	limit int
}

// New creates a Gate with the given free-tier view limit.
func New(quota QuotaStore, limit int) *Gate {
	if limit <= 0 {
		limit = 3
	}
	return &Gate{quota: quota, limit: limit}
}

// Check decides access for user on leadID. Viewing a lead the user already
// viewed never consumes allowance. A storage failure denies access rather
// than leaking a free view.
func (g *Gate) Check(ctx context.Context, user model.User, leadID int64) Decision {
	if user.Tier.Unlimited() {
		return Decision{Outcome: Granted, Unlimited: true}
	}

	if user.ID == "" || user.Tier == model.TierAnonymous {
		return Decision{
			Outcome: RequiresLogin,
			Reason:  "sign in to view lead details",
		}
	}

	allowed, remaining, err := g.quota.RecordView(ctx, user.ID, leadID, g.limit)
	if err != nil {
		zap.L().Error("gate: quota check failed",
			zap.String("user_id", user.ID),
			zap.Int64("lead_id", leadID),
			zap.Error(err),
		)
		return Decision{
			Outcome: Denied,
			Reason:  "unable to verify view allowance",
		}
	}

	if !allowed {
		return Decision{
			Outcome: Denied,
			Reason:  "free view limit reached",
		}
	}

	return Decision{Outcome: Granted, Remaining: remaining}
}

// Status reports the user's quota without consuming a view.
func (g *Gate) Status(ctx context.Context, user model.User) (model.Quota, error) {
	q := model.Quota{UserID: user.ID, Limit: g.limit}
	if user.Tier.Unlimited() {
		return q, nil
	}
	used, err := g.quota.GetQuota(ctx, user.ID)
	if err != nil {
		return q, err
	}
	q.ViewsUsed = used
	return q, nil
}

// Limit returns the configured free-tier view limit.
func (g *Gate) Limit() int {
	return g.limit
}
