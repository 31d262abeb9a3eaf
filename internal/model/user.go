package model

// Tier is a user's subscription tier.
type Tier string

const (
	TierAnonymous Tier = "anonymous"
	TierFree      Tier = "free"
	TierPaid      Tier = "paid"
	TierAdmin     Tier = "admin"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierAnonymous, TierFree, TierPaid, TierAdmin:
		return true
	}
	return false
}

// Unlimited reports whether the tier bypasses free-view quota accounting.
func (t Tier) Unlimited() bool {
	return t == TierPaid || t == TierAdmin
}

// User identifies a requester and their tier. ID may be an account id or a
// session-scoped anonymous id; auth itself lives outside this service.
type User struct {
	ID   string `json:"id"`
	Tier Tier   `json:"tier"`
}

// Quota is a snapshot of a free-tier user's view usage.
type Quota struct {
	UserID    string `json:"user_id"`
	ViewsUsed int    `json:"views_used"`
	Limit     int    `json:"limit"`
}

// Remaining returns the number of free views left, never negative.
func (q Quota) Remaining() int {
	if q.ViewsUsed >= q.Limit {
		return 0
	}
	return q.Limit - q.ViewsUsed
}
