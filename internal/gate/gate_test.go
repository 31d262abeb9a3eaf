package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractlink/contract-hub/internal/model"
)

type fakeQuota struct {
	allowed   bool
	remaining int
	used      int
	err       error
	calls     int
}

func (f *fakeQuota) RecordView(ctx context.Context, userID string, leadID int64, limit int) (bool, int, error) {
	f.calls++
	return f.allowed, f.remaining, f.err
}

func (f *fakeQuota) GetQuota(ctx context.Context, userID string) (int, error) {
	return f.used, f.err
}

func TestCheck_PaidAndAdminBypassQuota(t *testing.T) {
	q := &fakeQuota{}
	g := New(q, 3)

	for _, tier := range []model.Tier{model.TierPaid, model.TierAdmin} {
		d := g.Check(context.Background(), model.User{ID: "u1", Tier: tier}, 7)
		assert.Equal(t, Granted, d.Outcome, "tier %s", tier)
		assert.True(t, d.Unlimited)
	}
	assert.Zero(t, q.calls, "unlimited tiers must not touch the quota store")
}

func TestCheck_AnonymousRequiresLogin(t *testing.T) {
	q := &fakeQuota{}
	g := New(q, 3)

	d := g.Check(context.Background(), model.User{Tier: model.TierAnonymous}, 7)
	assert.Equal(t, RequiresLogin, d.Outcome)

	// A free-tier user without an id is treated the same way.
	d = g.Check(context.Background(), model.User{Tier: model.TierFree}, 7)
	assert.Equal(t, RequiresLogin, d.Outcome)
	assert.Zero(t, q.calls)
}

func TestCheck_FreeTierConsumesView(t *testing.T) {
	q := &fakeQuota{allowed: true, remaining: 2}
	g := New(q, 3)

	d := g.Check(context.Background(), model.User{ID: "u1", Tier: model.TierFree}, 7)
	assert.Equal(t, Granted, d.Outcome)
	assert.Equal(t, 2, d.Remaining)
	assert.Equal(t, 1, q.calls)
}

func TestCheck_FreeTierDeniedAtLimit(t *testing.T) {
	q := &fakeQuota{allowed: false}
	g := New(q, 3)

	d := g.Check(context.Background(), model.User{ID: "u1", Tier: model.TierFree}, 7)
	assert.Equal(t, Denied, d.Outcome)
	assert.NotEmpty(t, d.Reason)
}

func TestCheck_StorageErrorFailsClosed(t *testing.T) {
	q := &fakeQuota{err: errors.New("connection refused")}
	g := New(q, 3)

	d := g.Check(context.Background(), model.User{ID: "u1", Tier: model.TierFree}, 7)
	assert.Equal(t, Denied, d.Outcome)
}

func TestStatus(t *testing.T) {
	q := &fakeQuota{used: 2}
	g := New(q, 3)

	status, err := g.Status(context.Background(), model.User{ID: "u1", Tier: model.TierFree})
	require.NoError(t, err)
	assert.Equal(t, 2, status.ViewsUsed)
	assert.Equal(t, 3, status.Limit)
	assert.Equal(t, 1, status.Remaining())

	// Unlimited tiers report a clean slate without hitting storage.
	status, err = g.Status(context.Background(), model.User{ID: "u2", Tier: model.TierAdmin})
	require.NoError(t, err)
	assert.Zero(t, status.ViewsUsed)
}

func TestNew_DefaultLimit(t *testing.T) {
	g := New(&fakeQuota{}, 0)
	assert.Equal(t, 3, g.Limit())
}
