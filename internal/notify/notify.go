// Package notify delivers in-app notifications. Delivery is best-effort:
// callers log failures and move on.
package notify

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/contractlink/contract-hub/internal/model"
)

// Sink accepts notifications for delivery.
type Sink interface {
	Notify(ctx context.Context, n model.Notification) error
}

// NotificationStore is the persistence slice the store-backed sink needs.
type NotificationStore interface {
	AddNotification(ctx context.Context, n model.Notification) error
}

// StoreSink persists notifications for in-app display.
type StoreSink struct {
	store NotificationStore
}

// NewStoreSink creates a Sink backed by the notification store.
func NewStoreSink(store NotificationStore) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Notify(ctx context.Context, n model.Notification) error {
	if n.UserID == "" {
		return eris.New("notify: notification without user id")
	}
	return s.store.AddNotification(ctx, n)
}

// LeadFilled builds the notification sent to savers when a lead gains its
// source link.
func LeadFilled(userID string, lead model.Lead) model.Notification {
	return model.Notification{
		UserID: userID,
		Title:  "Saved lead updated",
		Body:   fmt.Sprintf("%q now links to its official posting.", lead.Title),
		Link:   fmt.Sprintf("/leads/%d", lead.ID),
	}
}
