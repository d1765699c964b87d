package notify

import (
	"context"

	"server/internal/domain"
)

// StoreDispatcher appends notifications to the persistent per-user feed.
type StoreDispatcher struct {
	notifications domain.NotificationRepository
}

func NewStoreDispatcher(notifications domain.NotificationRepository) *StoreDispatcher {
	return &StoreDispatcher{notifications: notifications}
}

func (d *StoreDispatcher) Send(ctx context.Context, n domain.Notification) error {
	return d.notifications.Append(ctx, &n)
}

var _ domain.Dispatcher = (*StoreDispatcher)(nil)
