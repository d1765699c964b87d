package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// NotificationRepositoryPG implements NotificationRepository using
// PostgreSQL. The feed is append-only from the engine's side.
type NotificationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repo.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepositoryPG {
	return &NotificationRepositoryPG{pool: pool}
}

// Append inserts a notification row.
func (r *NotificationRepositoryPG) Append(ctx context.Context, n *domain.Notification) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO notifications (id, recipient_id, message, read)
VALUES ($1, $2, $3, false);
`, n.ID, n.RecipientID, n.Message)
	return err
}

var _ domain.NotificationRepository = (*NotificationRepositoryPG)(nil)
