package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// OrganizationRepositoryPG implements OrganizationRepository using PostgreSQL.
type OrganizationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository creates a new organization repo.
func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepositoryPG {
	return &OrganizationRepositoryPG{pool: pool}
}

// Create inserts a new organization account.
func (r *OrganizationRepositoryPG) Create(ctx context.Context, org *domain.OrganizationAccount) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO organizations (id, name, account_status)
VALUES ($1, $2, $3);
`, org.ID, org.Name, org.Status)
	return err
}

// GetByID fetches one organization account.
func (r *OrganizationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.OrganizationAccount, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, name, account_status, blocked_reason, blocked_at, created_at
FROM organizations
WHERE id = $1;
`, id)

	var org domain.OrganizationAccount
	var reason *string
	if err := row.Scan(&org.ID, &org.Name, &org.Status, &reason, &org.BlockedAt, &org.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if reason != nil {
		org.BlockedReason = *reason
	}
	return &org, nil
}

// Block flips active -> blocked with a reason. Zero affected rows means the
// account was already blocked and the caller should not notify again.
func (r *OrganizationRepositoryPG) Block(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE organizations
SET account_status = 'blocked', blocked_reason = $2, blocked_at = $3
WHERE id = $1 AND account_status = 'active';
`, id, reason, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ domain.OrganizationRepository = (*OrganizationRepositoryPG)(nil)
