package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// CampaignRepositoryPG implements CampaignRepository using PostgreSQL.
type CampaignRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new campaign repo.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepositoryPG {
	return &CampaignRepositoryPG{pool: pool}
}

// Create inserts a new campaign record.
func (r *CampaignRepositoryPG) Create(ctx context.Context, campaign *domain.Campaign) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO campaigns (id, org_id, title, status, goal_amount, collected_amount)
VALUES ($1, $2, $3, $4, $5, $6);
`, campaign.ID, campaign.OrgID, campaign.Title, campaign.Status, campaign.GoalAmount, campaign.CollectedAmount)
	return err
}

// GetByID fetches one campaign.
func (r *CampaignRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, org_id, title, status, goal_amount, collected_amount, created_at
FROM campaigns
WHERE id = $1;
`, id)

	var c domain.Campaign
	if err := row.Scan(&c.ID, &c.OrgID, &c.Title, &c.Status, &c.GoalAmount, &c.CollectedAmount, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdateStatus flips the status only when the stored value still matches.
func (r *CampaignRepositoryPG) UpdateStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE campaigns
SET status = $3
WHERE id = $1 AND status = $2;
`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ domain.CampaignRepository = (*CampaignRepositoryPG)(nil)
