package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const donationColumns = `
id, campaign_id, donor_id, milestone_index, amount, status, tx_ref, created_at`

// DonationRepositoryPG implements DonationRepository using PostgreSQL. The
// donations table is the only source of money totals; the campaign's
// collected-amount cache is recomputed from it in the completion
// transaction, never trusted on its own.
type DonationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepositoryPG {
	return &DonationRepositoryPG{pool: pool}
}

// Create inserts a new donation record.
func (r *DonationRepositoryPG) Create(ctx context.Context, donation *domain.Donation) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO donations (id, campaign_id, donor_id, milestone_index, amount, status)
VALUES ($1, $2, $3, $4, $5, $6);
`, donation.ID, donation.CampaignID, donation.DonorID, donation.MilestoneIndex, donation.Amount, donation.Status)
	return err
}

// GetByID fetches one donation.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+donationColumns+`
FROM donations
WHERE id = $1;
`, id)
	return scanDonation(row)
}

// Complete flips a pending donation to completed and refreshes the owning
// campaign's collected-amount cache from the ledger in the same
// transaction.
func (r *DonationRepositoryPG) Complete(ctx context.Context, id string, txRef string) (*domain.Donation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
UPDATE donations
SET status = 'completed', tx_ref = $2
WHERE id = $1 AND status = 'pending'
RETURNING `+donationColumns+`;
`, id, txRef)
	donation, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrStateConflict
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
UPDATE campaigns
SET collected_amount = (
	SELECT COALESCE(SUM(amount), 0)
	FROM donations
	WHERE campaign_id = $1 AND status = 'completed'
)
WHERE id = $1;
`, donation.CampaignID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return donation, nil
}

// Fail flips a pending donation to failed. No ledger recompute is needed
// since pending donations never count toward a campaign.
func (r *DonationRepositoryPG) Fail(ctx context.Context, id string) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE donations
SET status = 'failed'
WHERE id = $1 AND status = 'pending'
RETURNING `+donationColumns+`;
`, id)
	donation, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			if _, lookupErr := r.GetByID(ctx, id); lookupErr != nil {
				return nil, lookupErr
			}
			return nil, domain.ErrStateConflict
		}
		return nil, err
	}
	return donation, nil
}

// SumCompletedByMilestone returns the completed-donation totals for a
// campaign keyed by milestone index.
func (r *DonationRepositoryPG) SumCompletedByMilestone(ctx context.Context, campaignID string) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT milestone_index, COALESCE(SUM(amount), 0)
FROM donations
WHERE campaign_id = $1 AND status = 'completed'
GROUP BY milestone_index;
`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTotals(rows)
}

// SumCompletedByMilestoneForDonor scopes the totals to one donor.
func (r *DonationRepositoryPG) SumCompletedByMilestoneForDonor(ctx context.Context, campaignID, donorID string) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT milestone_index, COALESCE(SUM(amount), 0)
FROM donations
WHERE campaign_id = $1 AND donor_id = $2 AND status = 'completed'
GROUP BY milestone_index;
`, campaignID, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTotals(rows)
}

// UnlinkDonor clears the donor reference on all of a donor's donations.
// The donation rows themselves stay: account deletion never removes money
// from the ledger.
func (r *DonationRepositoryPG) UnlinkDonor(ctx context.Context, donorID string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE donations
SET donor_id = NULL
WHERE donor_id = $1;
`, donorID)
	return err
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(&d.ID, &d.CampaignID, &d.DonorID, &d.MilestoneIndex, &d.Amount, &d.Status, &d.TxRef, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func collectTotals(rows pgx.Rows) (map[int]int64, error) {
	totals := make(map[int]int64)
	for rows.Next() {
		var index int
		var total int64
		if err := rows.Scan(&index, &total); err != nil {
			return nil, err
		}
		totals[index] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

var _ domain.DonationRepository = (*DonationRepositoryPG)(nil)
