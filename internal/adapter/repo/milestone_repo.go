package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const milestoneColumns = `
id, campaign_id, milestone_index, title, description, target_amount,
funds_percent, status, proof_description, proof_images, proof_invoices,
submitted_at, proof_deadline, approved_at, payout_tx_hash, settlement_status,
created_at`

// MilestoneRepositoryPG implements MilestoneRepository using PostgreSQL.
// Every transition is one conditional UPDATE guarded by the expected source
// status; the affected-row count tells the caller whether it won the race.
type MilestoneRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewMilestoneRepository creates a new milestone repo.
func NewMilestoneRepository(pool *pgxpool.Pool) *MilestoneRepositoryPG {
	return &MilestoneRepositoryPG{pool: pool}
}

// CreateAll inserts the milestone rows of a freshly published campaign in
// one transaction.
func (r *MilestoneRepositoryPG) CreateAll(ctx context.Context, milestones []*domain.Milestone) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, m := range milestones {
		if _, err := tx.Exec(ctx, `
INSERT INTO milestones (id, campaign_id, milestone_index, title, description,
                        target_amount, funds_percent, status, settlement_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`, m.ID, m.CampaignID, m.Index, m.Title, m.Description, m.TargetAmount, m.FundsPercent, m.Status, m.SettlementStatus); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID fetches one milestone.
func (r *MilestoneRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Milestone, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+milestoneColumns+`
FROM milestones
WHERE id = $1;
`, id)
	return scanMilestone(row)
}

// GetByIndex fetches a campaign's milestone by its zero-based index.
func (r *MilestoneRepositoryPG) GetByIndex(ctx context.Context, campaignID string, index int) (*domain.Milestone, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+milestoneColumns+`
FROM milestones
WHERE campaign_id = $1 AND milestone_index = $2;
`, campaignID, index)
	return scanMilestone(row)
}

// ListByCampaign returns all milestones of a campaign in index order.
func (r *MilestoneRepositoryPG) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+milestoneColumns+`
FROM milestones
WHERE campaign_id = $1
ORDER BY milestone_index;
`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}

// ListOverdueProof returns milestones still in pending_proof whose deadline
// has passed.
func (r *MilestoneRepositoryPG) ListOverdueProof(ctx context.Context, now time.Time) ([]domain.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+milestoneColumns+`
FROM milestones
WHERE status = 'pending_proof'
  AND proof_deadline IS NOT NULL
  AND proof_deadline < $1
ORDER BY proof_deadline;
`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}

// ListUnenforcedFailures returns failed_deadline milestones belonging to
// organizations that are still active, i.e. breaches whose account block has
// not landed yet.
func (r *MilestoneRepositoryPG) ListUnenforcedFailures(ctx context.Context) ([]domain.Milestone, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+milestoneColumns+`
FROM milestones
WHERE status = 'failed_deadline'
  AND campaign_id IN (
    SELECT c.id
    FROM campaigns c
    JOIN organizations o ON o.id = c.org_id
    WHERE o.account_status = 'active'
  )
ORDER BY proof_deadline;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMilestones(rows)
}

// Activate performs locked -> active.
func (r *MilestoneRepositoryPG) Activate(ctx context.Context, id string) (bool, error) {
	return r.guarded(ctx, `
UPDATE milestones
SET status = 'active'
WHERE id = $1 AND status = 'locked';
`, id)
}

// BeginProofWindow performs active -> pending_proof and stamps the deadline.
func (r *MilestoneRepositoryPG) BeginProofWindow(ctx context.Context, id string, deadline time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET status = 'pending_proof', proof_deadline = $2
WHERE id = $1 AND status = 'active';
`, id, deadline)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RecordProof performs pending_proof -> pending_review and persists the
// evidence in the same statement.
func (r *MilestoneRepositoryPG) RecordProof(ctx context.Context, id string, description string, images, invoices []string, submittedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET status = 'pending_review',
    proof_description = $2,
    proof_images = $3,
    proof_invoices = $4,
    submitted_at = $5
WHERE id = $1 AND status = 'pending_proof';
`, id, description, images, invoices, submittedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Approve performs pending_review -> approved, clears the deadline and
// marks settlement pending for the settler worker.
func (r *MilestoneRepositoryPG) Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET status = 'approved',
    proof_deadline = NULL,
    approved_at = $2,
    settlement_status = 'pending'
WHERE id = $1 AND status = 'pending_review';
`, id, approvedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Reject performs pending_review -> pending_proof with a fresh deadline,
// re-opening proof submission.
func (r *MilestoneRepositoryPG) Reject(ctx context.Context, id string, deadline time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET status = 'pending_proof',
    proof_deadline = $2,
    submitted_at = NULL
WHERE id = $1 AND status = 'pending_review';
`, id, deadline)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkFailedDeadline performs pending_proof -> failed_deadline.
func (r *MilestoneRepositoryPG) MarkFailedDeadline(ctx context.Context, id string) (bool, error) {
	return r.guarded(ctx, `
UPDATE milestones
SET status = 'failed_deadline'
WHERE id = $1 AND status = 'pending_proof';
`, id)
}

// ClaimSettlement takes one pending settlement and marks it signing. SKIP
// LOCKED keeps concurrent settler instances off the same row.
func (r *MilestoneRepositoryPG) ClaimSettlement(ctx context.Context) (*domain.Milestone, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE milestones
SET settlement_status = 'signing'
WHERE id = (
	SELECT id
	FROM milestones
	WHERE status = 'approved' AND settlement_status = 'pending'
	ORDER BY approved_at
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING `+milestoneColumns+`;
`)
	m, err := scanMilestone(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

// CompleteSettlement performs signing -> settled and records the hash.
func (r *MilestoneRepositoryPG) CompleteSettlement(ctx context.Context, id string, txHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET settlement_status = 'settled', payout_tx_hash = $2
WHERE id = $1 AND settlement_status = 'signing';
`, id, txHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ReleaseSettlement puts a failed signing attempt back to pending.
func (r *MilestoneRepositoryPG) ReleaseSettlement(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE milestones
SET settlement_status = 'pending'
WHERE id = $1 AND settlement_status = 'signing';
`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *MilestoneRepositoryPG) guarded(ctx context.Context, query string, args ...any) (bool, error) {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanMilestone(row pgx.Row) (*domain.Milestone, error) {
	var m domain.Milestone
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.Index, &m.Title, &m.Description, &m.TargetAmount,
		&m.FundsPercent, &m.Status, &m.ProofDescription, &m.ProofImages, &m.ProofInvoices,
		&m.SubmittedAt, &m.ProofDeadline, &m.ApprovedAt, &m.PayoutTxHash, &m.SettlementStatus,
		&m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func collectMilestones(rows pgx.Rows) ([]domain.Milestone, error) {
	var items []domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.MilestoneRepository = (*MilestoneRepositoryPG)(nil)
