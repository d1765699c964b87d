package escrow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/notify"
)

// Decision is an admin verdict on submitted proof.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Reviewer orchestrates proof submission and the admin decision that
// follows. The platform has a single designated reviewer; every review
// request notification goes to that principal.
type Reviewer struct {
	campaigns  domain.CampaignRepository
	milestones domain.MilestoneRepository
	lifecycle  *Lifecycle
	dispatcher domain.Dispatcher
	formatter  *notify.Formatter
	logger     zerolog.Logger

	adminID string
	now     func() time.Time
}

func NewReviewer(
	campaigns domain.CampaignRepository,
	milestones domain.MilestoneRepository,
	lifecycle *Lifecycle,
	dispatcher domain.Dispatcher,
	formatter *notify.Formatter,
	logger zerolog.Logger,
	adminID string,
) *Reviewer {
	return &Reviewer{
		campaigns:  campaigns,
		milestones: milestones,
		lifecycle:  lifecycle,
		dispatcher: dispatcher,
		formatter:  formatter,
		logger:     logger,
		adminID:    adminID,
		now:        time.Now,
	}
}

// WithReviewClock overrides the time source, for tests.
func (r *Reviewer) WithReviewClock(now func() time.Time) *Reviewer {
	r.now = now
	return r
}

// SubmitProof records the organization's evidence for a milestone awaiting
// proof and hands it to review. The submission must carry at least one of
// description or evidence, the milestone must be in pending_proof, and the
// deadline must not have passed. Proof fields, submission time and the
// transition commit in one guarded update before the reviewer is notified.
func (r *Reviewer) SubmitProof(ctx context.Context, milestoneID, description string, images, invoices []string) error {
	description = strings.TrimSpace(description)
	if description == "" && len(images) == 0 && len(invoices) == 0 {
		return fmt.Errorf("%w: proof requires a description or evidence", domain.ErrValidation)
	}

	milestone, err := r.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return err
	}
	if milestone.Status != domain.MilestoneStatusPendingProof {
		return fmt.Errorf("%w: milestone is not awaiting proof", domain.ErrStateConflict)
	}
	now := r.now()
	if milestone.ProofDeadline != nil && now.After(*milestone.ProofDeadline) {
		// The sweeper may not have run yet, but the window is closed
		// either way.
		return fmt.Errorf("%w: window closed %s", domain.ErrDeadlineExceeded, milestone.ProofDeadline.Format(time.RFC3339))
	}

	moved, err := r.milestones.RecordProof(ctx, milestoneID, description, images, invoices, now)
	if err != nil {
		return fmt.Errorf("record proof: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: milestone is not awaiting proof", domain.ErrStateConflict)
	}
	infra.MilestoneTransitions.WithLabelValues("proof_submitted").Inc()

	campaign, err := r.campaigns.GetByID(ctx, milestone.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	r.notifyAdmin(ctx, r.formatter.ReviewRequested(campaign.Title, milestone.DisplayIndex()))
	return nil
}

// Decide applies the admin verdict to a milestone in pending_review.
// Remarks are mandatory on rejection so the organization knows what to fix.
func (r *Reviewer) Decide(ctx context.Context, milestoneID string, decision Decision, remarks string) error {
	switch decision {
	case DecisionApprove:
		return r.lifecycle.Approve(ctx, milestoneID)
	case DecisionReject:
		if strings.TrimSpace(remarks) == "" {
			return fmt.Errorf("%w: rejection requires remarks", domain.ErrValidation)
		}
		return r.lifecycle.Reject(ctx, milestoneID, remarks)
	default:
		return fmt.Errorf("%w: unknown decision %q", domain.ErrValidation, decision)
	}
}

func (r *Reviewer) notifyAdmin(ctx context.Context, message string) {
	n := domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: r.adminID,
		Message:     message,
		CreatedAt:   r.now(),
	}
	if err := r.dispatcher.Send(ctx, n); err != nil {
		r.logger.Error().Err(err).Msg("review: admin notification dispatch failed")
	}
}
