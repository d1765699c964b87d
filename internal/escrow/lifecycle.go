package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/notify"
)

// DefaultProofWindow is the compliance window an organization gets to
// submit proof once a milestone is fully funded.
const DefaultProofWindow = 5 * 24 * time.Hour

// Lifecycle drives milestone workflow transitions. Every mutation goes
// through a guarded repository update keyed by the expected source status,
// so concurrent callers (admin decisions, the sweeper, donation completion)
// race safely: exactly one wins, the rest see a state conflict.
type Lifecycle struct {
	campaigns  domain.CampaignRepository
	milestones domain.MilestoneRepository
	aggregator *Aggregator
	dispatcher domain.Dispatcher
	formatter  *notify.Formatter
	logger     zerolog.Logger

	proofWindow time.Duration
	now         func() time.Time
}

// LifecycleOption adjusts a Lifecycle at construction time.
type LifecycleOption func(*Lifecycle)

// WithProofWindow overrides the proof compliance window.
func WithProofWindow(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) { l.proofWindow = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) { l.now = now }
}

func NewLifecycle(
	campaigns domain.CampaignRepository,
	milestones domain.MilestoneRepository,
	aggregator *Aggregator,
	dispatcher domain.Dispatcher,
	formatter *notify.Formatter,
	logger zerolog.Logger,
	opts ...LifecycleOption,
) *Lifecycle {
	l := &Lifecycle{
		campaigns:   campaigns,
		milestones:  milestones,
		aggregator:  aggregator,
		dispatcher:  dispatcher,
		formatter:   formatter,
		logger:      logger,
		proofWindow: DefaultProofWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ProofWindow reports the configured compliance window.
func (l *Lifecycle) ProofWindow() time.Duration {
	return l.proofWindow
}

// Publish creates the milestone rows for a draft campaign and opens it for
// donations. Index 0 starts active, every later stage locked; indices are
// contiguous from 0 by construction.
func (l *Lifecycle) Publish(ctx context.Context, campaignID string, specs []domain.MilestoneSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: campaign needs at least one milestone", domain.ErrValidation)
	}
	for i, spec := range specs {
		if spec.TargetAmount <= 0 {
			return fmt.Errorf("%w: milestone %d target amount must be positive", domain.ErrValidation, i+1)
		}
	}

	moved, err := l.campaigns.UpdateStatus(ctx, campaignID, domain.CampaignStatusDraft, domain.CampaignStatusOngoing)
	if err != nil {
		return fmt.Errorf("publish campaign: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: campaign is not a draft", domain.ErrStateConflict)
	}

	created := l.now()
	milestones := make([]*domain.Milestone, 0, len(specs))
	for i, spec := range specs {
		status := domain.MilestoneStatusLocked
		if i == 0 {
			status = domain.MilestoneStatusActive
		}
		milestones = append(milestones, &domain.Milestone{
			ID:               uuid.NewString(),
			CampaignID:       campaignID,
			Index:            i,
			Title:            spec.Title,
			Description:      spec.Description,
			TargetAmount:     spec.TargetAmount,
			FundsPercent:     spec.FundsPercent,
			Status:           status,
			SettlementStatus: domain.SettlementStatusNone,
			CreatedAt:        created,
		})
	}
	if err := l.milestones.CreateAll(ctx, milestones); err != nil {
		return fmt.Errorf("create milestones: %w", err)
	}
	return nil
}

// OnDonationCompleted re-evaluates the funding of the donation's milestone
// and, when the target is first reached while the milestone is active,
// opens the proof window and tells the organization. Safe to call for every
// completed donation: the guarded active -> pending_proof update makes
// repeated triggers no-ops.
func (l *Lifecycle) OnDonationCompleted(ctx context.Context, campaignID string, milestoneIndex int) error {
	milestone, err := l.milestones.GetByIndex(ctx, campaignID, milestoneIndex)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Donation earmarked for a stage that was never declared;
			// the ledger keeps it, the workflow ignores it.
			return nil
		}
		return fmt.Errorf("load milestone: %w", err)
	}
	if milestone.Status != domain.MilestoneStatusActive {
		return nil
	}

	total, err := l.aggregator.MilestoneTotal(ctx, campaignID, milestoneIndex)
	if err != nil {
		return err
	}
	if total < milestone.TargetAmount {
		return nil
	}

	deadline := l.now().Add(l.proofWindow)
	moved, err := l.milestones.BeginProofWindow(ctx, milestone.ID, deadline)
	if err != nil {
		return fmt.Errorf("begin proof window: %w", err)
	}
	if !moved {
		// Another donation completion got there first.
		return nil
	}
	infra.MilestoneTransitions.WithLabelValues("proof_requested").Inc()

	campaign, err := l.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	l.notify(ctx, campaign.OrgID, l.formatter.ProofRequested(campaign.Title, milestone.DisplayIndex(), milestone.TargetAmount, deadline))
	return nil
}

// Approve moves a milestone from pending_review to approved, marks its
// settlement pending for the settler worker, and unlocks the next stage or
// closes the campaign when this was the last one. Approval never waits on
// the settlement signer. Retrying an approval whose unlock was lost to a
// transient failure re-drives the unlock instead of reporting a conflict.
func (l *Lifecycle) Approve(ctx context.Context, milestoneID string) error {
	milestone, err := l.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return err
	}

	moved, err := l.milestones.Approve(ctx, milestoneID, l.now())
	if err != nil {
		return fmt.Errorf("approve milestone: %w", err)
	}
	switch {
	case moved:
		infra.MilestoneTransitions.WithLabelValues("approved").Inc()
	case milestone.Status == domain.MilestoneStatusApproved:
		// A previous approval committed but died before the unlock
		// finished. The guarded updates below make re-driving it safe.
	default:
		return fmt.Errorf("%w: milestone is not awaiting review", domain.ErrStateConflict)
	}
	return l.finishApproval(ctx, milestone)
}

// finishApproval carries out the consequences of an approved milestone:
// activate the successor, or close the campaign when none remains, then tell
// the organization. Each step is either guarded or tolerant of repeats, so
// it can run again after a partial failure.
func (l *Lifecycle) finishApproval(ctx context.Context, milestone *domain.Milestone) error {
	campaign, err := l.campaigns.GetByID(ctx, milestone.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}

	next, err := l.milestones.GetByIndex(ctx, milestone.CampaignID, milestone.Index+1)
	switch {
	case err == nil:
		if _, err := l.milestones.Activate(ctx, next.ID); err != nil {
			return fmt.Errorf("unlock next milestone: %w", err)
		}
	case errors.Is(err, domain.ErrNotFound):
		if _, err := l.campaigns.UpdateStatus(ctx, milestone.CampaignID, domain.CampaignStatusOngoing, domain.CampaignStatusClosed); err != nil {
			return fmt.Errorf("close campaign: %w", err)
		}
	default:
		return fmt.Errorf("load next milestone: %w", err)
	}

	l.notify(ctx, campaign.OrgID, l.formatter.ProofApproved(campaign.Title, milestone.DisplayIndex()))
	return nil
}

// Reject moves a milestone from pending_review back to pending_proof with a
// fresh compliance window. Rejection re-opens submission immediately; the
// organization learns the remarks through its notification.
func (l *Lifecycle) Reject(ctx context.Context, milestoneID, remarks string) error {
	milestone, err := l.milestones.GetByID(ctx, milestoneID)
	if err != nil {
		return err
	}

	deadline := l.now().Add(l.proofWindow)
	moved, err := l.milestones.Reject(ctx, milestoneID, deadline)
	if err != nil {
		return fmt.Errorf("reject milestone: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: milestone is not awaiting review", domain.ErrStateConflict)
	}
	infra.MilestoneTransitions.WithLabelValues("rejected").Inc()

	campaign, err := l.campaigns.GetByID(ctx, milestone.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	l.notify(ctx, campaign.OrgID, l.formatter.ProofRejected(campaign.Title, milestone.DisplayIndex(), remarks, deadline))
	return nil
}

// notify fires a notification and logs the failure instead of propagating
// it: the transition already committed and the workflow state is the source
// of truth.
func (l *Lifecycle) notify(ctx context.Context, recipientID, message string) {
	n := domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Message:     message,
		CreatedAt:   l.now(),
	}
	if err := l.dispatcher.Send(ctx, n); err != nil {
		l.logger.Error().Err(err).Str("recipient_id", recipientID).Msg("lifecycle: notification dispatch failed")
	}
}
