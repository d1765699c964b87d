package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/notify"
)

// RunLock serializes sweep runs across processes. Locking is an
// optimization only: the guarded updates below already make overlapping
// runs safe, a held lock just avoids redundant scans.
type RunLock interface {
	TryAcquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string)
}

// Sweeper enforces proof deadlines unattended. Each run first transitions
// milestones stuck in pending_proof past their deadline to failed_deadline,
// then blocks and notifies the organization behind every failed_deadline
// milestone whose account is still active. Penalties are driven off the
// failed_deadline set rather than the overdue scan, so a block or
// notification lost to a transient failure is picked up again by the next
// run. Every step is guarded by the expected prior state, so re-running (or
// racing an admin decision) blocks and notifies at most once per breach.
type Sweeper struct {
	campaigns     domain.CampaignRepository
	milestones    domain.MilestoneRepository
	organizations domain.OrganizationRepository
	dispatcher    domain.Dispatcher
	formatter     *notify.Formatter
	logger        zerolog.Logger

	lock RunLock
	now  func() time.Time
}

func NewSweeper(
	campaigns domain.CampaignRepository,
	milestones domain.MilestoneRepository,
	organizations domain.OrganizationRepository,
	dispatcher domain.Dispatcher,
	formatter *notify.Formatter,
	logger zerolog.Logger,
) *Sweeper {
	return &Sweeper{
		campaigns:     campaigns,
		milestones:    milestones,
		organizations: organizations,
		dispatcher:    dispatcher,
		formatter:     formatter,
		logger:        logger,
		now:           time.Now,
	}
}

// WithLock installs a cross-process run lock (Redis in production).
func (s *Sweeper) WithLock(lock RunLock) *Sweeper {
	s.lock = lock
	return s
}

// WithSweepClock overrides the time source, for tests.
func (s *Sweeper) WithSweepClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

const sweepLockName = "deadline-sweep"

// Run executes one sweep and returns the number of organization accounts
// newly blocked. A milestone already moved out of pending_proof by a
// concurrent admin decision yields zero affected rows on the guarded update
// and is skipped as already handled, never reported as an error.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	if s.lock != nil {
		ok, err := s.lock.TryAcquire(ctx, sweepLockName)
		if err != nil {
			s.logger.Warn().Err(err).Msg("sweep: lock unavailable, proceeding unlocked")
		} else if !ok {
			s.logger.Info().Msg("sweep: another run in progress, skipping")
			return 0, nil
		} else {
			defer s.lock.Release(ctx, sweepLockName)
		}
	}

	now := s.now()
	overdue, err := s.milestones.ListOverdueProof(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list overdue milestones: %w", err)
	}
	for _, m := range overdue {
		moved, err := s.milestones.MarkFailedDeadline(ctx, m.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("milestone_id", m.ID).Msg("sweep: mark failed deadline failed")
			continue
		}
		if !moved {
			// Someone else acted first (admin decision or a concurrent
			// sweep). Nothing left to enforce.
			continue
		}
		infra.MilestoneTransitions.WithLabelValues("failed_deadline").Inc()
	}

	failures, err := s.milestones.ListUnenforcedFailures(ctx)
	if err != nil {
		return 0, fmt.Errorf("list unenforced failures: %w", err)
	}
	blocked := 0
	for _, m := range failures {
		didBlock, err := s.enforce(ctx, m, now)
		if err != nil {
			s.logger.Error().Err(err).Str("milestone_id", m.ID).Msg("sweep: enforcement failed")
			continue
		}
		if didBlock {
			blocked++
		}
	}

	infra.SweepRuns.Inc()
	infra.SweepBlockedAccounts.Add(float64(blocked))
	s.logger.Info().Int("overdue", len(overdue)).Int("blocked", blocked).Msg("sweep: run complete")
	return blocked, nil
}

func (s *Sweeper) enforce(ctx context.Context, m domain.Milestone, now time.Time) (bool, error) {
	campaign, err := s.campaigns.GetByID(ctx, m.CampaignID)
	if err != nil {
		return false, fmt.Errorf("load campaign: %w", err)
	}

	var deadline time.Time
	if m.ProofDeadline != nil {
		deadline = *m.ProofDeadline
	}
	reason := s.formatter.BlockReason(campaign.Title, m.DisplayIndex(), deadline)

	didBlock, err := s.organizations.Block(ctx, campaign.OrgID, reason, now)
	if err != nil {
		return false, fmt.Errorf("block organization: %w", err)
	}
	if didBlock {
		s.notifyOrg(ctx, campaign.OrgID, s.formatter.DeadlineMissed(campaign.Title, m.DisplayIndex(), deadline))
	}
	return didBlock, nil
}

func (s *Sweeper) notifyOrg(ctx context.Context, orgID, message string) {
	n := domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: orgID,
		Message:     message,
		CreatedAt:   s.now(),
	}
	if err := s.dispatcher.Send(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("recipient_id", orgID).Msg("sweep: notification dispatch failed")
	}
}
