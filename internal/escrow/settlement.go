package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// ErrNoSettlementDue signals an empty claim poll.
var ErrNoSettlementDue = errors.New("no settlement due")

// Settler resolves the settlement-pending sub-state left behind by an
// approval. It claims one approved milestone at a time, asks the external
// signer to move the funds, and records the transaction hash. A failed
// signer call releases the claim so a later poll retries it; an approved
// milestone is never silently marked settled without a hash.
type Settler struct {
	campaigns    domain.CampaignRepository
	milestones   domain.MilestoneRepository
	signer       domain.SettlementSigner
	logger       zerolog.Logger
	pollInterval time.Duration
}

func NewSettler(
	campaigns domain.CampaignRepository,
	milestones domain.MilestoneRepository,
	signer domain.SettlementSigner,
	logger zerolog.Logger,
	pollInterval time.Duration,
) *Settler {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Settler{
		campaigns:    campaigns,
		milestones:   milestones,
		signer:       signer,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Run polls for pending settlements until the context is cancelled.
func (s *Settler) Run(ctx context.Context) error {
	s.logger.Info().Msg("settler: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.SettleNext(ctx); err != nil {
			if !errors.Is(err, ErrNoSettlementDue) {
				s.logger.Error().Err(err).Msg("settler: settlement attempt failed")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.pollInterval):
			}
		}
	}
}

// SettleNext claims one pending settlement and executes it. Returns
// ErrNoSettlementDue when nothing is claimable.
func (s *Settler) SettleNext(ctx context.Context) error {
	milestone, err := s.milestones.ClaimSettlement(ctx)
	if err != nil {
		return fmt.Errorf("claim settlement: %w", err)
	}
	if milestone == nil {
		return ErrNoSettlementDue
	}

	campaign, err := s.campaigns.GetByID(ctx, milestone.CampaignID)
	if err != nil {
		s.release(ctx, milestone.ID)
		return fmt.Errorf("load campaign: %w", err)
	}

	amount := payoutAmount(*campaign, *milestone)
	txHash, err := s.signer.Sign(ctx, domain.SettlementRequest{
		CampaignID:  campaign.ID,
		MilestoneID: milestone.ID,
		Destination: campaign.OrgID,
		Amount:      amount,
	})
	if err != nil {
		infra.SettlementAttempts.WithLabelValues("failed").Inc()
		s.release(ctx, milestone.ID)
		return fmt.Errorf("sign settlement for milestone %s: %w", milestone.ID, err)
	}

	recorded, err := s.milestones.CompleteSettlement(ctx, milestone.ID, txHash)
	if err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}
	if !recorded {
		// The claim was lost; the transfer already happened, so surface
		// it loudly instead of retrying into a double payout.
		s.logger.Error().Str("milestone_id", milestone.ID).Str("tx_hash", txHash).Msg("settler: claim lost after transfer, manual reconciliation required")
		return nil
	}

	infra.SettlementAttempts.WithLabelValues("settled").Inc()
	s.logger.Info().
		Str("milestone_id", milestone.ID).
		Str("campaign_id", campaign.ID).
		Int64("amount", amount).
		Str("tx_hash", txHash).
		Msg("settler: milestone settled")
	return nil
}

func (s *Settler) release(ctx context.Context, milestoneID string) {
	if _, err := s.milestones.ReleaseSettlement(ctx, milestoneID); err != nil {
		s.logger.Error().Err(err).Str("milestone_id", milestoneID).Msg("settler: release failed, settlement may stall")
	}
}

// payoutAmount resolves how much the signer should move: the milestone's
// allocated share of the campaign goal when declared, the funding target
// otherwise.
func payoutAmount(c domain.Campaign, m domain.Milestone) int64 {
	if m.FundsPercent > 0 {
		return c.GoalAmount * int64(m.FundsPercent) / 100
	}
	return m.TargetAmount
}
