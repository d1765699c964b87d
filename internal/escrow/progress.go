package escrow

import (
	"context"
	"fmt"

	"server/internal/domain"
)

// MilestoneProgress is the read model for one milestone: the persisted
// workflow status next to the funding totals computed from the donation
// ledger. DisplayStatus may run ahead of Status (a fully funded milestone
// reads as completed before the workflow catches up) but that override is
// computed at read time and never written back.
type MilestoneProgress struct {
	Milestone     domain.Milestone
	GlobalTotal   int64
	DonorTotal    int64
	DisplayStatus string
}

// CampaignProgress combines the progress rows with the campaign itself.
type CampaignProgress struct {
	Campaign   domain.Campaign
	Milestones []MilestoneProgress
}

// Aggregator derives per-milestone funding progress for a campaign. It is
// the only reader of money totals; the workflow state machine consumes its
// output but never recomputes it.
type Aggregator struct {
	campaigns  domain.CampaignRepository
	milestones domain.MilestoneRepository
	donations  domain.DonationRepository
}

func NewAggregator(campaigns domain.CampaignRepository, milestones domain.MilestoneRepository, donations domain.DonationRepository) *Aggregator {
	return &Aggregator{campaigns: campaigns, milestones: milestones, donations: donations}
}

// CampaignProgress returns funding progress for every milestone of the
// campaign. donorID scopes the per-donor totals and may be empty. Donations
// pointing at an index with no milestone row are ignored rather than
// failing the whole aggregation.
func (a *Aggregator) CampaignProgress(ctx context.Context, campaignID, donorID string) (*CampaignProgress, error) {
	campaign, err := a.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("load campaign: %w", err)
	}

	milestones, err := a.milestones.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}

	totals, err := a.donations.SumCompletedByMilestone(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("sum donations: %w", err)
	}

	var donorTotals map[int]int64
	if donorID != "" {
		donorTotals, err = a.donations.SumCompletedByMilestoneForDonor(ctx, campaignID, donorID)
		if err != nil {
			return nil, fmt.Errorf("sum donor donations: %w", err)
		}
	}

	progress := &CampaignProgress{Campaign: *campaign}
	for _, m := range milestones {
		row := MilestoneProgress{
			Milestone:   m,
			GlobalTotal: totals[m.Index],
			DonorTotal:  donorTotals[m.Index],
		}
		row.DisplayStatus = displayStatus(m, row.GlobalTotal)
		progress.Milestones = append(progress.Milestones, row)
	}
	return progress, nil
}

// MilestoneTotal returns the global completed-donation total for a single
// milestone index of a campaign.
func (a *Aggregator) MilestoneTotal(ctx context.Context, campaignID string, index int) (int64, error) {
	totals, err := a.donations.SumCompletedByMilestone(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("sum donations: %w", err)
	}
	return totals[index], nil
}

// displayStatus applies the read-time override: any unlocked milestone whose
// funding has met its target is presented as completed even while review is
// still in flight.
func displayStatus(m domain.Milestone, total int64) string {
	if m.Status != domain.MilestoneStatusLocked && total >= m.TargetAmount {
		return "completed"
	}
	return string(m.Status)
}
