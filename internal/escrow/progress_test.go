package escrow

import (
	"context"
	"testing"

	"server/internal/domain"
)

func TestCampaignProgressTotalsAreOrderIndependent(t *testing.T) {
	ctx := context.Background()

	// Same donations, opposite arrival order. Totals are keyed by milestone
	// index, so both campaigns must report identical progress.
	fwd := newFixture(t)
	fwd.publish(100_00, 50_00)
	fwd.donate(1, 80_00, "")
	fwd.donate(0, 10_00, "")

	rev := newFixture(t)
	rev.publish(100_00, 50_00)
	rev.donate(0, 10_00, "")
	rev.donate(1, 80_00, "")

	for name, f := range map[string]*fixture{"forward": fwd, "reverse": rev} {
		p, err := f.agg.CampaignProgress(ctx, testCampaignID, "")
		if err != nil {
			t.Fatalf("%s: progress: %v", name, err)
		}
		if got := p.Milestones[0].GlobalTotal; got != 10_00 {
			t.Errorf("%s: milestone 0 total = %d, want %d", name, got, 10_00)
		}
		if got := p.Milestones[1].GlobalTotal; got != 80_00 {
			t.Errorf("%s: milestone 1 total = %d, want %d", name, got, 80_00)
		}
	}
}

func TestCampaignProgressZeroDonations(t *testing.T) {
	f := newFixture(t)
	f.publish(100_00, 50_00)

	p, err := f.agg.CampaignProgress(context.Background(), testCampaignID, "")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(p.Milestones) != 2 {
		t.Fatalf("milestones = %d, want 2", len(p.Milestones))
	}
	for i, row := range p.Milestones {
		if row.GlobalTotal != 0 || row.DonorTotal != 0 {
			t.Errorf("milestone %d totals = (%d, %d), want zero", i, row.GlobalTotal, row.DonorTotal)
		}
	}
	if got := p.Milestones[0].DisplayStatus; got != string(domain.MilestoneStatusActive) {
		t.Errorf("milestone 0 display = %q, want active", got)
	}
}

func TestCampaignProgressIgnoresUndeclaredIndex(t *testing.T) {
	f := newFixture(t)
	f.publish(100_00)
	f.donate(7, 25_00, "")

	p, err := f.agg.CampaignProgress(context.Background(), testCampaignID, "")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(p.Milestones) != 1 {
		t.Fatalf("milestones = %d, want 1", len(p.Milestones))
	}
	if got := p.Milestones[0].GlobalTotal; got != 0 {
		t.Errorf("milestone 0 total = %d, want 0", got)
	}
}

func TestCampaignProgressDisplayOverride(t *testing.T) {
	f := newFixture(t)
	f.publish(100_00, 50_00)
	f.donate(0, 100_00, "")

	p, err := f.agg.CampaignProgress(context.Background(), testCampaignID, "")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}

	// Fully funded and unlocked reads as completed even though the workflow
	// is still in pending_proof. The persisted status is untouched.
	if got := p.Milestones[0].DisplayStatus; got != "completed" {
		t.Errorf("milestone 0 display = %q, want completed", got)
	}
	if got := f.milestone(0).Status; got != domain.MilestoneStatusPendingProof {
		t.Errorf("milestone 0 stored status = %q, want pending_proof", got)
	}

	// A locked milestone never shows completed regardless of funding.
	f.donate(1, 60_00, "")
	p, err = f.agg.CampaignProgress(context.Background(), testCampaignID, "")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got := p.Milestones[1].DisplayStatus; got != string(domain.MilestoneStatusLocked) {
		t.Errorf("milestone 1 display = %q, want locked", got)
	}
}

func TestCampaignProgressDonorScoping(t *testing.T) {
	f := newFixture(t)
	f.publish(200_00)
	f.donate(0, 30_00, "donor-a")
	f.donate(0, 20_00, "donor-b")
	f.donate(0, 15_00, "")

	p, err := f.agg.CampaignProgress(context.Background(), testCampaignID, "donor-a")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got := p.Milestones[0].GlobalTotal; got != 65_00 {
		t.Errorf("global total = %d, want %d", got, 65_00)
	}
	if got := p.Milestones[0].DonorTotal; got != 30_00 {
		t.Errorf("donor total = %d, want %d", got, 30_00)
	}

	// No donor given: donor totals stay zero, global unchanged.
	p, err = f.agg.CampaignProgress(context.Background(), testCampaignID, "")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if got := p.Milestones[0].DonorTotal; got != 0 {
		t.Errorf("donor total without donor = %d, want 0", got)
	}
}
