package escrow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/adapter/memrepo"
	"server/internal/domain"
	"server/internal/notify"
)

const (
	testOrgID      = "org-1"
	testCampaignID = "camp-1"
	testAdminID    = "admin-1"
)

func newFormatterForTest() *notify.Formatter { return notify.NewFormatter("en", "USD") }

func nopLogger() zerolog.Logger { return zerolog.Nop() }

// fixture wires the engine over the in-memory store with a controllable
// clock. The clock is shared by every component so advancing it moves the
// whole system.
type fixture struct {
	t     *testing.T
	store *memrepo.Store
	agg   *Aggregator
	life  *Lifecycle
	rev   *Reviewer
	sweep *Sweeper

	now       time.Time
	donations int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		store: memrepo.NewStore(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	logger := zerolog.Nop()
	formatter := notify.NewFormatter("en", "USD")

	f.agg = NewAggregator(f.store.Campaigns, f.store.Milestones, f.store.Donations)
	f.life = NewLifecycle(f.store.Campaigns, f.store.Milestones, f.agg, f.store.Dispatcher, formatter, logger, WithClock(clock))
	f.rev = NewReviewer(f.store.Campaigns, f.store.Milestones, f.life, f.store.Dispatcher, formatter, logger, testAdminID).WithReviewClock(clock)
	f.sweep = NewSweeper(f.store.Campaigns, f.store.Milestones, f.store.Organizations, f.store.Dispatcher, formatter, logger).WithSweepClock(clock)

	ctx := context.Background()
	if err := f.store.Organizations.Create(ctx, &domain.OrganizationAccount{
		ID:     testOrgID,
		Name:   "Bright Futures",
		Status: domain.AccountStatusActive,
	}); err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	if err := f.store.Campaigns.Create(ctx, &domain.Campaign{
		ID:         testCampaignID,
		OrgID:      testOrgID,
		Title:      "Clean Water",
		Status:     domain.CampaignStatusDraft,
		GoalAmount: 300_00,
	}); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// publish opens the seeded campaign with one milestone per target amount.
func (f *fixture) publish(targets ...int64) {
	f.t.Helper()
	specs := make([]domain.MilestoneSpec, 0, len(targets))
	for i, target := range targets {
		specs = append(specs, domain.MilestoneSpec{
			Title:        fmt.Sprintf("Stage %d", i+1),
			TargetAmount: target,
			FundsPercent: 100 / len(targets),
		})
	}
	if err := f.life.Publish(context.Background(), testCampaignID, specs); err != nil {
		f.t.Fatalf("publish: %v", err)
	}
}

// donate records a completed donation for a milestone index and runs the
// completion hook, the same path the payment callback takes.
func (f *fixture) donate(index int, amount int64, donorID string) {
	f.t.Helper()
	ctx := context.Background()
	f.donations++
	id := fmt.Sprintf("don-%d", f.donations)
	d := &domain.Donation{
		ID:             id,
		CampaignID:     testCampaignID,
		MilestoneIndex: index,
		Amount:         amount,
		Status:         domain.DonationStatusPending,
		CreatedAt:      f.now,
	}
	if donorID != "" {
		d.DonorID = &donorID
	}
	if err := f.store.Donations.Create(ctx, d); err != nil {
		f.t.Fatalf("create donation: %v", err)
	}
	if _, err := f.store.Donations.Complete(ctx, id, "tx-"+id); err != nil {
		f.t.Fatalf("complete donation: %v", err)
	}
	if err := f.life.OnDonationCompleted(ctx, testCampaignID, index); err != nil {
		f.t.Fatalf("donation hook: %v", err)
	}
}

func (f *fixture) milestone(index int) *domain.Milestone {
	f.t.Helper()
	m, err := f.store.Milestones.GetByIndex(context.Background(), testCampaignID, index)
	if err != nil {
		f.t.Fatalf("get milestone %d: %v", index, err)
	}
	return m
}

func (f *fixture) campaign() *domain.Campaign {
	f.t.Helper()
	c, err := f.store.Campaigns.GetByID(context.Background(), testCampaignID)
	if err != nil {
		f.t.Fatalf("get campaign: %v", err)
	}
	return c
}

func (f *fixture) organization() *domain.OrganizationAccount {
	f.t.Helper()
	o, err := f.store.Organizations.GetByID(context.Background(), testOrgID)
	if err != nil {
		f.t.Fatalf("get organization: %v", err)
	}
	return o
}

// sentTo filters dispatched notifications by recipient.
func (f *fixture) sentTo(recipientID string) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.store.Sent() {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out
}
