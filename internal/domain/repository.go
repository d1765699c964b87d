package domain

import (
	"context"
	"time"
)

// CampaignRepository handles campaign persistence.
type CampaignRepository interface {
	Create(ctx context.Context, campaign *Campaign) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	// UpdateStatus flips the campaign status only when it still holds the
	// expected value. It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from, to CampaignStatus) (bool, error)
}

// MilestoneRepository is the authoritative store for milestone workflow
// state. Every transition method is a single conditional update guarded by
// the expected source status; zero affected rows is reported as (false, nil)
// so callers can distinguish a lost race from a storage failure.
type MilestoneRepository interface {
	CreateAll(ctx context.Context, milestones []*Milestone) error
	GetByID(ctx context.Context, id string) (*Milestone, error)
	GetByIndex(ctx context.Context, campaignID string, index int) (*Milestone, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]Milestone, error)
	// ListOverdueProof returns milestones still awaiting proof whose
	// deadline has passed.
	ListOverdueProof(ctx context.Context, now time.Time) ([]Milestone, error)
	// ListUnenforcedFailures returns failed_deadline milestones whose
	// owning organization has not been blocked yet, so a penalty lost to a
	// transient failure is retried by the next sweep.
	ListUnenforcedFailures(ctx context.Context) ([]Milestone, error)

	// Activate performs locked -> active.
	Activate(ctx context.Context, id string) (bool, error)
	// BeginProofWindow performs active -> pending_proof and stamps the
	// proof deadline.
	BeginProofWindow(ctx context.Context, id string, deadline time.Time) (bool, error)
	// RecordProof performs pending_proof -> pending_review, persisting the
	// evidence and submission time in the same update.
	RecordProof(ctx context.Context, id string, description string, images, invoices []string, submittedAt time.Time) (bool, error)
	// Approve performs pending_review -> approved: clears the deadline,
	// stamps approved_at and marks settlement pending.
	Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error)
	// Reject performs pending_review -> pending_proof with a fresh
	// deadline, re-opening proof submission.
	Reject(ctx context.Context, id string, deadline time.Time) (bool, error)
	// MarkFailedDeadline performs pending_proof -> failed_deadline.
	MarkFailedDeadline(ctx context.Context, id string) (bool, error)

	// ClaimSettlement atomically takes one milestone with settlement
	// pending and marks it signing. Returns nil when nothing is claimable.
	ClaimSettlement(ctx context.Context) (*Milestone, error)
	// CompleteSettlement performs signing -> settled and records the
	// transaction hash.
	CompleteSettlement(ctx context.Context, id string, txHash string) (bool, error)
	// ReleaseSettlement puts a failed signing attempt back to pending so a
	// later poll retries it.
	ReleaseSettlement(ctx context.Context, id string) (bool, error)
}

// DonationRepository handles donation persistence and the ledger
// aggregations derived from it. No other component computes money totals.
type DonationRepository interface {
	Create(ctx context.Context, donation *Donation) error
	GetByID(ctx context.Context, id string) (*Donation, error)
	// Complete flips pending -> completed and recomputes the owning
	// campaign's collected-amount cache from the ledger inside the same
	// transaction.
	Complete(ctx context.Context, id string, txRef string) (*Donation, error)
	// Fail flips pending -> failed when the payment capture is abandoned
	// or declined. Failed donations never join the ledger.
	Fail(ctx context.Context, id string) (*Donation, error)
	// SumCompletedByMilestone returns completed-donation totals keyed by
	// milestone index for one campaign.
	SumCompletedByMilestone(ctx context.Context, campaignID string) (map[int]int64, error)
	SumCompletedByMilestoneForDonor(ctx context.Context, campaignID, donorID string) (map[int]int64, error)
	// UnlinkDonor clears the donor reference on that donor's donations
	// without touching the donation rows themselves.
	UnlinkDonor(ctx context.Context, donorID string) error
}

// OrganizationRepository handles organization account persistence.
type OrganizationRepository interface {
	Create(ctx context.Context, org *OrganizationAccount) error
	GetByID(ctx context.Context, id string) (*OrganizationAccount, error)
	// Block flips active -> blocked with a reason. Zero affected rows
	// means the account was already blocked.
	Block(ctx context.Context, id, reason string, at time.Time) (bool, error)
}

// NotificationRepository appends to the per-user notification feed.
type NotificationRepository interface {
	Append(ctx context.Context, n *Notification) error
}

// Dispatcher delivers a notification to its recipient. Delivery is
// fire-and-forget and at-least-once; a failed dispatch never rolls back the
// state transition that triggered it.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// SettlementSigner executes the on-chain transfer for an approved milestone
// and returns the transaction hash. Retries are the signer's concern.
type SettlementSigner interface {
	Sign(ctx context.Context, req SettlementRequest) (string, error)
}
