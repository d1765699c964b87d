package domain

import "time"

// DonationStatus enumerates payment capture outcomes.
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusFailed    DonationStatus = "failed"
)

// Donation represents a supporter contribution earmarked for one milestone
// of a campaign. DonorID is nullable: deleting a donor account unlinks the
// donation but never deletes it. Completed donations are immutable apart
// from that unlink.
type Donation struct {
	ID             string
	CampaignID     string
	DonorID        *string
	MilestoneIndex int
	Amount         int64
	Status         DonationStatus
	TxRef          *string
	CreatedAt      time.Time
}
