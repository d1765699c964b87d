package domain

import "time"

// CampaignStatus enumerates campaign lifecycle states.
type CampaignStatus string

const (
	CampaignStatusDraft   CampaignStatus = "draft"
	CampaignStatusOngoing CampaignStatus = "ongoing"
	CampaignStatusClosed  CampaignStatus = "closed"
)

// Campaign represents a fundraising campaign owned by an organization.
// CollectedAmount is a denormalized cache of the completed-donation sum and
// is recomputed from the donation ledger inside the same transaction as a
// donation completion.
type Campaign struct {
	ID              string
	OrgID           string
	Title           string
	Status          CampaignStatus
	GoalAmount      int64
	CollectedAmount int64
	CreatedAt       time.Time
}

// MilestoneSpec declares one stage of a campaign at publish time.
type MilestoneSpec struct {
	Title        string
	Description  string
	TargetAmount int64
	FundsPercent int
}
