package domain

import "time"

// MilestoneStatus enumerates the workflow states of a milestone.
type MilestoneStatus string

const (
	MilestoneStatusLocked         MilestoneStatus = "locked"
	MilestoneStatusActive         MilestoneStatus = "active"
	MilestoneStatusPendingProof   MilestoneStatus = "pending_proof"
	MilestoneStatusPendingReview  MilestoneStatus = "pending_review"
	MilestoneStatusApproved       MilestoneStatus = "approved"
	MilestoneStatusRejected       MilestoneStatus = "rejected"
	MilestoneStatusFailedDeadline MilestoneStatus = "failed_deadline"
)

// SettlementStatus tracks fund movement separately from the review workflow.
// Administrative approval and the on-chain transfer are decoupled: approval
// marks settlement pending, and the settler worker resolves it to settled or
// puts it back to pending for retry.
type SettlementStatus string

const (
	SettlementStatusNone    SettlementStatus = "none"
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusSigning SettlementStatus = "signing"
	SettlementStatusSettled SettlementStatus = "settled"
)

// Milestone is one funding-gated stage of a campaign. Index values for a
// campaign are contiguous starting at 0 and define unlock order.
type Milestone struct {
	ID               string
	CampaignID       string
	Index            int
	Title            string
	Description      string
	TargetAmount     int64
	FundsPercent     int
	Status           MilestoneStatus
	ProofDescription string
	ProofImages      []string
	ProofInvoices    []string
	SubmittedAt      *time.Time
	ProofDeadline    *time.Time
	ApprovedAt       *time.Time
	PayoutTxHash     *string
	SettlementStatus SettlementStatus
	CreatedAt        time.Time
}

// DisplayIndex returns the 1-based stage number shown to people.
func (m Milestone) DisplayIndex() int {
	return m.Index + 1
}

// Terminal reports whether the milestone's review workflow can no longer
// move. A rejected milestone is not terminal: it re-opens proof submission.
func (m Milestone) Terminal() bool {
	return m.Status == MilestoneStatusApproved || m.Status == MilestoneStatusFailedDeadline
}

// ProofOverdue reports whether the proof window has elapsed. Milestones
// without a deadline (anything outside pending_proof) are never overdue.
func (m Milestone) ProofOverdue(now time.Time) bool {
	return m.Status == MilestoneStatusPendingProof &&
		m.ProofDeadline != nil &&
		now.After(*m.ProofDeadline)
}
