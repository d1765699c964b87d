package domain

// SettlementRequest is handed to the external settlement signer once a
// milestone is approved. The signer moves the custodied funds and returns a
// verifiable transaction reference; the engine never touches the ledger
// itself.
type SettlementRequest struct {
	CampaignID  string
	MilestoneID string
	Destination string
	Amount      int64
}
