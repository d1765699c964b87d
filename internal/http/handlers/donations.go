package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
)

type donationRequest struct {
	CampaignID     string `json:"campaign_id"`
	MilestoneIndex int    `json:"milestone_index"`
	Amount         int64  `json:"amount"`
}

// DonationsCreate records a pending donation earmarked for one milestone.
// Payment capture happens elsewhere; the donation joins the ledger once the
// capture callback completes it.
func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}
	if req.Amount <= 0 {
		a.error(w, http.StatusBadRequest, "validation", "amount must be positive")
		return
	}
	if req.MilestoneIndex < 0 {
		a.error(w, http.StatusBadRequest, "validation", "milestone index must not be negative")
		return
	}
	if _, err := a.Campaigns.GetByID(r.Context(), req.CampaignID); err != nil {
		a.fail(w, err)
		return
	}

	var donorID *string
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok && principal.Role == middleware.RoleDonor {
		donorID = &principal.Subject
	}

	donation := &domain.Donation{
		ID:             uuid.NewString(),
		CampaignID:     req.CampaignID,
		DonorID:        donorID,
		MilestoneIndex: req.MilestoneIndex,
		Amount:         req.Amount,
		Status:         domain.DonationStatusPending,
	}
	if err := a.Donations.Create(r.Context(), donation); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"id": donation.ID, "status": donation.Status})
}

type donationCompleteRequest struct {
	TxRef string `json:"tx_ref"`
}

// DonationsComplete is the payment-capture callback: it settles a pending
// donation into the ledger and re-evaluates the earmarked milestone's
// funding. The ledger write and the campaign cache refresh commit together;
// the milestone evaluation runs after and is idempotent.
func (a *App) DonationsComplete(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "id")

	var req donationCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}
	if req.TxRef == "" {
		a.error(w, http.StatusBadRequest, "validation", "tx_ref is required")
		return
	}

	donation, err := a.Donations.Complete(r.Context(), donationID, req.TxRef)
	if err != nil {
		a.fail(w, err)
		return
	}

	if err := a.Lifecycle.OnDonationCompleted(r.Context(), donation.CampaignID, donation.MilestoneIndex); err != nil {
		// The donation is committed; a failed re-evaluation is retried by
		// the next completion for the same milestone.
		a.Logger.Error().Err(err).Str("donation_id", donationID).Msg("handler: milestone re-evaluation failed")
	}

	a.json(w, http.StatusOK, map[string]any{"id": donation.ID, "status": donation.Status})
}

// DonationsFail is the payment-capture failure callback for declined or
// abandoned charges. The donation leaves the pending state for good and
// never reaches the ledger, so milestone funding is untouched.
func (a *App) DonationsFail(w http.ResponseWriter, r *http.Request) {
	donationID := chi.URLParam(r, "id")

	donation, err := a.Donations.Fail(r.Context(), donationID)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": donation.ID, "status": donation.Status})
}
