package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"server/internal/escrow"
	"server/internal/middleware"
)

type proofRequest struct {
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Invoices    []string `json:"invoices"`
}

// MilestonesSubmitProof accepts the organization's proof of fund usage for
// a milestone awaiting it.
func (a *App) MilestonesSubmitProof(w http.ResponseWriter, r *http.Request) {
	milestoneID := chi.URLParam(r, "id")
	principal, _ := middleware.PrincipalFromContext(r.Context())

	milestone, err := a.Milestones.GetByID(r.Context(), milestoneID)
	if err != nil {
		a.fail(w, err)
		return
	}
	campaign, err := a.Campaigns.GetByID(r.Context(), milestone.CampaignID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if campaign.OrgID != principal.Subject {
		a.error(w, http.StatusUnauthorized, "unauthorized", "milestone belongs to another organization")
		return
	}

	var req proofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}

	if err := a.Reviewer.SubmitProof(r.Context(), milestoneID, req.Description, req.Images, req.Invoices); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": milestoneID, "status": "pending_review"})
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Remarks  string `json:"remarks"`
}

// MilestonesDecide applies the reviewer's verdict. The route itself is
// restricted to the designated admin principal.
func (a *App) MilestonesDecide(w http.ResponseWriter, r *http.Request) {
	milestoneID := chi.URLParam(r, "id")

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}

	if err := a.Reviewer.Decide(r.Context(), milestoneID, escrow.Decision(req.Decision), req.Remarks); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": milestoneID, "decision": req.Decision})
}
