package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
)

type organizationCreateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OrganizationsCreate registers an organization account. The identity
// itself lives in the out-of-scope auth service; this row is what the
// sweeper blocks and notifications reference.
func (a *App) OrganizationsCreate(w http.ResponseWriter, r *http.Request) {
	var req organizationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "validation", "name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	org := &domain.OrganizationAccount{
		ID:     req.ID,
		Name:   req.Name,
		Status: domain.AccountStatusActive,
	}
	if err := a.Organizations.Create(r.Context(), org); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"id": org.ID, "account_status": org.Status})
}

// OrganizationsGet returns an organization account, including its blocked
// state and reason.
func (a *App) OrganizationsGet(w http.ResponseWriter, r *http.Request) {
	org, err := a.Organizations.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":             org.ID,
		"name":           org.Name,
		"account_status": org.Status,
		"blocked_reason": org.BlockedReason,
		"blocked_at":     org.BlockedAt,
	})
}

// DonorsUnlink is the account-deletion hook: it detaches a donor from their
// donations without deleting the donation rows.
func (a *App) DonorsUnlink(w http.ResponseWriter, r *http.Request) {
	donorID := chi.URLParam(r, "id")
	if err := a.Donations.UnlinkDonor(r.Context(), donorID); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"donor_id": donorID, "status": "unlinked"})
}
