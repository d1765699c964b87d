package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/escrow"
)

// App bundles the engine services and ports the HTTP handlers depend on.
type App struct {
	Logger  zerolog.Logger
	Service string

	Campaigns     domain.CampaignRepository
	Milestones    domain.MilestoneRepository
	Donations     domain.DonationRepository
	Organizations domain.OrganizationRepository

	Aggregator *escrow.Aggregator
	Lifecycle  *escrow.Lifecycle
	Reviewer   *escrow.Reviewer
	Sweeper    *escrow.Sweeper
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

// fail maps engine errors onto the API taxonomy. Callers need to tell
// "you sent garbage" (validation) apart from "someone else already acted"
// (state conflict) and from a closed proof window (deadline exceeded).
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, domain.ErrDeadlineExceeded):
		a.error(w, http.StatusUnprocessableEntity, "deadline_exceeded", err.Error())
	case errors.Is(err, domain.ErrStateConflict):
		a.error(w, http.StatusConflict, "state_conflict", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("handler: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
