package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
)

type campaignCreateRequest struct {
	Title      string `json:"title"`
	GoalAmount int64  `json:"goal_amount"`
}

// CampaignsCreate registers a draft campaign owned by the calling
// organization.
func (a *App) CampaignsCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "organization token required")
		return
	}

	var req campaignCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}
	if req.Title == "" {
		a.error(w, http.StatusBadRequest, "validation", "title is required")
		return
	}
	if req.GoalAmount <= 0 {
		a.error(w, http.StatusBadRequest, "validation", "goal amount must be positive")
		return
	}

	campaign := &domain.Campaign{
		ID:         uuid.NewString(),
		OrgID:      principal.Subject,
		Title:      req.Title,
		Status:     domain.CampaignStatusDraft,
		GoalAmount: req.GoalAmount,
	}
	if err := a.Campaigns.Create(r.Context(), campaign); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusCreated, map[string]any{"id": campaign.ID, "status": campaign.Status})
}

type publishRequest struct {
	Milestones []struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		TargetAmount int64  `json:"target_amount"`
		FundsPercent int    `json:"funds_percent"`
	} `json:"milestones"`
}

// CampaignsPublish opens a draft campaign for donations, creating one
// milestone row per declared stage. Stage 0 starts active, the rest locked.
func (a *App) CampaignsPublish(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")
	principal, _ := middleware.PrincipalFromContext(r.Context())

	campaign, err := a.Campaigns.GetByID(r.Context(), campaignID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if campaign.OrgID != principal.Subject {
		a.error(w, http.StatusUnauthorized, "unauthorized", "campaign belongs to another organization")
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "invalid payload")
		return
	}

	specs := make([]domain.MilestoneSpec, 0, len(req.Milestones))
	for _, m := range req.Milestones {
		specs = append(specs, domain.MilestoneSpec{
			Title:        m.Title,
			Description:  m.Description,
			TargetAmount: m.TargetAmount,
			FundsPercent: m.FundsPercent,
		})
	}
	if err := a.Lifecycle.Publish(r.Context(), campaignID, specs); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": campaignID, "status": domain.CampaignStatusOngoing, "milestones": len(specs)})
}

// CampaignsProgress reports per-milestone funding progress. Donor tokens
// additionally get their own contribution totals.
func (a *App) CampaignsProgress(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "id")

	donorID := ""
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok && principal.Role == middleware.RoleDonor {
		donorID = principal.Subject
	}

	progress, err := a.Aggregator.CampaignProgress(r.Context(), campaignID, donorID)
	if err != nil {
		a.fail(w, err)
		return
	}

	milestones := make([]map[string]any, 0, len(progress.Milestones))
	for _, row := range progress.Milestones {
		item := map[string]any{
			"id":             row.Milestone.ID,
			"index":          row.Milestone.Index,
			"title":          row.Milestone.Title,
			"target_amount":  row.Milestone.TargetAmount,
			"status":         row.Milestone.Status,
			"display_status": row.DisplayStatus,
			"global_total":   row.GlobalTotal,
			"proof_deadline": row.Milestone.ProofDeadline,
			"payout_tx_hash": row.Milestone.PayoutTxHash,
		}
		if donorID != "" {
			item["donor_total"] = row.DonorTotal
		}
		milestones = append(milestones, item)
	}

	a.json(w, http.StatusOK, map[string]any{
		"campaign": map[string]any{
			"id":               progress.Campaign.ID,
			"title":            progress.Campaign.Title,
			"status":           progress.Campaign.Status,
			"goal_amount":      progress.Campaign.GoalAmount,
			"collected_amount": progress.Campaign.CollectedAmount,
		},
		"milestones": milestones,
	})
}
