package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

const rateWindow = time.Minute

// NewRouter assembles the API surface. Route guards: organization routes
// need an org JWT, the decision route is pinned to the single designated
// admin principal, and machine routes (sweep trigger, payment capture
// callback) carry the static internal token.
func NewRouter(app *handlers.App, cfg *infra.Config, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
		middleware.Logger(logger),
		middleware.Authenticate(cfg.JWTSecret),
	)

	r.Get("/v1/healthz", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/campaigns", func(r chi.Router) {
		r.Get("/{id}/progress", app.CampaignsProgress)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleOrganization))
			r.Post("/", app.CampaignsCreate)
			r.Post("/{id}/publish", app.CampaignsPublish)
		})
	})

	r.Route("/v1/donations", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, rateWindow)).
			Post("/", app.DonationsCreate)
		r.With(middleware.RequireStaticToken(cfg.SweepToken)).
			Post("/{id}/complete", app.DonationsComplete)
		r.With(middleware.RequireStaticToken(cfg.SweepToken)).
			Post("/{id}/fail", app.DonationsFail)
	})

	r.Route("/v1/milestones", func(r chi.Router) {
		r.With(middleware.RequireRole(middleware.RoleOrganization)).
			Post("/{id}/proof", app.MilestonesSubmitProof)
		r.With(middleware.RequireAdmin(cfg.AdminUserID)).
			Post("/{id}/decision", app.MilestonesDecide)
	})

	r.Route("/v1/organizations", func(r chi.Router) {
		r.Get("/{id}", app.OrganizationsGet)
		r.With(middleware.RequireAdmin(cfg.AdminUserID)).
			Post("/", app.OrganizationsCreate)
	})

	r.With(middleware.RequireStaticToken(cfg.SweepToken)).
		Post("/v1/internal/sweep", app.SweepTrigger)
	r.With(middleware.RequireStaticToken(cfg.SweepToken)).
		Post("/v1/internal/donors/{id}/unlink", app.DonorsUnlink)

	return r
}
