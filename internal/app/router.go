package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-crm/meridian/internal/analytics"
	"github.com/meridian-crm/meridian/internal/auth"
	"github.com/meridian-crm/meridian/internal/customers"
	"github.com/meridian-crm/meridian/internal/impersonation"
	"github.com/meridian-crm/meridian/internal/interactions"
	"github.com/meridian-crm/meridian/internal/masterdata/divisions"
	"github.com/meridian-crm/meridian/internal/masterdata/products"
	"github.com/meridian-crm/meridian/internal/masterdata/sources"
	"github.com/meridian-crm/meridian/internal/observability"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/settings"
	"github.com/meridian-crm/meridian/internal/shared"
	"github.com/meridian-crm/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	ProfilesHandler      *profiles.Handler
	ImpersonationHandler *impersonation.Handler
	CustomersHandler     *customers.Handler
	InteractionsHandler  *interactions.Handler
	DivisionsHandler     *divisions.Handler
	SourcesHandler       *sources.Handler
	ProductsHandler      *products.Handler
	AnalyticsHandler     *analytics.Handler
	SettingsHandler      *settings.Handler
	JobsHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	params.ProfilesHandler.MountMe(r)
	r.Route("/impersonation", params.ImpersonationHandler.MountRoutes)
	r.Route("/users", params.ProfilesHandler.MountRoutes)
	r.Route("/customers", params.CustomersHandler.MountRoutes)
	r.Route("/interactions", params.InteractionsHandler.MountRoutes)
	r.Route("/masterdata", func(md chi.Router) {
		md.Route("/divisions", params.DivisionsHandler.MountRoutes)
		md.Route("/sources", params.SourcesHandler.MountRoutes)
		md.Route("/products", params.ProductsHandler.MountRoutes)
	})
	params.AnalyticsHandler.MountRoutes(r)
	r.Route("/settings", params.SettingsHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
