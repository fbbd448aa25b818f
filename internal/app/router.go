package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pactline/pactline/internal/audit"
	"github.com/pactline/pactline/internal/auth"
	"github.com/pactline/pactline/internal/companies"
	"github.com/pactline/pactline/internal/contracts"
	"github.com/pactline/pactline/internal/observability"
	"github.com/pactline/pactline/internal/shared"
	"github.com/pactline/pactline/internal/users"
	"github.com/pactline/pactline/internal/workspaces"
	"github.com/pactline/pactline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	ActorLoader    func(http.Handler) http.Handler

	AuthHandler       *auth.Handler
	CompaniesHandler  *companies.Handler
	WorkspacesHandler *workspaces.Handler
	ContractsHandler  *contracts.Handler
	UsersHandler      *users.Handler
	AuditHandler      *audit.Handler
	JobsHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Pactline defaults.
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
	if params.ActorLoader != nil {
		r.Use(params.ActorLoader)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.CompaniesHandler != nil {
		r.Route("/companies", params.CompaniesHandler.MountRoutes)
	}
	if params.WorkspacesHandler != nil {
		r.Route("/workspaces", params.WorkspacesHandler.MountRoutes)
	}
	if params.ContractsHandler != nil {
		r.Route("/contracts", params.ContractsHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
