package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aegis-hr/aegis-identity/internal/approval"
	"github.com/aegis-hr/aegis-identity/internal/audit"
	"github.com/aegis-hr/aegis-identity/internal/auth"
	"github.com/aegis-hr/aegis-identity/internal/observability"
	"github.com/aegis-hr/aegis-identity/internal/principals"
	"github.com/aegis-hr/aegis-identity/internal/tenants"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Tokens            *token.Service
	AuthHandler       *auth.Handler
	ApprovalHandler   *approval.Handler
	TenantsHandler    *tenants.Handler
	PrincipalsHandler *principals.Handler
	AuditHandler      *audit.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			params.ApprovalHandler.MountPublicRoutes(r)
		})
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(params.Tokens))
			params.ApprovalHandler.MountRoutes(r)
			params.TenantsHandler.MountRoutes(r)
			params.PrincipalsHandler.MountRoutes(r)
			params.AuditHandler.MountRoutes(r)
		})
	})

	return r
}
