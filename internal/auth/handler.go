package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/observability"
	"github.com/aegis-hr/aegis-identity/internal/platform/httpx"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// loginRoute declares one login entry point: the path suffix, the role
// set it accepts, and whether it resolves a tenant domain.
type loginRoute struct {
	path     string
	roles    RoleSet
	platform bool
}

var loginRoutes = []loginRoute{
	{path: "/login/platform", roles: RoleSet{identity.RolePlatformAdmin, identity.RolePlatformSuperAdmin}, platform: true},
	{path: "/login/company-super-admin", roles: RoleSet{identity.RoleCompanySuperAdmin}},
	{path: "/login/company-admin", roles: RoleSet{identity.RoleCompanyAdmin}},
	{path: "/login/employee", roles: RoleSet{identity.RoleEmployee}},
}

// MountRoutes registers auth routes on the provided router. Login
// endpoints get a tight per-IP rate limit on top of the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		for _, route := range loginRoutes {
			r.Post(route.path, h.handleLogin(route))
		}
	})
	r.Post("/refresh", h.handleRefresh)
}

type loginRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	TenantDomain string `json:"tenant_domain"`
}

type principalResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token     string            `json:"token"`
	Principal principalResponse `json:"principal"`
}

func (h *Handler) handleLogin(route loginRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		if !route.platform && req.TenantDomain == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant_domain required")
			return
		}
		if route.platform {
			req.TenantDomain = ""
		}

		raw, principal, err := h.service.Login(r.Context(), LoginInput{
			Email:        req.Email,
			TenantDomain: req.TenantDomain,
			Password:     req.Password,
		}, route.roles)
		if err != nil {
			h.metrics.ObserveLogin("deny")
			httpx.RespondError(w, err)
			return
		}
		h.metrics.ObserveLogin("allow")
		httpx.JSON(w, http.StatusOK, loginResponse{
			Token:     raw,
			Principal: toPrincipalResponse(principal),
		})
	}
}

type refreshRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fresh, err := h.service.Refresh(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "token expired")
		case errors.Is(err, token.ErrInvalid):
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
		default:
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": fresh})
}

func toPrincipalResponse(p identity.Principal) principalResponse {
	resp := principalResponse{
		ID:    p.ID.String(),
		Email: p.Email,
		Role:  string(p.Role),
	}
	if !p.Role.PlatformTier() {
		resp.TenantID = p.TenantID.String()
	}
	return resp
}
