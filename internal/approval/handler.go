package approval

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/identity"
	"github.com/aegis-hr/aegis-identity/internal/observability"
	"github.com/aegis-hr/aegis-identity/internal/platform/httpx"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// Handler wires HTTP endpoints for the approval workflow.
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

// MountPublicRoutes registers endpoints reachable without a token.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
}

// MountRoutes registers authenticated approval endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/principals", h.handleRegister)
	r.Get("/approvals", h.handleListPending)
	r.Post("/approvals/{id}/resolve", h.handleResolve)
}

type signupRequest struct {
	CompanyName string `json:"company_name" validate:"required,min=2"`
	Domain      string `json:"domain" validate:"required,fqdn"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
}

type requestResponse struct {
	ID              string     `json:"id"`
	PrincipalID     string     `json:"principal_id"`
	TenantID        string     `json:"tenant_id"`
	RequestedRole   string     `json:"requested_role"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toRequestResponse(request Request) requestResponse {
	resp := requestResponse{
		ID:              request.ID.String(),
		PrincipalID:     request.PrincipalID.String(),
		TenantID:        request.TenantID.String(),
		RequestedRole:   string(request.RequestedRole),
		Type:            string(request.Type),
		Status:          string(request.Status),
		ResolvedAt:      request.ResolvedAt,
		RejectionReason: request.RejectionReason,
		CreatedAt:       request.CreatedAt,
	}
	if request.ReviewedBy != nil {
		resp.ReviewedBy = request.ReviewedBy.String()
	}
	return resp
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	request, err := h.service.SubmitSignup(r.Context(), SignupInput{
		CompanyName: req.CompanyName,
		Domain:      req.Domain,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveApproval("submitted")
	httpx.JSON(w, http.StatusAccepted, toRequestResponse(request))
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required"`
	TenantID string `json:"tenant_id"`
}

type registerResponse struct {
	Request   requestResponse `json:"request"`
	Principal struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"principal"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	actor, ok := token.ClaimsFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var tenantID uuid.UUID
	if req.TenantID != "" {
		parsed, err := uuid.Parse(req.TenantID)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant_id must be a UUID")
			return
		}
		tenantID = parsed
	}

	request, principal, err := h.service.SubmitRegistration(r.Context(), actor, RegistrationInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     identity.Role(req.Role),
		TenantID: tenantID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveApproval("submitted")

	var resp registerResponse
	resp.Request = toRequestResponse(request)
	resp.Principal.ID = principal.ID.String()
	resp.Principal.Email = principal.Email
	resp.Principal.Role = string(principal.Role)
	httpx.JSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := token.ClaimsFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
		return
	}
	pending, err := h.service.ListPending(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items := make([]requestResponse, 0, len(pending))
	for _, request := range pending {
		items = append(items, toRequestResponse(request))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

type resolveRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=approved rejected"`
	Reason  string `json:"reason"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := token.ClaimsFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return
	}
	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	resolved, err := h.service.Resolve(r.Context(), actor, requestID, Outcome(req.Outcome), req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveApproval(string(resolved.Status))
	httpx.JSON(w, http.StatusOK, toRequestResponse(resolved))
}
