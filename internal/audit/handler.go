package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aegis-hr/aegis-identity/internal/authz"
	"github.com/aegis-hr/aegis-identity/internal/platform/httpx"
	"github.com/aegis-hr/aegis-identity/internal/shared"
	"github.com/aegis-hr/aegis-identity/internal/token"
)

// Handler exposes the audit timeline to platform staff.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.handleTimeline)
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	actor, ok := token.ClaimsFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing credentials")
		return
	}
	if d := authz.Authorize(actor, authz.CapAuditView, uuid.Nil); !d.Allowed {
		httpx.RespondError(w, fmt.Errorf("%w: %s", shared.ErrForbidden, d.Reason))
		return
	}

	query := r.URL.Query()
	filters := TimelineFilters{
		Action: query.Get("action"),
		Entity: query.Get("entity"),
	}
	if raw := query.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339")
			return
		}
		filters.From = ts
	}
	if raw := query.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC3339")
			return
		}
		filters.To = ts
	}
	filters.Page, _ = strconv.Atoi(query.Get("page"))
	filters.PageSize, _ = strconv.Atoi(query.Get("page_size"))

	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
