package analytics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-crm/meridian/internal/platform/httpx"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// ActorResolver yields the effective acting profile for a request.
type ActorResolver interface {
	ActingProfile(r *http.Request) (*profiles.Profile, bool, error)
}

// Handler wires the dashboard and analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	actors  ActorResolver
}

func NewHandler(logger *slog.Logger, service *Service, actors ActorResolver) *Handler {
	return &Handler{logger: logger, service: service, actors: actors}
}

// MountRoutes registers the read-only analytics endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/analytics", h.overview)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	dashboard, err := h.service.GetDashboard(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	overview, err := h.service.GetOverview(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
	case errors.Is(err, shared.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
	default:
		h.logger.Error("analytics handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
