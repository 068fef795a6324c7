package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	mdshared "github.com/meridian-crm/meridian/internal/masterdata/shared"
	"github.com/meridian-crm/meridian/internal/platform/httpx"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	actors    mdshared.ActorResolver
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, actors mdshared.ActorResolver) *Handler {
	return &Handler{logger: logger, service: service, actors: actors, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/system", h.listSystem)
	r.Put("/system/{key}", h.updateSystem)
	r.Get("/company", h.getCompany)
	r.Put("/company", h.updateCompany)
	r.Get("/preferences", h.getPreferences)
	r.Put("/preferences", h.updatePreferences)
	r.Get("/notifications", h.getNotifications)
	r.Put("/notifications", h.updateNotifications)
}

func (h *Handler) listSystem(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	settings, err := h.service.ListSystem(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (h *Handler) updateSystem(w http.ResponseWriter, r *http.Request) {
	var req UpdateSystemSettingRequest
	acting, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	setting, err := h.service.UpdateSystem(r.Context(), acting, chi.URLParam(r, "key"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	setting, err := h.service.GetCompany(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	var req UpdateCompanySettingRequest
	acting, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	setting, err := h.service.UpdateCompany(r.Context(), acting, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	pref, err := h.service.GetPreference(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pref)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserPreferenceRequest
	acting, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	pref, err := h.service.UpdatePreference(r.Context(), acting, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pref)
}

func (h *Handler) getNotifications(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	setting, err := h.service.GetNotifications(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

func (h *Handler) updateNotifications(w http.ResponseWriter, r *http.Request) {
	var req UpdateNotificationSettingRequest
	acting, ok := h.decode(w, r, &req)
	if !ok {
		return
	}
	setting, err := h.service.UpdateNotifications(r.Context(), acting, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, setting)
}

// decode resolves the actor and binds the JSON body. Role checks stay in the
// service because preference writes are self-service while global settings
// need a masterdata-grade role.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) (*profiles.Profile, bool) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return nil, false
	}
	if err := httpx.DecodeJSON(r, req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return nil, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, false
	}
	return acting, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
	case errors.Is(err, shared.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
	case errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "setting not found")
	default:
		h.logger.Error("settings handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
