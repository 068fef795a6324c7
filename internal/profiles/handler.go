package profiles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-crm/meridian/internal/platform/httpx"
	"github.com/meridian-crm/meridian/internal/shared"
)

// Handler wires HTTP endpoints for the effective profile and user
// administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *Resolver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *Resolver) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		validator: validator.New(),
	}
}

// MountMe registers the effective-profile endpoint.
func (h *Handler) MountMe(r chi.Router) {
	r.Get("/me", h.me)
}

// MountRoutes registers user administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// ActingProfile resolves the effective profile for the current session.
// A nil profile with a nil error means the caller is authenticated but
// unprovisioned.
func (h *Handler) ActingProfile(r *http.Request) (*Profile, bool, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return nil, false, shared.ErrInvalidCredentials
	}
	res, err := h.resolver.Resolve(r.Context(), sess.User(), sess)
	if err != nil {
		return nil, false, err
	}
	return res.Profile, res.IsImpersonating, nil
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
		return
	}
	res, err := h.resolver.Resolve(r.Context(), sess.User(), sess)
	if err != nil {
		h.logger.Error("resolve effective profile", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), acting)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	profile, err := h.service.CreateUser(r.Context(), acting, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	profile, err := h.service.UpdateUser(r.Context(), acting, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), acting, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var dep *DependentCustomersError
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
	case errors.Is(err, shared.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &dep):
		httpx.Problem(w, http.StatusConflict, "Conflict", dep.Error())
	default:
		h.logger.Error("profiles handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
