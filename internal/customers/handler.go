package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-crm/meridian/internal/platform/httpx"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/shared"
)

// ActorResolver yields the effective acting profile for a request. The
// profiles handler satisfies it.
type ActorResolver interface {
	ActingProfile(r *http.Request) (*profiles.Profile, bool, error)
}

// Handler wires HTTP endpoints for customer management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	actors    ActorResolver
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, actors ActorResolver) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		actors:    actors,
		validator: validator.New(),
	}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	req := ListCustomersRequest{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		req.Status = &v
	}
	if v := q.Get("division_id"); v != "" {
		req.DivisionID = &v
	}
	if v := q.Get("assigned_to"); v != "" {
		req.AssignedTo = &v
	}
	if v := q.Get("search"); v != "" {
		req.Search = &v
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Offset = n
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.List(r.Context(), acting, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	customer, err := h.service.Get(r.Context(), acting, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req CreateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customer, err := h.service.Create(r.Context(), acting, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customer, err := h.service.Update(r.Context(), acting, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), acting, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "customer not found")
	default:
		h.logger.Error("customers handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
