package products

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-crm/meridian/internal/masterdata/shared"
	"github.com/meridian-crm/meridian/internal/platform/httpx"
	internalShared "github.com/meridian-crm/meridian/internal/shared"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	actors    shared.ActorResolver
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, actors shared.ActorResolver) *Handler {
	return &Handler{logger: logger, service: service, actors: actors, validator: validator.New()}
}

type productRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.actors.ActingProfile(r); err != nil {
		h.respondError(w, err)
		return
	}
	filters := shared.ListFilters{Search: r.URL.Query().Get("search")}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filters.Offset = n
		}
	}
	products, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if _, _, err := h.actors.ActingProfile(r); err != nil {
		h.respondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWrite(w, r)
	if !ok {
		return
	}
	product, err := h.service.Create(r.Context(), Product{
		Name: req.Name, Description: req.Description, Price: req.Price, Stock: req.Stock,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeWrite(w, r)
	if !ok {
		return
	}
	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), Product{
		Name: req.Name, Description: req.Description, Price: req.Price, Stock: req.Stock,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if acting == nil || !shared.CanWrite(acting.Role) {
		h.respondError(w, internalShared.ErrPermissionDenied)
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) decodeWrite(w http.ResponseWriter, r *http.Request) (productRequest, bool) {
	var req productRequest
	acting, _, err := h.actors.ActingProfile(r)
	if err != nil {
		h.respondError(w, err)
		return req, false
	}
	if acting == nil || !shared.CanWrite(acting.Role) {
		h.respondError(w, internalShared.ErrPermissionDenied)
		return req, false
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, internalShared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "not logged in")
	case errors.Is(err, internalShared.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
	case errors.Is(err, internalShared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
	default:
		h.logger.Error("products handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
