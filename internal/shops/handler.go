package shops

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routecash/routecash/internal/platform/httpx"
	"github.com/routecash/routecash/internal/shared"
)

type shopRequest struct {
	Name      string `json:"name" validate:"required"`
	OwnerName string `json:"ownerName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Area      string `json:"area"`
}

type updateShopRequest struct {
	Name      string `json:"name"`
	OwnerName string `json:"ownerName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Area      string `json:"area"`
}

// Handler manages shop endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers shop routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Get("/{id}/balance", h.balance)
	r.Get("/{id}/statement", h.statement)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	shop, err := h.service.Create(r.Context(), actor, CreateInput{
		Name:      req.Name,
		OwnerName: req.OwnerName,
		Phone:     req.Phone,
		Address:   req.Address,
		Area:      req.Area,
	})
	if err != nil {
		h.logger.Error("create shop", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shop)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	area := r.URL.Query().Get("area")
	if area == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "area query parameter required")
		return
	}
	out, err := h.service.ListByArea(r.Context(), area)
	if err != nil {
		h.logger.Error("list shops", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	shop, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shop)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateShopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	shop, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), CreateInput{
		Name:      req.Name,
		OwnerName: req.OwnerName,
		Phone:     req.Phone,
		Address:   req.Address,
		Area:      req.Area,
	})
	if err != nil {
		h.logger.Error("update shop", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shop)
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balance, err := h.service.Balance(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shopId": id, "balance": balance})
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Statement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}
