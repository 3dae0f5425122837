package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routecash/routecash/internal/platform/httpx"
	"github.com/routecash/routecash/internal/shared"
)

type createUserRequest struct {
	Name               string  `json:"name" validate:"required"`
	Role               string  `json:"role" validate:"required,oneof=booker kpo salesman admin"`
	MaxDiscountPercent float64 `json:"maxDiscountPercent" validate:"gte=0,lte=100"`
}

type resetDiscountRequest struct {
	PeriodKey string `json:"periodKey" validate:"required"`
}

// Handler manages user endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/reset-discount", h.resetDiscount)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.Create(r.Context(), CreateInput{
		Name:               req.Name,
		Role:               req.Role,
		MaxDiscountPercent: req.MaxDiscountPercent,
	})
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, u)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role query parameter required")
		return
	}
	out, err := h.service.ListByRole(r.Context(), role)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) resetDiscount(w http.ResponseWriter, r *http.Request) {
	var req resetDiscountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.ResetUnauthorizedDiscount(r.Context(), actor, chi.URLParam(r, "id"), req.PeriodKey); err != nil {
		h.logger.Error("reset unauthorized discount", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
