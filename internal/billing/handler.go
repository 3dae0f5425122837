package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/routecash/routecash/internal/platform/httpx"
	"github.com/routecash/routecash/internal/shared"
)

// Handler manages billing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders/{orderID}/bill", h.billOrder)
	r.Post("/orders/{orderID}/load-form", h.generateLoadForm)
	r.Get("/bills/{id}", h.getBill)
	r.Get("/orders/{orderID}/bill", h.getBillByOrder)
	r.Get("/shops/{shopID}/outstanding", h.outstanding)
}

func (h *Handler) billOrder(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	b, err := h.service.BillOrder(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		h.logger.Error("bill order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) generateLoadForm(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	f, err := h.service.GenerateLoadForm(r.Context(), actor, chi.URLParam(r, "orderID"))
	if err != nil {
		h.logger.Error("generate load form", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, f)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) getBillByOrder(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBillByOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.OutstandingPayments(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		h.logger.Error("list outstanding", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
