package orders

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routecash/routecash/internal/platform/httpx"
	"github.com/routecash/routecash/internal/shared"
)

// Handler manages order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate) *Handler {
	return &Handler{logger: logger, service: service, validate: validate}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/request-edit", h.requestEdit)
	r.Post("/{id}/approve-edit", h.approveEdit)
	r.Post("/{id}/reject-edit", h.rejectEdit)
	r.Post("/{id}/finalize", h.finalize)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/assign", h.assign)
	r.Post("/{id}/deliver", h.deliver)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	o, err := h.service.Create(r.Context(), actor, CreateInput{
		ShopID:      req.ShopID,
		Items:       toItems(req.Items),
		PaymentMode: PaymentMode(req.PaymentMode),
		CashAmount:  req.CashAmount,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Error("create order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if shopID := r.URL.Query().Get("shopId"); shopID != "" {
		out, err := h.service.ListByShop(ctx, shopID)
		if err != nil {
			h.logger.Error("list orders by shop", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		out, err := h.service.ListByStatus(ctx, Status(status))
		if err != nil {
			h.logger.Error("list orders by status", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
		return
	}
	httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "shopId or status query parameter required")
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	o, err := h.service.Update(r.Context(), actor, chi.URLParam(r, "id"), UpdateInput{
		Items:       toItems(req.Items),
		PaymentMode: PaymentMode(req.PaymentMode),
		CashAmount:  req.CashAmount,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Error("update order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	o, err := h.service.Submit(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("submit order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) requestEdit(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.RequestEdit(r.Context(), actor, id); err != nil {
		h.logger.Error("request edit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusEditRequested)})
}

func (h *Handler) approveEdit(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if err := h.service.ApproveEdit(r.Context(), actor, id); err != nil {
		h.logger.Error("approve edit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusSubmitted)})
}

func (h *Handler) rejectEdit(w http.ResponseWriter, r *http.Request) {
	var req rejectOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.RejectEdit(r.Context(), actor, chi.URLParam(r, "id"), req.Reason); err != nil {
		h.logger.Error("reject edit", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusRejected)})
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	o, err := h.service.Finalize(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("finalize order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req rejectOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Reject(r.Context(), actor, chi.URLParam(r, "id"), req.Reason); err != nil {
		h.logger.Error("reject order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusRejected)})
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	o, err := h.service.Assign(r.Context(), actor, chi.URLParam(r, "id"), req.SalesmanID)
	if err != nil {
		h.logger.Error("assign order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	o, err := h.service.MarkDelivered(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error("mark delivered", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}
