package payments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/routecash/routecash/internal/platform/httpx"
	"github.com/routecash/routecash/internal/shared"
)

// HeaderIdempotencyKey dedupes collection submissions retried by flaky
// field-device connections.
const HeaderIdempotencyKey = "X-Idempotency-Key"

type collectRequest struct {
	ShopID string  `json:"shopId" validate:"required_without=BillID"`
	BillID string  `json:"billId"`
	Amount float64 `json:"amount" validate:"gt=0"`
	Notes  string  `json:"notes"`
}

// Handler manages payment collection endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	validate    *validator.Validate
	idempotency *shared.IdempotencyStore
}

// NewHandler builds Handler instance. idempotency may be nil, disabling
// duplicate detection.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, idempotency: idempotency}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/collect", h.collect)
}

func (h *Handler) collect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	key := r.Header.Get(HeaderIdempotencyKey)
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "payments"); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	actor := shared.ActorFromContext(r.Context())
	res, err := h.service.Collect(r.Context(), actor, CollectInput{
		ShopID: req.ShopID,
		BillID: req.BillID,
		Amount: req.Amount,
		Notes:  req.Notes,
	})
	if err != nil {
		// Free the key so the client can retry after fixing the request.
		if key != "" && h.idempotency != nil {
			if derr := h.idempotency.Delete(r.Context(), key); derr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", derr))
			}
		}
		h.logger.Error("collect payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}
