package httpx

import (
	"errors"
	"net/http"

	"github.com/routecash/routecash/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrNotFinalized):
		Problem(w, http.StatusConflict, "Not Finalized", err.Error())
	case errors.Is(err, shared.ErrEditAlreadyRequested):
		Problem(w, http.StatusConflict, "Edit Already Requested", err.Error())
	case errors.Is(err, shared.ErrPeriodNotFound):
		Problem(w, http.StatusNotFound, "Period Not Found", err.Error())
	case errors.Is(err, shared.ErrNoOutstandingBills):
		Problem(w, http.StatusConflict, "No Outstanding Bills", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
