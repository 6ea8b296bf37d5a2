// Package httpx provides HTTP response utilities following RFC7807
// problem details.
package httpx

import (
	"errors"
	"net/http"

	"github.com/aegis-hr/aegis-identity/internal/shared"
)

// RespondError maps domain errors onto RFC7807 responses. Authentication
// failures stay undifferentiated; store-layer faults collapse into a
// generic internal error.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", "invalid credentials")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrAlreadyResolved):
		Problem(w, http.StatusConflict, "Already Resolved", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
