// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/silaibook/silaibook/internal/shared"
)

// ErrorCounter receives the kind of every rejected domain operation.
type ErrorCounter interface {
	DomainError(operation, kind string)
}

// Kind names the taxonomy entry of err, or "Internal" for unclassified errors.
func Kind(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, shared.ErrNotFound):
		return "NotFound"
	case errors.Is(err, shared.ErrInsufficientStock):
		return "InsufficientStock"
	case errors.Is(err, shared.ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, shared.ErrDuplicate):
		return "Duplicate"
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return "Forbidden"
	default:
		return "Internal"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch kind := Kind(err); kind {
	case "InvalidInput":
		Problem(w, http.StatusBadRequest, kind, err.Error())
	case "NotFound":
		Problem(w, http.StatusNotFound, kind, err.Error())
	case "InsufficientStock", "InvalidState", "Duplicate":
		Problem(w, http.StatusConflict, kind, err.Error())
	case "Unauthorized":
		Problem(w, http.StatusUnauthorized, kind, err.Error())
	case "Forbidden":
		Problem(w, http.StatusForbidden, kind, err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
