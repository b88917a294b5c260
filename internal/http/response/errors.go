package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
)

// RespondAppError maps the service error taxonomy onto HTTP statuses. Raw
// internal errors are never echoed for 5xx responses.
func RespondAppError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		RespondError(c, http.StatusUnprocessableEntity, "invalid_argument", err)
	case errors.Is(err, apperr.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperr.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, apperr.ErrQuotaExceeded):
		RespondError(c, http.StatusTooManyRequests, "quota_exceeded", err)
	case errors.Is(err, apperr.ErrContentFiltered):
		RespondError(c, http.StatusUnprocessableEntity, "content_filtered", err)
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "upstream_unavailable",
			errors.New("an upstream dependency is unavailable, please retry"))
	case errors.Is(err, apperr.ErrGeneration):
		RespondError(c, http.StatusInternalServerError, "generation_failure",
			errors.New("generation failed, please retry"))
	case errors.Is(err, apperr.ErrStorage):
		RespondError(c, http.StatusInternalServerError, "storage_failure",
			errors.New("internal storage error"))
	default:
		RespondError(c, http.StatusInternalServerError, "internal",
			errors.New("internal error"))
	}
}
