package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/MaStr/pv-bat-simulator/internal/api/models"
	"github.com/MaStr/pv-bat-simulator/internal/dispatch"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// errorDetail classifies an engine error. Invalid input is a client error, a
// non-optimal solver status is reported as unprocessable.
func errorDetail(err error) (int, models.ErrorDetail) {
	var statusErr *dispatch.SolverStatusError
	switch {
	case errors.As(err, &statusErr):
		return http.StatusUnprocessableEntity, models.ErrorDetail{
			Code:    "SOLVER_STATUS",
			Message: err.Error(),
			Details: map[string]interface{}{
				"optimierungsstatus": statusErr.Status.String(),
			},
		}
	case errors.Is(err, dispatch.ErrInvalidRequest):
		return http.StatusBadRequest, models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, models.ErrorDetail{
			Code:    "COMPUTE_ERROR",
			Message: err.Error(),
		}
	}
}

func respondEngineError(c *gin.Context, err error) {
	status, detail := errorDetail(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("[Compute] failed")
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: detail})
}
