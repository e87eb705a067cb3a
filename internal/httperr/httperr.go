package httperr

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/logger"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

// FromError writes the response for an error returned by a use case.
func FromError(c *gin.Context, err error) {
	var (
		ve *coverage.ValidationError
		ee *coverage.EmptyCoverageError
		nf *coverage.NotFoundError
		ce *coverage.ConflictError
		pf *coverage.PartialFailureError
		le *coverage.ExternalLookupError
	)

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, HTTPError{Code: "validation_error", Message: ve.Error(), Field: ve.Field})

	case errors.As(err, &ee):
		c.JSON(http.StatusUnprocessableEntity, HTTPError{
			Code:    "empty_coverage",
			Message: ee.Error() + "; enter postal codes manually instead",
			Reason:  ee.Reason,
		})

	case errors.As(err, &nf):
		NotFound(c, "not_found", nf.Error())

	case errors.As(err, &ce):
		// re-adding what is already there is a no-op
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"affectedCount": 0,
			"message":       "already present",
		})

	case errors.As(err, &pf):
		logger.L().Error("partial failure", "path", c.FullPath(), "err", err)
		Internal(c, "partial_failure",
			"The change was only partly applied and could not be rolled back. Review this worker's coverage before retrying.")

	case errors.As(err, &le):
		Write(c, http.StatusBadGateway, "external_lookup_failed", le.Error())

	case errors.Is(err, context.DeadlineExceeded):
		Write(c, http.StatusGatewayTimeout, "timeout", "request timed out")

	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		c.Status(499)

	default:
		logger.L().Error("request failed", "path", c.FullPath(), "err", err)
		Internal(c, "internal_error", "unexpected error")
	}
}
