package errors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nxtgenia/miniaturia/internal/logger"
)

// Error Handling Guidelines:
//
// For HTTP REST handlers:
//   - Use errors.InternalError(), errors.BadRequest(), etc. for failures
//     These functions handle both logging and HTTP response automatically
//   - Use logger.ErrorErr() only for non-critical errors where processing continues
//   - Never call both logger.ErrorErr() and errors.InternalError() for the same error
//
// For services/repositories/internal packages:
//   - Return wrapped errors with context using fmt.Errorf("context: %w", err)
//   - Expose sentinel errors (ErrNotFound, ErrInsufficientCredits) for errors.Is checks
//   - Let the caller (handler) decide how to log and respond

// returns a 401 unauthorized error
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error:   CodeUnauthorized,
		Message: message,
	})
}

// returns a 403 forbidden error
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "permission denied"
	}

	c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
		Error:   CodeForbidden,
		Message: message,
	})
}

// returns a 404 not found error
func NotFound(c *gin.Context, resource string) {
	message := "resource not found"

	if resource != "" {
		message = resource + " not found"
	}

	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   CodeNotFound,
		Message: message,
	})
}

// returns a 400 bad request error
func BadRequest(c *gin.Context, message string, err error) {
	if message == "" {
		message = "invalid request"
	}

	response := ErrorResponse{
		Error:   CodeBadRequest,
		Message: message,
	}

	if err != nil {
		response.Details = sanitizeError(err)
	}

	c.JSON(http.StatusBadRequest, response)
}

// returns a 400 bad request error for validation failures
func ValidationError(c *gin.Context, err error) {
	message := "validation failed"
	details := ""

	if err != nil {
		details = sanitizeError(err)
		if strings.Contains(err.Error(), "binding") || strings.Contains(err.Error(), "Field validation") {
			message = "request validation failed"
		}
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   CodeValidationError,
		Message: message,
		Details: details,
	})
}

// returns a 400 error the client treats as a paywall trigger
func InsufficientCredits(c *gin.Context, required, available int) {
	c.JSON(http.StatusBadRequest, InsufficientCreditsResponse{
		ErrorResponse: ErrorResponse{
			Error:   CodeInsufficientCredits,
			Message: "insufficient credits",
		},
		Required:  required,
		Available: available,
	})
}

// returns a 500 error for a failure reported by an upstream provider
func UpstreamFailure(c *gin.Context, code, message string, err error) {
	if code == "" {
		code = CodeUpstreamError
	}

	logger.FromContext(c.Request.Context()).Warn("upstream failure",
		"code", code,
		"path", c.Request.URL.Path,
		"user_id", c.GetString(logger.UserIDKey),
		"error", err,
	)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   code,
		Message: message,
		Details: sanitizeError(err),
	})
}

// returns a 500 internal server error
func InternalError(c *gin.Context, message string, err error) {
	if message == "" {
		message = "an error occurred"
	}

	// log full error server-side with context
	logger.FromContext(c.Request.Context()).Error(message,
		"error", err,
		"category", classifyError(err).category,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"user_id", c.GetString(logger.UserIDKey),
	)

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   CodeServerError,
		Message: message,
		Details: sanitizeError(err),
	})
}

// returns a 409 conflict error
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "resource conflict"
	}

	c.JSON(http.StatusConflict, ErrorResponse{
		Error:   CodeConflict,
		Message: message,
	})
}

// returns a 429 too many requests error
func TooManyRequests(c *gin.Context, message string) {
	if message == "" {
		message = "too many requests"
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
		Error:   CodeTooManyRequests,
		Message: message,
	})
}
