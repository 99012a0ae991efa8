// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "storefront/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error envelope consumed by clients: {error: {code, message}}.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, err error) {
	// Abort first so later handlers never write.
	c.Abort()

	body := &ErrorBody{Code: code, Message: message}
	if err != nil {
		body.Message = err.Error()
	}

	c.JSON(status, Response{
		Success: false,
		Message: message,
		Error:   body,
	})
}

// FromError maps service errors onto status codes and API error codes.
func FromError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidCredentials):
		Error(c, http.StatusUnauthorized, xerrors.CodeInvalidCredentials, message, err)
	case errors.Is(err, xerrors.ErrSessionExpired):
		Error(c, http.StatusUnauthorized, xerrors.CodeInvalidToken, message, err)
	case errors.Is(err, xerrors.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, xerrors.CodeAuthFailed, message, err)
	case errors.Is(err, xerrors.ErrNotVerified), errors.Is(err, xerrors.ErrForbidden):
		Error(c, http.StatusForbidden, xerrors.CodeForbidden, message, err)
	case errors.Is(err, xerrors.ErrInvalidOTP):
		Error(c, http.StatusBadRequest, xerrors.CodeAuthFailed, message, err)
	case errors.Is(err, xerrors.ErrInvalidInput), errors.Is(err, xerrors.ErrValidation):
		Error(c, http.StatusBadRequest, xerrors.CodeValidation, message, err)
	case errors.Is(err, xerrors.ErrDuplicateEntry), errors.Is(err, xerrors.ErrConflict):
		Error(c, http.StatusConflict, xerrors.CodeUserExists, message, err)
	case errors.Is(err, xerrors.ErrRateLimited):
		Error(c, http.StatusTooManyRequests, xerrors.CodeRateLimited, message, err)
	case errors.Is(err, xerrors.ErrInvalidTransition):
		Error(c, http.StatusConflict, xerrors.CodeOrderTransition, message, err)
	case errors.Is(err, xerrors.ErrNotFound):
		Error(c, http.StatusNotFound, xerrors.CodeNotInCollection, message, err)
	default:
		Error(c, http.StatusInternalServerError, xerrors.CodeInternal, message, nil)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, xerrors.CodeValidation, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, code, message string) {
	Error(c, http.StatusUnauthorized, code, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, xerrors.CodeForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, xerrors.CodeUserNotFound, message, nil)
}
