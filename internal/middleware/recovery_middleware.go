package middleware

import (
	"errors"
	"net/http"
	"syscall"

	xerrors "storefront/internal/pkg/errors"
	"storefront/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into the standard INTERNAL_001
// envelope. Panics caused by the client going away are logged but not answered.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := []zap.Field{
				zap.Any("panic", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			}
			if id, ok := GetIdentityID(c); ok {
				fields = append(fields, zap.String("identity_id", id))
			}

			if err, ok := rec.(error); ok && clientGone(err) {
				logger.Warn("client disconnected mid-response", fields...)
				c.Abort()
				return
			}

			logger.Error("panic recovered", append(fields, zap.Stack("stack"))...)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, http.StatusInternalServerError, xerrors.CodeInternal, "internal server error", nil)
		}()
		c.Next()
	}
}

func clientGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, http.ErrAbortHandler)
}
