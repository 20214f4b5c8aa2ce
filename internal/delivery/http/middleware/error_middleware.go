package middleware

import (
	"errors"
	"net/http"

	"contact-form-backend/internal/delivery/http/response"
	"contact-form-backend/pkg/apperror"
	"contact-form-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns errors attached to the gin context into the standard
// JSON envelope. The contact endpoint writes its own responses (redirects and
// HTML pages); this covers everything else.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				response.Error(c, appErr.Code, appErr.Message)
				return
			}
			// Never expose internal error details to clients. Log the real
			// error server-side and send a generic message.
			logger.Log.Error("Unhandled error", "error", err.Error())
			response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
		}
	}
}
