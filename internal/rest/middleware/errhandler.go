package middleware

import (
	ierr "github.com/condohub/billing/internal/errors"
	"github.com/condohub/billing/internal/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error attached to the gin context with the
// status derived from its category
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.Errorw("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", status,
				"code", ierr.Code(err),
				"error", err,
			)
		}

		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
