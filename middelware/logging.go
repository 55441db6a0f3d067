package middelware

import (
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware provides request logging
type LoggingMiddleware struct {
	logger    logger.Logger
	skipPaths map[string]struct{}
}

// NewLoggingMiddleware creates a new logging middleware. Requests to skipPaths are not logged.
func NewLoggingMiddleware(log logger.Logger, skipPaths ...string) *LoggingMiddleware {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return &LoggingMiddleware{
		logger:    log,
		skipPaths: skip,
	}
}

// StructuredLogger logs one entry per request with its outcome
func (m *LoggingMiddleware) StructuredLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if _, skip := m.skipPaths[path]; skip {
			return
		}

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    path,
			"route":   c.FullPath(),
			"query":   c.Request.URL.RawQuery,
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if userID, ok := c.Get(UserIDKey); ok {
			fields["user_id"] = userID
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		entry := m.logger.WithFields(fields)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("HTTP request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("HTTP request rejected")
		default:
			entry.Info("HTTP request completed")
		}
	}
}

// Recovery turns a panic into a 500 envelope
func (m *LoggingMiddleware) Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(gin.DefaultErrorWriter, func(c *gin.Context, recovered interface{}) {
		m.logger.WithFields(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Errorf("Panic recovered: %v", recovered)

		c.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
			Success: false,
			Error: &models.APIError{
				Code:    models.ErrorCodeInternal,
				Message: "An unexpected error occurred",
			},
		})
	})
}
