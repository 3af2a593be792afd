package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/educlove/educlove-backend/internal/models"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and logs one line on the way
// out with method, path, status and latency.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)
		c.Set("request_id", reqID)

		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"request_id": reqID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if v, ok := c.Get(CtxUserKey); ok {
			if u, ok := v.(*models.User); ok {
				fields["user_id"] = u.ID
			}
		}

		entry := log.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request")
		case c.Writer.Status() >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
