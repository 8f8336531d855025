package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pftsystem/internal/logger"
)

const requestIDKey = "requestID"

// RequestCounter counts served API requests. It backs the system usage
// figure of the admin dashboard.
type RequestCounter struct {
	total atomic.Int64
}

// TotalRequests returns the number of requests seen since startup.
func (rc *RequestCounter) TotalRequests() int64 {
	return rc.total.Load()
}

// RequestLogging returns a Gin middleware that logs each request with a unique
// request ID, method, path, status code, latency, and client IP using Zap.
// Requests are counted on counter when it is not nil.
func RequestLogging(counter *RequestCounter) gin.HandlerFunc {
	log := logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()

		requestID := uuid.New().String()
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		if counter != nil {
			counter.total.Add(1)
		}

		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := c.Get(ContextUserID); ok {
			fields = append(fields, "user_id", userID)
		}
		log.Infow("request", fields...)
	}
}
