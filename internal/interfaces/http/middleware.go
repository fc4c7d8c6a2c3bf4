package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/pm-status-review/internal/application/review"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "session"
)

// requestID tags each request with the caller's X-Request-ID or a new one
// and echoes it on the response
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// accessLog writes one line per request after it completes
func accessLog(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"request_id", c.GetString(requestIDKey),
		}
		if id := c.Param("id"); id != "" {
			kv = append(kv, "session_id", id)
		}
		logger.Info("HTTP request", kv...)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// withSession resolves the :id session once for the whole route group and
// answers 404 for unknown ids
func withSession(registry *review.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := registry.Get(c.Param("id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, Response{
				Success: false,
				Error:   err.Error(),
			})
			return
		}
		c.Set(sessionKey, s)
		c.Next()
	}
}
