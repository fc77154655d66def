package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID tags every request with an id, honoring one supplied by the client.
func (s *Server) requestID() gin.HandlerFunc {
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

// accessLog logs each request and records it in the request metrics.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.ObserveRequest(c.Request.Method, route, status)
		}
		s.logger.Debug("request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", time.Since(start),
			"client", c.ClientIP(),
			"request_id", c.GetString(requestIDKey))
	}
}

// limited rejects the request when key has exhausted its rate.
// It reports whether the request was rejected.
func (s *Server) limited(c *gin.Context, key string) bool {
	if s.limiter == nil {
		return false
	}
	if key == "" {
		key = c.ClientIP()
	}
	if s.limiter.Allow(key) {
		return false
	}
	s.logger.Warn("rate limited", "session", key)
	s.fail(c, ErrRateLimited)
	return true
}
