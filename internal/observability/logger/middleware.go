package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls the request logging middleware.
type MiddlewareConfig struct {
	// SkipPaths are request paths that are served without an access log
	// entry. Health and metrics probes are skipped by default.
	SkipPaths []string
}

// GinMiddleware assigns a request ID to every request, echoes it back in
// the response headers, and writes one access log entry per request with
// masked sensitive headers.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	skip := map[string]struct{}{
		"/healthz": {},
		"/metrics": {},
	}
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set("request_id", requestID)

		c.Next()

		if _, ok := skip[c.FullPath()]; ok {
			return
		}

		log := FromContext(c.Request.Context()).With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
		if auth := c.GetHeader("Authorization"); auth != "" {
			log = log.With(zap.String("authorization", MaskAuthorization(auth)))
		}
		if len(c.Errors) > 0 {
			// Handlers stash request context under gin keys; mask it
			// before it reaches the error log.
			if len(c.Keys) > 0 {
				log = log.With(zap.Any("context", MaskJSON(c.Keys)))
			}
			log.Error("request failed", zap.String("errors", c.Errors.String()))
			return
		}
		log.Info("request completed")
	}
}
