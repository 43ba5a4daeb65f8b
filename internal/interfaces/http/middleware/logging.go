package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
)

// LoggingConfig tunes RequestLogging.
type LoggingConfig struct {
	// SkipPaths are not logged (probes, scrapes).  They are still counted.
	SkipPaths []string
	// SlowThreshold marks slower requests with a warning.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probe and metrics paths.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging logs every request and records the HTTP metrics.  m may be
// nil.
func RequestLogging(logger logging.Logger, m *prometheus.AppMetrics, cfg LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		// The route template keeps the label set bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		prometheus.RecordHTTPRequest(m, c.Request.Method, path, status, elapsed)

		if skip[c.Request.URL.Path] {
			return
		}
		fields := []logging.Field{
			logging.String("request_id", GetRequestID(c)),
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Int("bytes", c.Writer.Size()),
			logging.Duration("elapsed", elapsed),
			logging.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request failed", fields...)
		case cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold:
			logger.Warn("Slow HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request rejected", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
