// Package http is the HTTP side-car of the annotation server: probes,
// Prometheus scrapes and a JSON-free annotate endpoint over the same
// serialized pipeline the TCP service uses.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig carries the handlers and infrastructure of the route tree.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	HealthHandler   *handlers.HealthHandler
	AnnotateHandler *handlers.AnnotateHandler
	ModelsHandler   *handlers.ModelsHandler

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	Logging          middleware.LoggingConfig
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics, cfg.Logging))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.AnnotateHandler != nil {
		api.POST("/annotate", cfg.AnnotateHandler.Annotate)
	}
	if cfg.ModelsHandler != nil {
		api.GET("/models", cfg.ModelsHandler.List)
		api.GET("/models/:name", cfg.ModelsHandler.Get)
	}
	return r
}
