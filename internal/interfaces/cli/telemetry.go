package cli

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	httpapi "github.com/turtacn/Opinion-Intelligence/internal/interfaces/http"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/middleware"
)

// telemetry bundles the metric sinks of a long-running command.  With
// metrics disabled every field is a no-op.
type telemetry struct {
	collector prometheus.MetricsCollector
	app       *prometheus.AppMetrics
	intel     common.IntelligenceMetrics
}

func newTelemetry(cfg config.MetricsConfig, logger logging.Logger) (*telemetry, error) {
	if !cfg.Enabled {
		return &telemetry{intel: common.NewNoopIntelligenceMetrics()}, nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger.Named("metrics"))
	if err != nil {
		return nil, err
	}
	intel, err := common.NewPrometheusIntelligenceMetrics(collector.Registerer())
	if err != nil {
		return nil, err
	}
	app := prometheus.NewAppMetrics(collector)
	prometheus.SetBuildInfo(app, Version, GitCommit)
	return &telemetry{collector: collector, app: app, intel: intel}, nil
}

// newSideCar builds the HTTP side-car.  svc may be nil, in which case only
// the probes, the model list and the metrics are served.
func newSideCar(cfg *config.Config, svc *annotation.Service, registry *common.ModelRegistry, b *backends, tel *telemetry, logger logging.Logger) *httpapi.Server {
	gin.SetMode(cfg.Server.GinMode)

	checkers := append([]handlers.HealthChecker{handlers.ModelsLoaded(registry)}, b.Checkers()...)
	rc := httpapi.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(Version, checkers...),
		ModelsHandler:    handlers.NewModelsHandler(registry, cfg.Annotation.Task),
		Logger:           logger.Named("http"),
		Metrics:          tel.app,
		MetricsCollector: tel.collector,
		Logging:          middleware.DefaultLoggingConfig(),
	}
	if svc != nil {
		rc.AnnotateHandler = handlers.NewAnnotateHandler(svc, tel.app, logger.Named("http"))
	}
	return httpapi.NewServer(cfg.Server.Host, cfg.Server.HTTPPort, httpapi.NewRouter(rc), logger)
}
