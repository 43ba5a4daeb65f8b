package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upperAnnotator struct{}

func (upperAnnotator) Kind() annotation.Kind { return annotation.KindTarget }

func (upperAnnotator) Annotate(_ context.Context, payload []byte) (*annotation.Result, error) {
	return &annotation.Result{Output: []byte(strings.ToUpper(string(payload))), Opinions: 1}, nil
}

func testRouter(t *testing.T) (*gin.Engine, prometheus.MetricsCollector) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "opinion", Subsystem: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	reg := common.NewModelRegistry(nil)
	reg.Replace(common.ModelMetadata{Name: "en-ote", Kind: common.KindSequenceLabeler})

	r := NewRouter(RouterConfig{
		HealthHandler:    handlers.NewHealthHandler("test", handlers.ModelsLoaded(reg)),
		AnnotateHandler:  handlers.NewAnnotateHandler(upperAnnotator{}, m, nil),
		ModelsHandler:    handlers.NewModelsHandler(reg, "ote"),
		Metrics:          m,
		MetricsCollector: collector,
		Logging:          middleware.DefaultLoggingConfig(),
	})
	return r, collector
}

func TestRouter_Routes(t *testing.T) {
	r, _ := testRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/api/v1/annotate", "<naf/>", http.StatusOK},
		{http.MethodGet, "/api/v1/models", "", http.StatusOK},
		{http.MethodGet, "/api/v1/models/en-ote", "", http.StatusOK},
		{http.MethodGet, "/api/v1/models/nope", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/annotate", "", http.StatusNotFound},
		{http.MethodGet, "/unknown", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		})
	}
}

func TestRouter_AnnotateRecordsMetrics(t *testing.T) {
	r, _ := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/annotate", strings.NewReader("<naf/>")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<NAF/>", w.Body.String())

	scrape := httptest.NewRecorder()
	r.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := scrape.Body.String()
	assert.Contains(t, body, `opinion_test_documents_total{outcome="ok",task="ote",transport="http"} 1`)
	assert.Contains(t, body, `opinion_test_http_requests_total{method="POST",path="/api/v1/annotate",status_code="200"} 1`)
}

func TestRouter_NilHandlersSkipRoutes(t *testing.T) {
	r := NewRouter(RouterConfig{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
