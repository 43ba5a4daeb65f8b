package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Response headers of POST /api/v1/annotate.
const (
	HeaderOpinions   = "X-Opinions"
	HeaderSentiments = "X-Sentiments"
	ContentTypeNAF   = "application/xml; charset=utf-8"
)

// DefaultMaxBodyBytes caps the request document size.
const DefaultMaxBodyBytes = 32 << 20

// Annotator is the pipeline the handler calls.
type Annotator interface {
	Kind() annotation.Kind
	Annotate(ctx context.Context, payload []byte) (*annotation.Result, error)
}

// AnnotateHandler runs the configured strategy on a posted NAF document.
type AnnotateHandler struct {
	annotator    Annotator
	metrics      *prometheus.AppMetrics
	logger       logging.Logger
	maxBodyBytes int64
}

// NewAnnotateHandler creates the handler.  metrics may be nil.
func NewAnnotateHandler(a Annotator, m *prometheus.AppMetrics, logger logging.Logger) *AnnotateHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AnnotateHandler{annotator: a, metrics: m, logger: logger, maxBodyBytes: DefaultMaxBodyBytes}
}

// Annotate handles POST /api/v1/annotate.  The body is a NAF document; the
// reply is the annotated document.
func (h *AnnotateHandler) Annotate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		writeAppError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read request body"))
		return
	}
	if len(body) == 0 {
		writeAppError(c, errors.New(errors.ErrCodeDocumentEmpty, "request body is empty"))
		return
	}
	prometheus.RecordDocumentSize(h.metrics, "in", len(body))

	kind := string(h.annotator.Kind())
	start := time.Now()
	res, err := h.annotator.Annotate(c.Request.Context(), body)
	elapsed := time.Since(start)
	if err != nil {
		prometheus.RecordDocument(h.metrics, kind, prometheus.TransportHTTP, annotation.Outcome(err), elapsed, 0)
		prometheus.RecordError(h.metrics, "http", string(errors.GetCode(err)))
		h.logger.Warn("Annotation rejected",
			logging.String("request_id", middleware.GetRequestID(c)),
			logging.Err(err))
		writeAppError(c, err)
		return
	}
	prometheus.RecordDocument(h.metrics, kind, prometheus.TransportHTTP, prometheus.OutcomeOK, elapsed, res.Opinions)
	prometheus.RecordDocumentSize(h.metrics, "out", len(res.Output))

	c.Header(HeaderOpinions, strconv.Itoa(res.Opinions))
	c.Header(HeaderSentiments, strconv.Itoa(res.Sentiments))
	c.Data(http.StatusOK, ContentTypeNAF, res.Output)
}
