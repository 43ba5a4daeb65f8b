package prometheus

import (
	"strconv"
	"time"
)

// Transport label values.
const (
	TransportTCP    = "tcp"
	TransportHTTP   = "http"
	TransportStream = "stream"
	TransportCLI    = "cli"
)

// Document outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeParseError     = "parse_error"
	OutcomeEncodingError  = "encoding_error"
	OutcomeAnnotateError  = "annotate_error"
	OutcomeTransportError = "transport_error"
)

// AppMetrics holds the annotation service metrics.  A nil *AppMetrics is
// valid and records nothing.
type AppMetrics struct {
	ConnectionsTotal   CounterVec
	ActiveConnections  GaugeVec
	DocumentsTotal     CounterVec
	AnnotationDuration HistogramVec
	OpinionsTotal      CounterVec
	DocumentBytes      HistogramVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	StreamMessagesTotal CounterVec

	ErrorsTotal CounterVec
	BuildInfo   GaugeVec
}

var (
	DefaultAnnotationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultSizeBuckets       = []float64{512, 4096, 32768, 262144, 1048576, 8388608}
)

// NewAppMetrics registers every application metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		ConnectionsTotal:   collector.RegisterCounter("connections_total", "Accepted client connections", "transport", "outcome"),
		ActiveConnections:  collector.RegisterGauge("active_connections", "Connections being served", "transport"),
		DocumentsTotal:     collector.RegisterCounter("documents_total", "Annotated documents", "task", "transport", "outcome"),
		AnnotationDuration: collector.RegisterHistogram("annotation_duration_seconds", "Time from parsed document to serialized result", DefaultAnnotationBuckets, "task"),
		OpinionsTotal:      collector.RegisterCounter("opinions_total", "Opinions attached", "task"),
		DocumentBytes:      collector.RegisterHistogram("document_bytes", "Document payload size", DefaultSizeBuckets, "direction"),

		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "HTTP side-car requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP side-car request duration", nil, "method", "path"),

		StreamMessagesTotal: collector.RegisterCounter("stream_messages_total", "Stream worker messages", "topic", "outcome"),

		ErrorsTotal: collector.RegisterCounter("errors_total", "Errors by component and code", "component", "error_code"),
		BuildInfo:   collector.RegisterGauge("build_info", "Build metadata; always 1", "version", "commit"),
	}
}

// RecordConnection counts a finished connection.
func RecordConnection(m *AppMetrics, transport, outcome string) {
	if m == nil {
		return
	}
	m.ConnectionsTotal.WithLabelValues(transport, outcome).Inc()
}

// TrackActive increments the active gauge and returns the matching
// decrement.
func TrackActive(m *AppMetrics, transport string) func() {
	if m == nil {
		return func() {}
	}
	g := m.ActiveConnections.WithLabelValues(transport)
	g.Inc()
	return g.Dec
}

// RecordDocument records one annotation request.
func RecordDocument(m *AppMetrics, task, transport, outcome string, duration time.Duration, opinions int) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(task, transport, outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.AnnotationDuration.WithLabelValues(task).Observe(duration.Seconds())
	m.OpinionsTotal.WithLabelValues(task).Add(float64(opinions))
}

// RecordDocumentSize observes a payload size; direction is "in" or "out".
func RecordDocumentSize(m *AppMetrics, direction string, n int) {
	if m == nil {
		return
	}
	m.DocumentBytes.WithLabelValues(direction).Observe(float64(n))
}

// RecordHTTPRequest records one side-car request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStreamMessage counts a message handled by the stream worker.
func RecordStreamMessage(m *AppMetrics, topic, outcome string) {
	if m == nil {
		return
	}
	m.StreamMessagesTotal.WithLabelValues(topic, outcome).Inc()
}

// RecordError counts an error by component and error code.
func RecordError(m *AppMetrics, component, code string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// SetBuildInfo publishes the build metadata gauge.
func SetBuildInfo(m *AppMetrics, version, commit string) {
	if m == nil {
		return
	}
	m.BuildInfo.WithLabelValues(version, commit).Set(1)
}
