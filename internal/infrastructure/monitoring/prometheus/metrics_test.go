package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppMetrics_Document(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordDocument(m, "absa", TransportTCP, OutcomeOK, 20*time.Millisecond, 3)
	RecordDocument(m, "absa", TransportTCP, OutcomeParseError, 0, 0)
	RecordDocumentSize(m, "in", 2048)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_documents_total{outcome="ok",task="absa",transport="tcp"} 1`)
	assert.Contains(t, output, `test_unit_documents_total{outcome="parse_error",task="absa",transport="tcp"} 1`)
	assert.Contains(t, output, `test_unit_opinions_total{task="absa"} 3`)
	assert.Contains(t, output, `test_unit_annotation_duration_seconds_count{task="absa"} 1`)
	assert.Contains(t, output, `test_unit_document_bytes_count{direction="in"} 1`)
}

func TestAppMetrics_Connections(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	done := TrackActive(m, TransportTCP)
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_active_connections{transport="tcp"} 1`)
	done()
	RecordConnection(m, TransportTCP, OutcomeOK)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_active_connections{transport="tcp"} 0`)
	assert.Contains(t, output, `test_unit_connections_total{outcome="ok",transport="tcp"} 1`)
}

func TestAppMetrics_HTTPStreamErrorsBuild(t *testing.T) {
	c := newTestCollector(t)
	m := NewAppMetrics(c)

	RecordHTTPRequest(m, "POST", "/api/v1/annotate", 200, 10*time.Millisecond)
	RecordStreamMessage(m, "naf.raw", OutcomeOK)
	RecordError(m, "tcp", "DOC_001")
	SetBuildInfo(m, "1.0.0", "abc123")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `test_unit_http_requests_total{method="POST",path="/api/v1/annotate",status_code="200"} 1`)
	assert.Contains(t, output, `test_unit_stream_messages_total{outcome="ok",topic="naf.raw"} 1`)
	assert.Contains(t, output, `test_unit_errors_total{component="tcp",error_code="DOC_001"} 1`)
	assert.Contains(t, output, `test_unit_build_info{commit="abc123",version="1.0.0"} 1`)
}

func TestAppMetrics_NilIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordDocument(nil, "ote", TransportCLI, OutcomeOK, time.Second, 1)
		RecordConnection(nil, TransportTCP, OutcomeOK)
		TrackActive(nil, TransportTCP)()
		RecordHTTPRequest(nil, "GET", "/healthz", 200, time.Millisecond)
		RecordStreamMessage(nil, "t", OutcomeOK)
		RecordError(nil, "tcp", "X")
		SetBuildInfo(nil, "v", "c")
	})
}
