package tcp

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// echoAnnotator uppercases the payload, or fails with err.
type echoAnnotator struct {
	mu       sync.Mutex
	payloads []string
	err      error
	delay    time.Duration
	inFlight int32
	maxSeen  int32
}

func (e *echoAnnotator) Kind() annotation.Kind { return annotation.KindTarget }

func (e *echoAnnotator) Annotate(ctx context.Context, payload []byte) (*annotation.Result, error) {
	n := atomic.AddInt32(&e.inFlight, 1)
	defer atomic.AddInt32(&e.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&e.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&e.maxSeen, seen, n) {
			break
		}
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	e.payloads = append(e.payloads, string(payload))
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &annotation.Result{Output: bytes.ToUpper(payload), Opinions: 1}, nil
}

func (e *echoAnnotator) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

func (e *echoAnnotator) seen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.payloads...)
}

func startServer(t *testing.T, a Annotator, opts ...Option) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(a, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv
}

func clientFor(t *testing.T, srv *Server) *Client {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Addr().String())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)
	return NewClient(host, p, WithRequestTimeout(5*time.Second))
}

func waitForAddr(t *testing.T, srv *Server) {
	t.Helper()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)
}

func TestServer_AnnotatesAndCloses(t *testing.T) {
	a := &echoAnnotator{}
	srv := startServer(t, a)
	waitForAddr(t, srv)

	var out bytes.Buffer
	n, err := clientFor(t, srv).Annotate(context.Background(), []byte("line one\nline two\nline three"), &out)
	require.NoError(t, err)
	assert.Equal(t, "LINE ONE\nLINE TWO\nLINE THREE\n", out.String())
	assert.Equal(t, int64(out.Len()), n)
	assert.Equal(t, []string{"line one\nline two\nline three\n"}, a.seen())
}

func TestServer_ErrorTextAndNextRequest(t *testing.T) {
	a := &echoAnnotator{err: errors.New(errors.ErrCodeDocumentMalformed, "bad xml")}
	srv := startServer(t, a)
	waitForAddr(t, srv)
	c := clientFor(t, srv)

	var out bytes.Buffer
	_, err := c.Annotate(context.Background(), []byte("not naf"), &out)
	require.NoError(t, err)
	assert.Equal(t, MsgBadlyFormatted, out.String())

	a.setErr(nil)
	out.Reset()
	_, err = c.Annotate(context.Background(), []byte("ok"), &out)
	require.NoError(t, err)
	assert.Equal(t, "OK\n", out.String(), "the server keeps serving after a bad request")
}

func TestServer_SequentialByDefault(t *testing.T) {
	a := &echoAnnotator{delay: 20 * time.Millisecond}
	srv := startServer(t, a)
	waitForAddr(t, srv)
	c := clientFor(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out bytes.Buffer
			_, err := c.Annotate(context.Background(), []byte("doc"), &out)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.maxSeen))
	assert.Len(t, a.seen(), 4)
}

func TestServer_WorkerPool(t *testing.T) {
	a := &echoAnnotator{delay: 10 * time.Millisecond}
	srv := startServer(t, a, WithWorkers(3))
	waitForAddr(t, srv)
	c := clientFor(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out bytes.Buffer
			_, err := c.Annotate(context.Background(), []byte("doc"), &out)
			assert.NoError(t, err)
			assert.Equal(t, "DOC\n", out.String())
		}()
	}
	wg.Wait()
	assert.Len(t, a.seen(), 6)
}

func TestServer_ReadTimeoutDropsConnection(t *testing.T) {
	a := &echoAnnotator{}
	srv := startServer(t, a, WithTimeouts(50*time.Millisecond, time.Second))
	waitForAddr(t, srv)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("partial line"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	assert.Error(t, err, "server closes the connection without a response")
	assert.Empty(t, a.seen())
}

func TestServer_ServeTwice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := NewServer(&echoAnnotator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, srv.Serve(ctx, ln))

	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln2.Close()
	assert.Equal(t, ErrServerClosed, srv.Serve(context.Background(), ln2))
}

func TestServer_ListenAndServeBadAddress(t *testing.T) {
	err := NewServer(&echoAnnotator{}).ListenAndServe(context.Background(), "127.0.0.1:-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectionFailed))
}

func scrape(t *testing.T, collector prometheus.MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestServer_RecordsOutcomePerDocument(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test", Subsystem: "tcp"}, nil)
	require.NoError(t, err)
	a := &echoAnnotator{err: errors.New(errors.ErrCodeClassifierFailed, "weights corrupted")}
	srv := startServer(t, a, WithMetrics(prometheus.NewAppMetrics(collector)))
	waitForAddr(t, srv)
	c := clientFor(t, srv)

	var out bytes.Buffer
	_, err = c.Annotate(context.Background(), []byte("doc"), &out)
	require.NoError(t, err)
	assert.Equal(t, "\n -> ERROR: Input data not correct!!\n", out.String())

	a.setErr(errors.New(errors.ErrCodeDocumentEncoding, "latin-1"))
	out.Reset()
	_, err = c.Annotate(context.Background(), []byte("doc"), &out)
	require.NoError(t, err)
	assert.Equal(t, MsgNotUTF8, out.String())

	a.setErr(nil)
	out.Reset()
	_, err = c.Annotate(context.Background(), []byte("doc"), &out)
	require.NoError(t, err)

	task := string(annotation.KindTarget)
	metrics := scrape(t, collector)
	for _, outcome := range []string{prometheus.OutcomeAnnotateError, prometheus.OutcomeEncodingError, prometheus.OutcomeOK} {
		assert.Contains(t, metrics, `test_tcp_documents_total{outcome="`+outcome+`",task="`+task+`",transport="tcp"} 1`)
	}
	assert.Contains(t, metrics, `test_tcp_opinions_total{task="`+task+`"} 1`)
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close())

	c := NewClient("127.0.0.1", addr.Port, WithDialTimeout(time.Second))
	_, err = c.Annotate(context.Background(), []byte("x"), &bytes.Buffer{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectionFailed))
}

// fixedLabeler marks the second token of every sentence.
type fixedLabeler struct{}

func (fixedLabeler) Name() string { return "fixed" }
func (fixedLabeler) LabelSequence(_ context.Context, tokens []string) ([]common.LabeledSpan, error) {
	if len(tokens) < 2 {
		return nil, nil
	}
	return []common.LabeledSpan{{Start: 1, End: 2, Type: "FEATURE"}}, nil
}
func (fixedLabeler) ResetAdaptiveState() {}

const threeLineNAF = `<NAF xml:lang="en" version="v3">
<text><wf id="w1" sent="1">The</wf><wf id="w2" sent="1">battery</wf><wf id="w3" sent="1">rocks</wf></text>
</NAF>`

// A malformed payload gets the parse error text and a clean close; a good
// one is annotated.
func TestServer_EndToEndWithService(t *testing.T) {
	strategy, err := annotation.New(annotation.KindTarget, annotation.Deps{TargetLabeler: fixedLabeler{}}, annotation.Options{})
	require.NoError(t, err)
	svc := annotation.NewService(strategy, annotation.ServiceConfig{ProcessorName: "opinion-tagger-fixed", ProcessorVersion: "test"}, nil)

	srv := startServer(t, svc)
	waitForAddr(t, srv)
	c := clientFor(t, srv)

	var out bytes.Buffer
	_, err = c.Annotate(context.Background(), []byte("<NAF>\n<text>\n<wf id=\"w1\""), &out)
	require.NoError(t, err)
	assert.Equal(t, MsgBadlyFormatted, out.String())

	out.Reset()
	_, err = c.Annotate(context.Background(), []byte(threeLineNAF), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `<opinion id="o1">`)
	assert.Contains(t, out.String(), `name="opinion-tagger-fixed"`)
}
