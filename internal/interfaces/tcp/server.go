package tcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const (
	defaultShutdownTimeout = 15 * time.Second
	acceptRetryDelay       = 50 * time.Millisecond
)

// ErrServerClosed is returned by Serve on a server that already served.
var ErrServerClosed = errors.New(errors.ErrCodeServerClosed, "tcp server closed")

// Annotator is the document pipeline the server exposes.
type Annotator interface {
	Kind() annotation.Kind
	Annotate(ctx context.Context, payload []byte) (*annotation.Result, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records connection and document metrics.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithWorkers sets how many connections are handled at once.  One, the
// default, handles each connection before accepting the next.
func WithWorkers(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeouts sets per-connection read and write deadlines.  Zero disables
// a deadline.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithShutdownTimeout bounds how long Serve waits for in-flight
// connections once its context is cancelled.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// Server accepts annotation requests.  Annotation itself is serialized by
// the Annotator, so extra workers only overlap network I/O.
type Server struct {
	annotator       Annotator
	logger          logging.Logger
	metrics         *prometheus.AppMetrics
	workers         int
	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	mu     sync.Mutex
	ln     net.Listener
	active map[net.Conn]struct{}
	served bool
	wg     sync.WaitGroup
}

// NewServer creates a server for a.
func NewServer(a Annotator, opts ...Option) *Server {
	s := &Server{
		annotator:       a,
		logger:          logging.NewNopLogger(),
		workers:         1,
		shutdownTimeout: defaultShutdownTimeout,
		active:          make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("tcp")
	return s
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConnectionFailed, "failed to listen").WithDetail("addr=" + addr)
	}
	return s.Serve(ctx, ln)
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections on ln until ctx is cancelled, then closes ln
// and waits for in-flight connections.  It returns nil after a clean
// shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.served = true
	s.ln = ln
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	s.logger.Info("Annotation server listening",
		logging.String("addr", ln.Addr().String()),
		logging.String("task", string(s.annotator.Kind())),
		logging.Int("workers", s.workers))

	// In-flight documents finish even when ctx is cancelled.
	connCtx := context.WithoutCancel(ctx)

	var conns chan net.Conn
	if s.workers > 1 {
		conns = make(chan net.Conn, s.workers)
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				for c := range conns {
					s.handle(connCtx, c)
				}
			}()
		}
	}

	err := s.acceptLoop(ctx, ln, func(c net.Conn) {
		if conns == nil {
			s.handle(connCtx, c)
			return
		}
		conns <- c
	})
	if conns != nil {
		close(conns)
	}
	_ = ln.Close()

	if waitErr := s.drain(); waitErr != nil && err == nil {
		err = waitErr
	}
	s.logger.Info("Annotation server stopped")
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, dispatch func(net.Conn)) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if stderrors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("Accept timed out, retrying", logging.Err(err))
				time.Sleep(acceptRetryDelay)
				continue
			}
			return errors.Wrap(err, errors.ErrCodeConnectionFailed, "accept failed")
		}
		s.track(conn, true)
		dispatch(conn)
	}
}

func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(s.shutdownTimeout):
		s.mu.Lock()
		for c := range s.active {
			_ = c.Close()
		}
		s.mu.Unlock()
		<-done
		return errors.New(errors.ErrCodeTimeout, "in-flight connections did not finish before the shutdown timeout")
	}
}

func (s *Server) track(c net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.active[c] = struct{}{}
	} else {
		delete(s.active, c)
	}
}

// handle runs one request to completion.  Failures end this connection
// only.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.track(conn, false)
	}()
	defer prometheus.TrackActive(s.metrics, prometheus.TransportTCP)()

	log := s.logger.With(
		logging.String("request_id", uuid.NewString()),
		logging.String("remote", conn.RemoteAddr().String()))

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	payload, err := ReadRequest(bufio.NewReader(conn))
	if err != nil {
		log.Warn("Failed to read request", logging.Err(err))
		prometheus.RecordConnection(s.metrics, prometheus.TransportTCP, prometheus.OutcomeTransportError)
		prometheus.RecordError(s.metrics, "tcp", string(errors.ErrCodeReadFailed))
		return
	}
	prometheus.RecordDocumentSize(s.metrics, "in", len(payload))

	start := time.Now()
	res, err := s.annotator.Annotate(ctx, payload)
	elapsed := time.Since(start)

	var out []byte
	outcome := prometheus.OutcomeOK
	opinions := 0
	if err != nil {
		outcome = annotation.Outcome(err)
		out = []byte(ErrorMessage(err))
		log.Warn("Request rejected",
			logging.String("outcome", outcome),
			logging.String("error_code", string(errors.GetCode(err))),
			logging.Err(err))
		prometheus.RecordError(s.metrics, "tcp", string(errors.GetCode(err)))
	} else {
		out = res.Output
		opinions = res.Opinions
	}
	prometheus.RecordDocument(s.metrics, string(s.annotator.Kind()), prometheus.TransportTCP, outcome, elapsed, opinions)

	if s.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := conn.Write(out); err != nil {
		log.Warn("Failed to write response", logging.Err(err))
		prometheus.RecordConnection(s.metrics, prometheus.TransportTCP, prometheus.OutcomeTransportError)
		prometheus.RecordError(s.metrics, "tcp", string(errors.ErrCodeWriteFailed))
		return
	}
	prometheus.RecordDocumentSize(s.metrics, "out", len(out))
	prometheus.RecordConnection(s.metrics, prometheus.TransportTCP, outcome)

	log.Info("Request served",
		logging.String("outcome", outcome),
		logging.Int("bytes_in", len(payload)),
		logging.Int("bytes_out", len(out)),
		logging.Int("opinions", opinions),
		logging.Duration("elapsed", elapsed))
}
