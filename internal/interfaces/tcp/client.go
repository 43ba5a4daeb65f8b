package tcp

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Client sends documents to a Server.  Each call uses a new connection.
type Client struct {
	addr        string
	dialTimeout time.Duration
	timeout     time.Duration
	logger      logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialTimeout bounds connection setup.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.dialTimeout = d }
}

// WithRequestTimeout bounds a whole exchange.  Zero means no limit.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithClientLogger sets the client logger.
func WithClientLogger(l logging.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient targets host:port.
func NewClient(host string, port int, opts ...ClientOption) *Client {
	c := &Client{
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		dialTimeout: 10 * time.Second,
		logger:      logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the server address.
func (c *Client) Addr() string { return c.addr }

// Annotate sends payload and copies the response to w until the server
// closes the connection.  It returns the number of response bytes.
func (c *Client) Annotate(ctx context.Context, payload []byte, w io.Writer) (int64, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeConnectionFailed, "failed to connect to annotation server").
			WithDetail("addr=" + c.addr)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.timeout))
	}

	if err := WriteRequest(conn, payload); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeWriteFailed, "failed to send document")
	}
	c.logger.Debug("Document sent", logging.String("addr", c.addr), logging.Int("bytes", len(payload)))

	n, err := io.Copy(w, conn)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrCodeReadFailed, "failed to read response")
	}
	return n, nil
}
