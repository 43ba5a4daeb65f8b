package client

import (
	"net/http"
	"strings"
	"time"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sends requests through httpClient.  The per-attempt
// timeout of WithTimeout still applies.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger routes request and retry logs to logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryMax sets how many times a transport failure or 5xx reply is
// retried.  Zero disables retries.
func WithRetryMax(retryMax int) Option {
	return func(c *Client) {
		if retryMax >= 0 {
			c.retryMax = retryMax
		}
	}
}

// WithRetryWait bounds the exponential backoff between attempts.  min must
// be positive; max is kept only when it is not below min.
func WithRetryWait(min, max time.Duration) Option {
	return func(c *Client) {
		if min <= 0 {
			return
		}
		c.retryWaitMin = min
		if max >= min {
			c.retryWaitMax = max
		}
	}
}

// WithUserAgent replaces the default "opinion-go-sdk/<version>" agent.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithTimeout bounds every attempt, including reading the reply.  Large
// documents on slow models may need more than the default minute; zero
// leaves attempts bounded by the caller's context only.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithRequestIDFunc makes the client take the X-Request-ID of each call
// from next, for example to reuse the id of an upstream request.  Retries
// of one call share its id.
func WithRequestIDFunc(next func() string) Option {
	return func(c *Client) {
		if next != nil {
			c.requestID = next
		}
	}
}

// WithHeader adds a header to every request.  The headers the client sets
// itself cannot be overridden this way.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		key = http.CanonicalHeaderKey(strings.TrimSpace(key))
		if key == "" || reservedHeader(key) {
			return
		}
		if c.headers == nil {
			c.headers = http.Header{}
		}
		c.headers.Add(key, value)
	}
}

func reservedHeader(key string) bool {
	switch key {
	case "Content-Type", "User-Agent", headerRequestID:
		return true
	}
	return false
}
