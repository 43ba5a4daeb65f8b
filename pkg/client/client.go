// Package client is the Go SDK of the opinion HTTP side-car.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const Version = "0.1.0"

// Side-car paths and headers.
const (
	pathAnnotate = "/api/v1/annotate"
	pathModels   = "/api/v1/models"
	pathHealth   = "/healthz"
	pathReady    = "/readyz"

	headerRequestID  = "X-Request-ID"
	headerOpinions   = "X-Opinions"
	headerSentiments = "X-Sentiments"
	contentTypeNAF   = "application/xml; charset=utf-8"
)

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client calls one annotation side-car.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
	requestID    func() string
	headers      http.Header
}

// APIError is an error reply of the side-car.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("opinion: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Annotation is the reply of Annotate.
type Annotation struct {
	Document   []byte
	Opinions   int
	Sentiments int
	RequestID  string
}

// Model describes a loaded model.
type Model struct {
	Name     string    `json:"name"`
	Kind     string    `json:"kind"`
	Location string    `json:"location"`
	Labels   []string  `json:"labels,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ModelList is the reply of Models.
type ModelList struct {
	Task   string   `json:"task"`
	Models []*Model `json:"models"`
}

// Readiness is the reply of Ready.
type Readiness struct {
	Status     string `json:"status"`
	Components map[string]struct {
		Status  string `json:"status"`
		Latency string `json:"latency,omitempty"`
		Error   string `json:"error,omitempty"`
	} `json:"components,omitempty"`
}

// NewClient creates a client for the side-car at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.ErrCodeValidation, "base URL is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid base URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeValidation, "base URL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{},
		userAgent:    fmt.Sprintf("opinion-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		timeout:      60 * time.Second,
		requestID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Annotate posts a NAF document and returns the annotated one.  Rejected
// documents are not retried.
func (c *Client) Annotate(ctx context.Context, document []byte) (*Annotation, error) {
	resp, err := c.do(ctx, http.MethodPost, pathAnnotate, document, contentTypeNAF)
	if err != nil {
		return nil, err
	}
	a := &Annotation{Document: resp.body, RequestID: resp.requestID}
	a.Opinions, _ = strconv.Atoi(resp.header.Get(headerOpinions))
	a.Sentiments, _ = strconv.Atoi(resp.header.Get(headerSentiments))
	return a, nil
}

// Models lists the loaded models.
func (c *Client) Models(ctx context.Context) (*ModelList, error) {
	var out ModelList
	if err := c.getJSON(ctx, pathModels, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Model returns one loaded model.
func (c *Client) Model(ctx context.Context, name string) (*Model, error) {
	var out Model
	if err := c.getJSON(ctx, pathModels+"/"+url.PathEscape(name), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready returns the readiness report.  A not-ready side-car answers 503,
// which is returned as an *APIError after the retries.
func (c *Client) Ready(ctx context.Context) (*Readiness, error) {
	var out Readiness
	if err := c.getJSON(ctx, pathReady, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Alive reports whether the liveness probe answers.
func (c *Client) Alive(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, pathHealth, nil, "")
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, result interface{}) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, result); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal response")
	}
	return nil
}

type response struct {
	body      []byte
	header    http.Header
	requestID string
}

// do performs an HTTP request with retry logic
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*response, error) {
	fullURL := c.baseURL + path
	requestID := c.requestID()

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		start := time.Now()
		status, header, respBody, err := c.send(ctx, method, fullURL, body, contentType, requestID)
		duration := time.Since(start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.IsCode(err, errors.ErrCodeBadRequest) || errors.IsCode(err, errors.ErrCodeReadFailed) {
				return nil, err
			}
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			continue
		}

		c.logger.Debugf("%s %s %d (%v)", method, path, status, duration)

		if status >= 400 {
			apiErr := &APIError{StatusCode: status, RequestID: requestID}
			var errResp struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Code != "" {
				apiErr.Code = errResp.Code
				apiErr.Message = errResp.Message
			} else {
				apiErr.Message = string(respBody)
			}
			lastErr = apiErr
			if apiErr.IsServerError() {
				continue
			}
			return nil, apiErr
		}

		return &response{body: respBody, header: header, requestID: requestID}, nil
	}
	return nil, lastErr
}

// send runs one attempt under the per-attempt timeout.
func (c *Client) send(ctx context.Context, method, fullURL string, body []byte, contentType, requestID string) (int, http.Header, []byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to create request")
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, errors.ErrCodeConnectionFailed, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, errors.Wrap(err, errors.ErrCodeReadFailed, "failed to read response body")
	}
	return resp.StatusCode, resp.Header, respBody, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}
	if jitterRange := int64(backoff / 4); jitterRange > 0 {
		backoff += time.Duration(rand.Int63n(jitterRange))
	}
	return backoff
}
