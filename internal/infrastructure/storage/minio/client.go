package minio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the model store uses.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

var (
	ErrMinIOClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")
	ErrObjectNotFound    = errors.New(errors.ErrCodeModelNotFound, "object not found")
)

// Client fetches model and dictionary objects from S3-compatible storage.
type Client struct {
	client MinIOAPI
	config *config.MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a client for cfg.Endpoint.  No request is made until
// the first fetch.
func NewClient(cfg *config.MinIOConfig, log logging.Logger) (*Client, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio endpoint is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := *cfg
	applyDefaults(&c)

	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	log.Info("MinIO client configured", logging.String("endpoint", c.Endpoint), logging.Bool("ssl", c.UseSSL))
	return NewClientWithAPI(mc, &c, log), nil
}

// NewClientWithAPI wraps an existing API implementation.
func NewClientWithAPI(api MinIOAPI, cfg *config.MinIOConfig, log logging.Logger) *Client {
	if cfg == nil {
		cfg = &config.MinIOConfig{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{client: api, config: cfg, logger: log}
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = config.DefaultMinIORegion
	}
}

// FetchObject streams bucket/key.  A missing bucket or key gives an
// ErrCodeModelNotFound error; any other failure ErrCodeObjectFetchFailed.
func (c *Client) FetchObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if c.isClosed() {
		return nil, ErrMinIOClientClosed
	}
	location := fmt.Sprintf("%s%s/%s", common.ObjectScheme, bucket, key)

	info, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, c.fetchError(err, location)
	}
	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.fetchError(err, location)
	}

	c.logger.Debug("Fetching object",
		logging.String("location", location),
		logging.Int64("size", info.Size),
		logging.String("etag", info.ETag))
	return obj, nil
}

func (c *Client) fetchError(err error, location string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrObjectNotFound.WithCause(err).WithDetail("location=" + location)
	}
	return errors.Wrap(err, errors.ErrCodeObjectFetchFailed, "failed to fetch object").
		WithDetail("location=" + location)
}

// Upload stores size bytes from r at bucket/key.
func (c *Client) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (minio.UploadInfo, error) {
	if c.isClosed() {
		return minio.UploadInfo{}, ErrMinIOClientClosed
	}
	info, err := c.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return minio.UploadInfo{}, errors.Wrap(err, errors.ErrCodeExternalService, "failed to upload object").
			WithDetail(fmt.Sprintf("bucket=%s key=%s", bucket, key))
	}
	c.logger.Info("Object uploaded",
		logging.String("bucket", bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size))
	return info, nil
}

// HealthStatus reports whether the model buckets are reachable.
type HealthStatus struct {
	Healthy        bool
	Latency        time.Duration
	BucketStatuses map[string]bool
	Error          string
}

// HealthCheck checks that every bucket exists.
func (c *Client) HealthCheck(ctx context.Context, buckets ...string) (*HealthStatus, error) {
	start := time.Now()
	status := &HealthStatus{Healthy: true, BucketStatuses: make(map[string]bool, len(buckets))}

	for _, b := range buckets {
		exists, err := c.client.BucketExists(ctx, b)
		if err != nil {
			status.Healthy = false
			status.Error = err.Error()
			status.Latency = time.Since(start)
			return status, err
		}
		status.BucketStatuses[b] = exists
		if !exists {
			status.Healthy = false
			status.Error = fmt.Sprintf("bucket %s missing", b)
		}
	}
	status.Latency = time.Since(start)
	return status, nil
}

// Close marks the client closed.  minio-go holds no connection to release.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

var _ common.ObjectFetcher = (*Client)(nil)
