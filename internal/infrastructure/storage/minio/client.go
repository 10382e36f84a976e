package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client used by this package.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// MinIOConfig holds connection parameters for an S3-compatible store.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Region          string `mapstructure:"region"`
	// MaxObjectSize caps the bytes read from a single object.
	MaxObjectSize int64 `mapstructure:"max_object_size"`
}

const defaultMaxObjectSize = 32 << 20

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxObjectSize <= 0 {
		cfg.MaxObjectSize = defaultMaxObjectSize
	}
}

// MinIOClient wraps a minio client with connection checks.
type MinIOClient struct {
	client MinIOAPI
	config *MinIOConfig
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewMinIOClient connects to the store and verifies the credentials by
// listing buckets.
func NewMinIOClient(cfg *MinIOConfig, log logging.Logger) (*MinIOClient, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.InvalidParam("minio endpoint is required")
	}
	applyDefaults(cfg)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return newMinIOClient(client, cfg, log), nil
}

func newMinIOClient(api MinIOAPI, cfg *MinIOConfig, log logging.Logger) *MinIOClient {
	applyDefaults(cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MinIOClient{client: api, config: cfg, logger: log}
}

// ErrMinIOClientClosed is returned by operations on a closed client.
var ErrMinIOClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

// Open returns a reader over an object. Missing objects are reported at
// Open, not at the first Read.
func (c *MinIOClient) Open(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, 0, ErrMinIOClientClosed
	}

	obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, err
	}
	return obj, info.Size, nil
}

// Close marks the client closed.
func (c *MinIOClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// HealthStatus is the result of a connectivity probe.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

// HealthCheck lists buckets and reports the round trip.
func (c *MinIOClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	_, err := c.client.ListBuckets(ctx)
	status := &HealthStatus{Healthy: err == nil, Latency: time.Since(start)}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	return status, nil
}

//Personal.AI order the ending
