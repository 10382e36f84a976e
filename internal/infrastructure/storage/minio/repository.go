package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeDataSourceUnavailable, "object not found")
	ErrObjectTooLarge = errors.New(errors.ErrCodeDataSourceUnavailable, "object exceeds size limit")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "bucket and object key are required")
)

// objectOpener opens an object for reading and reports its size.
type objectOpener interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
}

// ObjectRepository reads batch documents from the object store. It
// implements the scoring BlobReader port.
type ObjectRepository struct {
	opener  objectOpener
	maxSize int64
	logger  logging.Logger
}

// NewObjectRepository creates an ObjectRepository over client.
func NewObjectRepository(client *MinIOClient, logger logging.Logger) *ObjectRepository {
	return newObjectRepository(client, client.config.MaxObjectSize, logger)
}

func newObjectRepository(opener objectOpener, maxSize int64, logger logging.Logger) *ObjectRepository {
	if maxSize <= 0 {
		maxSize = defaultMaxObjectSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ObjectRepository{opener: opener, maxSize: maxSize, logger: logger}
}

// Read returns the object bytes.
func (r *ObjectRepository) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, ErrInvalidRequest
	}
	location := bucket + "/" + key

	rc, size, err := r.opener.Open(ctx, bucket, key)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.Wrap(ErrObjectNotFound, errors.CodeUnknown, "read object").WithDetail(location)
		}
		r.logger.Error("object read failed", logging.String("object", location), logging.Err(err))
		return nil, errors.IOError("failed to open object", err).WithDetail(location)
	}
	defer rc.Close()

	if size > r.maxSize {
		return nil, errors.Wrap(ErrObjectTooLarge, errors.CodeUnknown, "read object").
			WithDetail(fmt.Sprintf("%s: %d bytes", location, size))
	}
	data, err := io.ReadAll(io.LimitReader(rc, r.maxSize+1))
	if err != nil {
		return nil, errors.IOError("failed to read object", err).WithDetail(location)
	}
	if int64(len(data)) > r.maxSize {
		return nil, errors.Wrap(ErrObjectTooLarge, errors.CodeUnknown, "read object").WithDetail(location)
	}

	r.logger.Debug("object read", logging.String("object", location), logging.Int("bytes", len(data)))
	return data, nil
}

// ReadJSON decodes the object at bucket/key into dest.
func (r *ObjectRepository) ReadJSON(ctx context.Context, bucket, key string, dest interface{}) error {
	data, err := r.Read(ctx, bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeDataSourceParseError, "object is not valid JSON").
			WithDetail(bucket + "/" + key)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NoSuchObject":
		return true
	}
	return false
}

//Personal.AI order the ending
