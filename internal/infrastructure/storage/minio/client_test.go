package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return nil, args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api *MockMinIOAPI
	cli *MinIOClient
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.cli = newMinIOClient(s.api, &MinIOConfig{Endpoint: "localhost:9000"}, logging.NewNopLogger())
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal(int64(32<<20), cfg.MaxObjectSize)

	cfg = &MinIOConfig{Region: "eu-west-1", MaxObjectSize: 10}
	applyDefaults(cfg)
	s.Equal("eu-west-1", cfg.Region)
	s.Equal(int64(10), cfg.MaxObjectSize)
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo{{Name: "leads"}}, nil).Once()
	status, err := s.cli.HealthCheck(context.Background())
	s.NoError(err)
	s.True(status.Healthy)

	s.api.On("ListBuckets", mock.Anything).Return([]minio.BucketInfo(nil), errors.New("down")).Once()
	status, err = s.cli.HealthCheck(context.Background())
	s.Error(err)
	s.False(status.Healthy)
	s.Equal("down", status.Error)
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestOpenPropagatesGetError() {
	s.api.On("GetObject", mock.Anything, "b", "k", mock.Anything).Return(nil, errors.New("boom"))
	_, _, err := s.cli.Open(context.Background(), "b", "k")
	s.EqualError(err, "boom")
}

func (s *ClientTestSuite) TestOpenAfterClose() {
	s.NoError(s.cli.Close())
	_, _, err := s.cli.Open(context.Background(), "b", "k")
	s.ErrorIs(err, ErrMinIOClientClosed)
	s.api.AssertNotCalled(s.T(), "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewMinIOClient_RequiresEndpoint(t *testing.T) {
	_, err := NewMinIOClient(&MinIOConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

// fakeS3 serves a single object over the S3 REST protocol.
func fakeS3(t *testing.T, bucket, key, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+bucket+"/"+key {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "0")
			return
		}
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newHTTPTestClient(t *testing.T, srv *httptest.Server) *MinIOClient {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	api, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return newMinIOClient(api, &MinIOConfig{Endpoint: u.Host}, nil)
}

func TestMinIOClient_OpenOverHTTP(t *testing.T) {
	srv := fakeS3(t, "leads", "batch.json", `{"token":"t"}`)
	repo := NewObjectRepository(newHTTPTestClient(t, srv), nil)

	var doc map[string]string
	require.NoError(t, repo.ReadJSON(context.Background(), "leads", "batch.json", &doc))
	assert.Equal(t, "t", doc["token"])

	err := repo.ReadJSON(context.Background(), "leads", "missing.json", &doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

//Personal.AI order the ending
