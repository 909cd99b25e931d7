package blobs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	body   string
	digest string
}

func fakeS3(t *testing.T) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []capturedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, capturedRequest{
			method: r.Method,
			path:   r.URL.Path,
			body:   string(b),
			digest: r.Header.Get("X-Amz-Meta-" + DigestMetadataKey),
		})
		mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), Config{
		Region:       "us-east-1",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Bucket:       "notes",
		BaseEndpoint: endpoint,
		UsePathStyle: true,
	})
	require.NoError(t, err)
	return s
}

func TestS3Store_PutAndDelete(t *testing.T) {
	srv, reqs := fakeS3(t)
	s := newStore(t, srv.URL)
	ctx := context.Background()

	var last, reported atomic.Int64
	body := "voice-note-bytes"
	err := s.Put(ctx, "users/u1/notes/n1.m4a", strings.NewReader(body), int64(len(body)), "abc123",
		func(sent, total int64) {
			reported.Store(total)
			last.Store(sent)
		})
	require.NoError(t, err)
	require.Equal(t, int64(len(body)), reported.Load())
	require.Equal(t, int64(len(body)), last.Load())

	require.NoError(t, s.Delete(ctx, "users/u1/notes/n1.m4a"))

	require.Len(t, *reqs, 2)
	put := (*reqs)[0]
	require.Equal(t, http.MethodPut, put.method)
	require.Equal(t, "/notes/users/u1/notes/n1.m4a", put.path)
	require.Equal(t, body, put.body)
	require.Equal(t, "abc123", put.digest)

	require.Equal(t, http.MethodDelete, (*reqs)[1].method)
}

func TestS3Store_PresignGet(t *testing.T) {
	s := newStore(t, "http://127.0.0.1:9000")

	url, err := s.PresignGet(context.Background(), "users/u1/notes/n1.m4a", 10*time.Minute)
	require.NoError(t, err)
	require.Contains(t, url, "/notes/users/u1/notes/n1.m4a")
	require.Contains(t, url, "X-Amz-Signature=")
	require.Contains(t, url, "X-Amz-Expires=600")
}

func TestS3Store_PresignGetError(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })
	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign boom")
	}

	s := newStore(t, "http://127.0.0.1:9000")
	_, err := s.PresignGet(context.Background(), "k", time.Minute)
	require.ErrorContains(t, err, "presign boom")
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		require.Equal(t, "eu-west-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	_, err := NewS3Store(context.Background(), Config{Region: "eu-west-1", BaseEndpoint: "http://minio:9000", UsePathStyle: true})
	require.NoError(t, err)
	require.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	require.True(t, opts.UsePathStyle)
}

func TestNewS3Store_ConfigError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), Config{})
	require.ErrorContains(t, err, "no config")
}
