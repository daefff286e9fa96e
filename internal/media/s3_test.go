package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedPut struct {
	method, path, acl, contentType string
	body                           []byte
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, *capturedPut) {
	t.Helper()
	var (
		mu  sync.Mutex
		got capturedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = capturedPut{
			method:      r.Method,
			path:        r.URL.Path,
			acl:         r.Header.Get("X-Amz-Acl"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		}
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTestS3Store(t *testing.T, endpoint, publicURL string) *S3Store {
	t.Helper()
	store, err := NewS3Store(S3Config{
		Bucket:      "photos",
		Region:      "us-east-1",
		Endpoint:    endpoint,
		PublicURL:   publicURL,
		Credentials: credentials.NewStaticCredentials("AKIDTEST", "secret", ""),
	})
	require.NoError(t, err)
	return store
}

func TestS3Store_Put(t *testing.T) {
	srv, got := newFakeS3(t, http.StatusOK)
	store := newTestS3Store(t, srv.URL, "https://cdn.example.com/")

	url, err := store.Put(context.Background(), "posts/u1/abc.jpg", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/posts/u1/abc.jpg", url)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/photos/posts/u1/abc.jpg", got.path)
	assert.Equal(t, "public-read", got.acl)
	assert.Equal(t, "image/jpeg", got.contentType)
	assert.Equal(t, "jpeg-bytes", string(got.body))
}

func TestS3Store_PutFailure(t *testing.T) {
	srv, _ := newFakeS3(t, http.StatusForbidden)
	store := newTestS3Store(t, srv.URL, "")

	_, err := store.Put(context.Background(), "posts/u1/abc.jpg", "image/jpeg", []byte("x"))
	assert.Error(t, err)
}

func TestNewS3Store_DefaultPublicURL(t *testing.T) {
	store := newTestS3Store(t, "", "")
	assert.Equal(t, "https://photos.s3.us-east-1.amazonaws.com", store.publicURL)
}
