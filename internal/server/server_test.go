package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/snapgram/internal/auth"
	"github.com/sakif/snapgram/internal/config"
	sqliteRepo "github.com/sakif/snapgram/internal/repository/sqlite"
)

func testConfig() config.Config {
	return config.Config{
		Port:          8080,
		DBDriver:      config.DriverSQLite,
		DBPath:        ":memory:",
		DBMaxConns:    1,
		JWTSecret:     "server-test-secret-0123456789",
		TokenTTL:      time.Hour,
		MediaMaxBytes: 1 << 20,
		LogLevel:      slog.LevelError,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	store, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := newServer(cfg, store, auth.NewPasswordServiceWithCost(bcrypt.MinCost), logger)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func signupToken(t *testing.T, ts *httptest.Server, username string) (token, id string) {
	t.Helper()
	resp, body := call(t, ts, http.MethodPost, "/api/auth/signup", "",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"password123"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testConfig())

	resp, body := call(t, ts, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	ts := newTestServer(t, testConfig())

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/feed"},
		{http.MethodPost, "/api/posts"},
		{http.MethodGet, "/api/posts/abc"},
		{http.MethodPost, "/api/likes/abc"},
		{http.MethodGet, "/api/comments/abc"},
		{http.MethodGet, "/api/users/search/query?query=a"},
		{http.MethodPatch, "/api/users/me/profile-picture"},
		{http.MethodGet, "/api/users/abc/followers"},
		{http.MethodPost, "/api/users/abc/follow"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp, body := call(t, ts, rt.method, rt.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "unauthorized", body["error"])
		})
	}
}

func TestEndToEnd(t *testing.T) {
	ts := newTestServer(t, testConfig())

	alice, aliceID := signupToken(t, ts, "alice")
	bob, bobID := signupToken(t, ts, "bob")

	resp, _ := call(t, ts, http.MethodPost, "/api/users/"+bobID+"/follow", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := call(t, ts, http.MethodPost, "/api/posts", bob, `{"image_url":"https://img/b.jpg","caption":"hi"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	postID := body["post"].(map[string]any)["id"].(string)

	resp, body = call(t, ts, http.MethodGet, "/api/feed", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := body["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, postID, posts[0].(map[string]any)["id"])

	resp, body = call(t, ts, http.MethodPost, "/api/likes/"+postID, alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["likes_count"])

	resp, body = call(t, ts, http.MethodGet, "/api/posts/user/"+bobID, alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["posts"].([]any), 1)

	resp, body = call(t, ts, http.MethodGet, "/api/users/"+bobID, alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := body["user"].(map[string]any)
	assert.EqualValues(t, 1, profile["followers_count"])
	assert.Equal(t, true, profile["is_following"])

	resp, body = call(t, ts, http.MethodGet, "/api/users/"+aliceID+"/following", bob, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["users"].([]any), 1)
}

func TestGitHubRoutes(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, testConfig())
		resp, _ := call(t, ts, http.MethodGet, "/auth/github/login", "", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.GitHubClientID = "client-id"
		cfg.GitHubClientSecret = "client-secret"
		cfg.GitHubCallbackURL = "http://localhost:8080/auth/github/callback"
		ts := newTestServer(t, cfg)

		resp, _ := call(t, ts, http.MethodGet, "/auth/github/login", "", "")
		assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Location"), "github.com/login/oauth/authorize")
	})
}

func TestMediaRoute(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, testConfig())
		token, _ := signupToken(t, ts, "carol")
		resp, _ := call(t, ts, http.MethodPost, "/api/media", token, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("configured", func(t *testing.T) {
		cfg := testConfig()
		cfg.S3Bucket = "photos"
		cfg.S3Region = "us-east-1"
		ts := newTestServer(t, cfg)
		token, _ := signupToken(t, ts, "carol")

		// No multipart body: the route exists and rejects the request.
		resp, body := call(t, ts, http.MethodPost, "/api/media", token, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", body["error"])
	})
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"http://localhost:3000"}
	ts := newTestServer(t, cfg)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/feed", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	// Browsers send preflight header names lowercased.
	req.Header.Set("Access-Control-Request-Headers", "authorization")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	t.Run("simple request", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:3000")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://evil.example.com")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})
}

func TestOpenStore(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		cfg := testConfig()
		cfg.DBPath = filepath.Join(t.TempDir(), "snapgram.db")

		store, err := OpenStore(context.Background(), cfg)
		require.NoError(t, err)
		assert.NoError(t, store.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := testConfig()
		cfg.DBDriver = "mysql"

		_, err := OpenStore(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestNewServer_RejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "short"

	store, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = newServer(cfg, store, auth.NewPasswordServiceWithCost(bcrypt.MinCost), slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
