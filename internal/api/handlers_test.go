package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bilgisen/agcofeed/internal/feed"
	"github.com/bilgisen/agcofeed/internal/middleware"
	"github.com/bilgisen/agcofeed/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	data    []byte
	modTime time.Time
}

func (m *memoryStore) Load(ctx context.Context) ([]byte, time.Time, error) {
	if m.data == nil {
		return nil, time.Time{}, storage.ErrNotFound
	}
	return m.data, m.modTime, nil
}

func (m *memoryStore) Exists() bool {
	return m.data != nil
}

type stubRunner struct {
	result *feed.Result
	err    error
	calls  int
}

func (r *stubRunner) Run(ctx context.Context) (*feed.Result, error) {
	r.calls++
	return r.result, r.err
}

const adminKey = "secret"

func newTestApp(store FeedStore, runner Runner) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	SetupRoutes(app, NewHandlers(store, runner, "application/rss+xml; charset=utf-8", time.Minute), adminKey)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestGetFeed(t *testing.T) {
	modTime := time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)
	app := newTestApp(&memoryStore{data: []byte("<rss/>"), modTime: modTime}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/feed.xml", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/rss+xml; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "Sun, 03 Mar 2024 23:59:00 GMT", resp.Header.Get("Last-Modified"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<rss/>", string(body))
}

func TestGetFeedNotModified(t *testing.T) {
	modTime := time.Date(2024, 3, 3, 23, 59, 0, 0, time.UTC)
	app := newTestApp(&memoryStore{data: []byte("<rss/>"), modTime: modTime}, &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/feed.xml", nil)
	req.Header.Set("If-Modified-Since", "Sun, 03 Mar 2024 23:59:00 GMT")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestGetFeedMissing(t *testing.T) {
	app := newTestApp(&memoryStore{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/feed.xml", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Feed has not been generated yet", decodeBody(t, resp)["error"])
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(&memoryStore{data: []byte("<rss/>")}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["feed_available"])
}

func TestRefreshRequiresAPIKey(t *testing.T) {
	runner := &stubRunner{result: &feed.Result{Items: 3}}
	app := newTestApp(&memoryStore{}, runner)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	assert.Equal(t, 0, runner.calls)
}

func TestRefresh(t *testing.T) {
	cases := []struct {
		name   string
		runner *stubRunner
		status int
	}{
		{"success", &stubRunner{result: &feed.Result{Items: 3, OutputPath: "agco_feed.xml"}}, http.StatusOK},
		{"busy", &stubRunner{err: feed.ErrRunInProgress}, http.StatusConflict},
		{"failure", &stubRunner{err: errors.New("no news rows found in markup")}, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&memoryStore{}, tc.runner)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil)
			req.Header.Set("X-API-Key", adminKey)
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, 1, tc.runner.calls)

			body := decodeBody(t, resp)
			if tc.status == http.StatusOK {
				result := body["result"].(map[string]interface{})
				assert.Equal(t, float64(3), result["items"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(&memoryStore{}, &stubRunner{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
