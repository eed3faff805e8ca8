package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	apierrors "github.com/ColorsOutofSpace/net-check/internal/errors"
	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

func newTestServer(t *testing.T) (*Server, *jobmanager.Manager) {
	t.Helper()
	cat := catalog.New()
	manager := jobmanager.New(cat, jobmanager.Config{Encoding: unicode.UTF8})
	srv := New("127.0.0.1", 0, Deps{
		Manager:  manager,
		Catalog:  cat,
		Registry: prometheus.NewRegistry(),
		Version:  "test",
	})
	return srv, manager
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test spawns unix commands")
	}
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apierrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/version", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body apierrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestServer_Port(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"default port", 8080},
		{"custom port", 9000},
		{"zero port", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := catalog.New()
			srv := New("127.0.0.1", tt.port, Deps{
				Manager: jobmanager.New(cat, jobmanager.Config{}),
				Catalog: cat,
			})
			assert.Equal(t, tt.port, srv.Port())
		})
	}
}

func TestServer_RoutesRegistered(t *testing.T) {
	srv, _ := newTestServer(t)

	endpoints := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/version", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/checks", http.StatusOK},
		{"GET", "/api/summary", http.StatusOK},
		{"GET", "/api/jobs", http.StatusOK},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(ep.method, ep.path, nil))
			assert.Equal(t, ep.want, rec.Code)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "test", body["version"])
}

func TestChecksEndpointListsCatalog(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/checks", nil))

	var body struct {
		Checks []catalog.Check `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Checks, 10)
}

func TestCreateJobValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("malformed body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader("{nope"))
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body apierrors.HTTPErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "VALIDATION", body.Error.Code)
	})

	t.Run("missing check id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"target":"example.com"}`))
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"check_id":"port-scan"}`))
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
		var body apierrors.HTTPErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "UNKNOWN_CHECK", body.Error.Code)
	})
}

func TestCreateAndGetJob(t *testing.T) {
	skipOnWindows(t)
	srv, manager := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs",
		strings.NewReader(`{"check_id":"winsock-catalog"}`))
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var created jobmanager.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "winsock-catalog", created.CheckID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := manager.Await(ctx, created.ID)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var fetched jobmanager.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.True(t, fetched.Status.Terminal())
}

func TestGetJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body apierrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestEventsStreamReplaysCompletedJob(t *testing.T) {
	skipOnWindows(t)
	srv, manager := newTestServer(t)

	snap, err := manager.CreateJob("winsock-catalog", jobmanager.Input{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err = manager.Await(ctx, snap.ID)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/jobs/"+snap.ID+"/events", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var kinds []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			kinds = append(kinds, strings.TrimPrefix(line, "event: "))
		}
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, "start", kinds[0])
	assert.Equal(t, "complete", kinds[len(kinds)-1])
}

func TestEventsStreamUnknownJob(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryEndpointShape(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total  int `json:"total"`
		Layers []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"layers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 0, body.Total)
	assert.Len(t, body.Layers, 6)
	for _, layer := range body.Layers {
		assert.Equal(t, "pending", layer.Status)
	}
}
