package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"top-tickers/internal/domain"
	"top-tickers/internal/observability"
	"top-tickers/internal/orchestrator"
	"top-tickers/internal/query"
	"top-tickers/internal/storage/memory"
	"top-tickers/internal/storage/storagetest"
)

type readerFunc func(ctx context.Context) ([]domain.Ticker, error)

func (f readerFunc) GetSnapshot(ctx context.Context) ([]domain.Ticker, error) {
	return f(ctx)
}

type fixedStatus orchestrator.Status

func (s fixedStatus) Status() orchestrator.Status {
	return orchestrator.Status(s)
}

func newServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(opts))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestSnapshotEndpoints(t *testing.T) {
	store := memory.NewSnapshotStore()
	want := []domain.Ticker{{
		Name:     "BTC/INR",
		Last:     decimal.RequireFromString("3050000.5"),
		Buy:      decimal.RequireFromString("3049000"),
		Sell:     decimal.RequireFromString("3051000"),
		Volume:   decimal.RequireFromString("12.5"),
		BaseUnit: "btc",
	}}
	require.NoError(t, store.ReplaceAll(context.Background(), want))

	srv := newServer(t, Options{Snapshots: query.New(store, nil)})

	for _, path := range []string{"/api/stocks", "/api/tickers"} {
		t.Run(path, func(t *testing.T) {
			resp, body := get(t, srv.URL+path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			assert.JSONEq(t, `[{"name":"BTC/INR","last":"3050000.5","buy":"3049000","sell":"3051000","volume":"12.5","base_unit":"btc"}]`, body)
		})
	}
}

func TestSnapshotEndpoint_KeepsRankedOrder(t *testing.T) {
	store := memory.NewSnapshotStore()
	want := storagetest.Tickers("r", 10)
	require.NoError(t, store.ReplaceAll(context.Background(), want))

	srv := newServer(t, Options{Snapshots: query.New(store, nil)})
	_, body := get(t, srv.URL+"/api/stocks")

	var got []domain.Ticker
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	storagetest.AssertTickers(t, want, got)
}

func TestSnapshotEndpoint_ETag(t *testing.T) {
	store := memory.NewSnapshotStore()
	require.NoError(t, store.ReplaceAll(context.Background(), storagetest.Tickers("e", 3)))
	srv := newServer(t, Options{Snapshots: query.New(store, nil)})

	resp, _ := get(t, srv.URL+"/api/stocks")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/stocks", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)

	require.NoError(t, store.ReplaceAll(context.Background(), storagetest.Tickers("f", 3)))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
}

func TestSnapshotEndpoint_ConditionalForms(t *testing.T) {
	store := memory.NewSnapshotStore()
	require.NoError(t, store.ReplaceAll(context.Background(), storagetest.Tickers("c", 2)))
	srv := newServer(t, Options{Snapshots: query.New(store, nil)})

	resp, _ := get(t, srv.URL+"/api/tickers")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	testCases := []struct {
		name   string
		header string
		want   int
	}{
		{"weak", "W/" + etag, http.StatusNotModified},
		{"list", `"stale", ` + etag, http.StatusNotModified},
		{"weak_in_list", `W/"stale",W/` + etag, http.StatusNotModified},
		{"wildcard", "*", http.StatusNotModified},
		{"other", `"stale"`, http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/tickers", nil)
			require.NoError(t, err)
			req.Header.Set("If-None-Match", tc.header)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestSnapshotEndpoint_Empty(t *testing.T) {
	srv := newServer(t, Options{Snapshots: query.New(memory.NewSnapshotStore(), nil)})

	resp, body := get(t, srv.URL+"/api/tickers")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", body)
}

func TestSnapshotEndpoint_StoreFailure(t *testing.T) {
	before := testutil.ToFloat64(observability.DefaultMetrics.HTTPRequestsTotal.WithLabelValues("/api/stocks", "500"))

	srv := newServer(t, Options{Snapshots: readerFunc(func(context.Context) ([]domain.Ticker, error) {
		return nil, errors.New("connection refused")
	})})

	resp, body := get(t, srv.URL+"/api/stocks")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Server Error", body)

	after := testutil.ToFloat64(observability.DefaultMetrics.HTTPRequestsTotal.WithLabelValues("/api/stocks", "500"))
	assert.Equal(t, before+1, after)
}

func TestSnapshotEndpoint_MethodNotAllowed(t *testing.T) {
	srv := newServer(t, Options{Snapshots: query.New(memory.NewSnapshotStore(), nil)})

	resp, err := http.Post(srv.URL+"/api/stocks", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newServer(t, Options{Snapshots: query.New(memory.NewSnapshotStore(), nil)})

	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestStatus(t *testing.T) {
	srv := newServer(t, Options{
		Snapshots: query.New(memory.NewSnapshotStore(), nil),
		Status: fixedStatus{
			State:        orchestrator.StateIdle,
			LastCycleID:  "cycle-1",
			SnapshotSize: 10,
			Runs:         3,
			Failures:     1,
		},
	})

	resp, body := get(t, srv.URL+"/status")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Status  string              `json:"status"`
		Refresh orchestrator.Status `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, orchestrator.StateIdle, got.Refresh.State)
	assert.Equal(t, "cycle-1", got.Refresh.LastCycleID)
	assert.Equal(t, 10, got.Refresh.SnapshotSize)
	assert.Equal(t, 3, got.Refresh.Runs)
	assert.Equal(t, 1, got.Refresh.Failures)
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, Options{Snapshots: query.New(memory.NewSnapshotStore(), nil)})

	get(t, srv.URL+"/api/stocks")
	resp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "top_tickers_http_requests_total")
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>tickers</h1>"), 0o644))

	srv := newServer(t, Options{
		Snapshots: query.New(memory.NewSnapshotStore(), nil),
		StaticDir: dir,
	})

	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h1>tickers</h1>")

	// API routes still win over the file server.
	_, body = get(t, srv.URL+"/api/stocks")
	assert.Equal(t, "[]", body)
}

func TestStaticFiles_DisabledByDefault(t *testing.T) {
	srv := newServer(t, Options{Snapshots: query.New(memory.NewSnapshotStore(), nil)})

	resp, _ := get(t, srv.URL+"/index.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
