// Package httpapi exposes the snapshot and service endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"top-tickers/internal/domain"
	"top-tickers/internal/idhash"
	"top-tickers/internal/logging"
	"top-tickers/internal/observability"
	"top-tickers/internal/orchestrator"
)

// serverErrorBody is the plain-text body of every 500 response.
const serverErrorBody = "Server Error"

// SnapshotReader returns the current snapshot.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context) ([]domain.Ticker, error)
}

// StatusProvider reports refresh state for /status.
type StatusProvider interface {
	Status() orchestrator.Status
}

// Options for creating the HTTP handler.
type Options struct {
	Snapshots SnapshotReader
	Status    StatusProvider // optional
	StaticDir string         // optional; serves files under / when set
	Logger    *zap.Logger
}

// NewHandler returns the service's HTTP routes.
func NewHandler(opts Options) http.Handler {
	logger := logging.OrNop(opts.Logger)
	h := &handler{
		snapshots: opts.Snapshots,
		status:    opts.Status,
		logger:    logger.Named("http"),
	}

	mux := http.NewServeMux()

	mux.Handle("GET /api/stocks", instrument("/api/stocks", h.handleSnapshot))
	mux.Handle("GET /api/tickers", instrument("/api/tickers", h.handleSnapshot))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Status endpoint
	mux.Handle("GET /status", instrument("/status", h.handleStatus))

	// Prometheus metrics
	mux.Handle("GET /metrics", observability.Handler())

	if opts.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(opts.StaticDir)))
	}

	return mux
}

type handler struct {
	snapshots SnapshotReader
	status    StatusProvider
	logger    *zap.Logger
}

// handleSnapshot returns the stored tickers as a JSON array.
// The ETag is the snapshot hash, so unchanged snapshots answer 304.
func (h *handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.snapshots.GetSnapshot(r.Context())
	if err != nil {
		h.logger.Error("retrieve snapshot", zap.String("path", r.URL.Path), zap.Error(err))
		serverError(w)
		return
	}

	etag := `"` + idhash.ComputeSnapshotHash(tickers) + `"`
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Values("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := json.Marshal(tickers)
	if err != nil {
		h.logger.Error("encode snapshot", zap.Error(err))
		serverError(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleStatus returns refresh state as JSON.
func (h *handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status  string               `json:"status"`
		Refresh *orchestrator.Status `json:"refresh,omitempty"`
	}{Status: "running"}

	if h.status != nil {
		st := h.status.Status()
		resp.Refresh = &st
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// etagMatches applies the weak comparison used for If-None-Match.
func etagMatches(headers []string, etag string) bool {
	for _, header := range headers {
		for _, candidate := range strings.Split(header, ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
				return true
			}
		}
	}
	return false
}

func serverError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(serverErrorBody))
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		observability.RecordHTTPRequest(route, rec.code)
	})
}
