package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/garimto81/ggm-timeline/internal/scheduler"
)

// Loop is the scheduler surface the API needs.
type Loop interface {
	Snapshot(ctx context.Context) (scheduler.Snapshot, error)
	SignalDeletions(keys []string)
	SetRunning(on bool)
}

// FeedHealth reports whether the feed poller last succeeded.
type FeedHealth interface {
	Healthy() bool
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	loop Loop
	feed FeedHealth
	db   HealthChecker
}

func NewHandler(loop Loop) *Handler {
	return &Handler{loop: loop}
}

// WithFeedHealth sets the feed poller for verbose /health responses.
func (h *Handler) WithFeedHealth(feed FeedHealth) *Handler {
	h.feed = feed
	return h
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/events" && r.Method == http.MethodGet:
		h.events(w, r)

	case path == "/deletions" && r.Method == http.MethodPost:
		h.deletions(w, r)

	case path == "/run" && r.Method == http.MethodPost:
		h.run(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	if !verbose {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if snap, err := h.loop.Snapshot(ctx); err != nil {
		resp.Status = "degraded"
		resp.Components["scheduler"] = "unhealthy: " + err.Error()
	} else {
		resp.Components["scheduler"] = "healthy"
		if snap.ClockLive {
			resp.Components["clock"] = "live"
		} else {
			resp.Components["clock"] = "wall-clock fallback"
		}
	}

	if h.feed != nil {
		if h.feed.Healthy() {
			resp.Components["feed"] = "healthy"
		} else {
			resp.Status = "degraded"
			resp.Components["feed"] = "unhealthy: last poll failed"
		}
	}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components["journal"] = "unhealthy: " + err.Error()
		} else {
			resp.Components["journal"] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, resp)
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loop.Snapshot(r.Context())
	if err != nil {
		log.Printf("api: snapshot error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read scheduler state")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

func (h *Handler) deletions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req DeletionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var keys []string
	for _, k := range req.Keys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		writeError(w, http.StatusBadRequest, "keys required")
		return
	}

	h.loop.SignalDeletions(keys)
	writeJSON(w, http.StatusAccepted, DeletionsResponse{Accepted: len(keys)})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	h.loop.SetRunning(req.Running)
	writeJSON(w, http.StatusOK, RunResponse{Running: req.Running})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
