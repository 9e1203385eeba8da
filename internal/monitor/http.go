package monitor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HyphaGroup/orchestra/internal/audit"
	"github.com/HyphaGroup/orchestra/internal/logger"
	"github.com/HyphaGroup/orchestra/internal/metrics"
)

func generateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// requestIDKey is the context key the hook handler's request-ID middleware
// stores under; a plain unexported type avoids collisions with other
// packages' context keys.
type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func writeJSON(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleHook implements POST /hook/{session_id}: 400 on invalid JSON or a
// missing source_path, 503 when the session's queue is full, 200 otherwise.
func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/hook/")
	sessionID, err := url.PathUnescape(sessionID)
	if err != nil || sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "session_id is required"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "failed to read body: " + err.Error()})
		return
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid JSON: " + err.Error()})
		return
	}

	sourcePath, _ := payload["source_path"].(string)
	if sourcePath == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "source_path is required"})
		return
	}

	payload["received_at"] = time.Now().UTC().Format(time.RFC3339)

	eventType, _ := payload["event"].(string)
	if eventType == "" {
		eventType = "UnknownEvent"
	}
	logger.Info("monitor: received event %s for session %s in %s", eventType, sessionID, sourcePath)

	if err := s.Enqueue(sessionID, sourcePath, Event(payload)); err != nil {
		audit.LogFailure(audit.OpHookReceived, sourcePath, sessionID, "", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "queue full"})
		return
	}
	audit.LogSuccess(audit.OpHookReceived, sourcePath, sessionID, "")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"session_id": sessionID,
		"mode":       string(s.mode),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Mux builds the monitor's HTTP handler: health/ready/metrics unauthenticated
// (matching the MCP server's posture — Non-goal: no auth), request-ID and
// access logging on every route, and the hook endpoint wrapped in the
// Prometheus request middleware.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/hook/", metrics.Middleware(http.HandlerFunc(s.handleHook)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(withRequestID(r.Context(), requestID))
		logger.Info("monitor: %s %s from %s [request_id=%s]", r.Method, r.URL.Path, r.RemoteAddr, requestID)
		mux.ServeHTTP(w, r)
	})
}
