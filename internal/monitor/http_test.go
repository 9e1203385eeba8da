package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandleHook(t *testing.T) {
	t.Run("rejects a missing source_path", func(t *testing.T) {
		s := NewServer(ModeIndependent, &recordingClient{})
		req := httptest.NewRequest(http.MethodPost, "/hook/sess-1", bytes.NewBufferString(`{"event":"Stop"}`))
		w := httptest.NewRecorder()

		s.handleHook(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		s := NewServer(ModeIndependent, &recordingClient{})
		req := httptest.NewRequest(http.MethodPost, "/hook/sess-1", bytes.NewBufferString(`not json`))
		w := httptest.NewRecorder()

		s.handleHook(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("rejects an empty session_id", func(t *testing.T) {
		s := NewServer(ModeIndependent, &recordingClient{})
		req := httptest.NewRequest(http.MethodPost, "/hook/", bytes.NewBufferString(`{"source_path":"/src"}`))
		w := httptest.NewRecorder()

		s.handleHook(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("accepts a well-formed event", func(t *testing.T) {
		s := NewServer(ModeIndependent, &recordingClient{})
		body := `{"source_path":"/src/project","event":"Stop"}`
		req := httptest.NewRequest(http.MethodPost, "/hook/sess-1", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		s.handleHook(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
		}
		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp["session_id"] != "sess-1" {
			t.Errorf("session_id = %q, want %q", resp["session_id"], "sess-1")
		}
		if resp["mode"] != string(ModeIndependent) {
			t.Errorf("mode = %q, want %q", resp["mode"], ModeIndependent)
		}
	})

	t.Run("503s when the session queue is full", func(t *testing.T) {
		// ctxBlockingClient stalls in Deliver until its 30s context expires,
		// so the batching loop consumes at most MaxBatchSize events before
		// wedging — sending well past queueCapacity+MaxBatchSize is
		// guaranteed to hit the full channel regardless of goroutine timing.
		s := NewServer(ModeIndependent, &ctxBlockingClient{})
		sessionID := "sess-full"

		sawFull := false
		for i := 0; i < queueCapacity+MaxBatchSize+10; i++ {
			if err := s.Enqueue(sessionID, "/src/project", Event{"event": "PostToolUse"}); err == ErrQueueFull {
				sawFull = true
				break
			}
		}
		if !sawFull {
			t.Fatal("expected ErrQueueFull after exceeding queue capacity")
		}

		body := `{"source_path":"/src/project","event":"PostToolUse"}`
		req := httptest.NewRequest(http.MethodPost, "/hook/"+sessionID, bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		s.handleHook(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})
}

// ctxBlockingClient does not return from Deliver until its context ends,
// simulating a wedged downstream so a session's queue can be driven to
// ErrQueueFull deterministically.
type ctxBlockingClient struct{}

func (ctxBlockingClient) Deliver(ctx context.Context, sessionID, sourcePath, prompt string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestMux_HealthAndReady(t *testing.T) {
	s := NewServer(ModeIndependent, &recordingClient{})
	mux := s.Mux()

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", path, w.Code, http.StatusOK)
		}
	}
}

func TestMux_RequestIDHeader(t *testing.T) {
	s := NewServer(ModeIndependent, &recordingClient{})
	mux := s.Mux()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}
