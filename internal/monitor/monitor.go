// Package monitor implements the hook-event monitoring service: a bounded
// per-session event queue, a batching consumer loop, and two delivery
// modes (session-integrated and independent) for the resulting digest.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HyphaGroup/orchestra/internal/logger"
	"github.com/HyphaGroup/orchestra/internal/metrics"
)

// Batching constants, matched to the values the hook forwarder and monitor
// server were built against: wait a bit for more events to arrive, but
// never let a session's queue sit unflushed for long and never grow a
// batch past a size that makes for a readable single prompt.
const (
	MaxBatchSize  = 10
	BatchWaitTime = 10 * time.Second
	MaxBatchWait  = 20 * time.Second

	queueCapacity = 1000
)

// ErrQueueFull is returned by enqueue when a session's queue is saturated;
// the HTTP layer maps it to 503.
var ErrQueueFull = errors.New("monitor: event queue full")

// Event is one hook payload, as decoded from the forwarder's JSON body plus
// a server-stamped received_at.
type Event map[string]any

// AgentClient delivers a formatted batch of events to whatever is watching
// sessionID. Session mode delivers into the agent's own running terminal;
// independent mode appends to a feedback file in sourcePath.
type AgentClient interface {
	Deliver(ctx context.Context, sessionID, sourcePath, prompt string) error
}

// sessionQueue buffers and batches events for one session_id.
type sessionQueue struct {
	sessionID, sourcePath string
	events                chan Event
	done                  chan struct{}
	client                AgentClient
}

func newSessionQueue(sessionID, sourcePath string, client AgentClient) *sessionQueue {
	q := &sessionQueue{
		sessionID:  sessionID,
		sourcePath: sourcePath,
		events:     make(chan Event, queueCapacity),
		done:       make(chan struct{}),
		client:     client,
	}
	go q.run()
	return q
}

func (q *sessionQueue) enqueue(evt Event) error {
	select {
	case q.events <- evt:
		metrics.SetHookQueueDepth(q.sessionID, len(q.events))
		return nil
	default:
		metrics.RecordHookQueueDrop(q.sessionID)
		return ErrQueueFull
	}
}

func (q *sessionQueue) stop() { close(q.done) }

func (q *sessionQueue) run() {
	for {
		var first Event
		select {
		case first = <-q.events:
		case <-q.done:
			return
		}

		batch := []Event{first}
		start := time.Now()

		for len(batch) < MaxBatchSize && time.Since(start) < MaxBatchWait {
			remaining := MaxBatchWait - time.Since(start)
			wait := BatchWaitTime
			if remaining < wait {
				wait = remaining
			}
			timer := time.NewTimer(wait)
			select {
			case evt := <-q.events:
				timer.Stop()
				batch = append(batch, evt)
			case <-timer.C:
				goto flush
			case <-q.done:
				timer.Stop()
				goto flush
			}
		}

	flush:
		metrics.SetHookQueueDepth(q.sessionID, len(q.events))
		metrics.RecordMonitorBatch(len(batch), time.Since(start))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := q.client.Deliver(ctx, q.sessionID, q.sourcePath, formatBatch(batch)); err != nil {
			logger.Error("monitor: delivering batch for %s: %v", q.sessionID, err)
		}
		cancel()
	}
}

func formatBatch(batch []Event) string {
	parts := make([]string, 0, len(batch))
	for _, evt := range batch {
		parts = append(parts, formatEvent(evt))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func formatEvent(evt Event) string {
	eventType, _ := evt["event"].(string)
	if eventType == "" {
		eventType = "UnknownEvent"
	}
	ts, _ := evt["received_at"].(string)
	pretty, err := json.MarshalIndent(evt, "", "  ")
	if err != nil {
		pretty = []byte(fmt.Sprintf("%v", evt))
	}
	return fmt.Sprintf("HOOK EVENT: %s\ntime: %s\n\n```json\n%s\n```", eventType, ts, pretty)
}

// Mode selects how delivered batches reach their destination.
type Mode string

const (
	ModeSession     Mode = "session"
	ModeIndependent Mode = "independent"
)

// Server routes hook events to a per-session batching queue and reports
// health/readiness/metrics over HTTP.
type Server struct {
	mode   Mode
	client AgentClient

	mu       sync.Mutex
	sessions map[string]*sessionQueue
}

// NewServer builds a Server that delivers batches through client, labeling
// its hook responses with mode.
func NewServer(mode Mode, client AgentClient) *Server {
	return &Server{mode: mode, client: client, sessions: map[string]*sessionQueue{}}
}

func (s *Server) queueFor(sessionID, sourcePath string) *sessionQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.sessions[sessionID]; ok {
		return q
	}
	q := newSessionQueue(sessionID, sourcePath, s.client)
	s.sessions[sessionID] = q
	logger.Info("monitor: started %s monitor for session_id=%s in %s", s.mode, sessionID, sourcePath)
	return q
}

// Enqueue accepts one hook event for sessionID, creating its queue on first
// use. Returns ErrQueueFull if the session's queue is saturated.
func (s *Server) Enqueue(sessionID, sourcePath string, evt Event) error {
	return s.queueFor(sessionID, sourcePath).enqueue(evt)
}

// Mode reports the server's configured delivery mode.
func (s *Server) Mode() Mode { return s.mode }

// Close stops every session's batching loop.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.sessions {
		q.stop()
	}
}
