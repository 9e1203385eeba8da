// Package mcpserver exposes Orchestra's two agent-facing tools —
// spawn_subagent and send_message_to_session — over the Model Context
// Protocol, so a running session can grow the tree and talk to its
// relatives without shelling out to an operator CLI.
package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/HyphaGroup/orchestra/internal/logger"
	"github.com/HyphaGroup/orchestra/internal/metrics"
	"github.com/HyphaGroup/orchestra/internal/session"
	"github.com/HyphaGroup/orchestra/internal/tracing"
	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server with Orchestra's session manager.
type Server struct {
	store   *session.Store
	manager *session.Manager
	mcp     *mcp_sdk.Server
}

// NewServer builds a Server bound to store/manager, registering both tools.
func NewServer(store *session.Store, manager *session.Manager) *Server {
	s := &Server{store: store, manager: manager}

	s.mcp = mcp_sdk.NewServer(&mcp_sdk.Implementation{
		Name:    "orchestra-mcp",
		Version: "0.1.0",
	}, nil)

	mcp_sdk.AddTool(s.mcp, &mcp_sdk.Tool{
		Name: "spawn_subagent",
		Description: "Spawn a child agent session under the calling session, " +
			"with its own isolated workspace and instructions.",
	}, s.handleSpawnSubagent)

	mcp_sdk.AddTool(s.mcp, &mcp_sdk.Tool{
		Name:        "send_message_to_session",
		Description: "Send a message to another session in the same project tree.",
	}, s.handleSendMessage)

	return s
}

// SpawnSubagentParams is spawn_subagent's input.
type SpawnSubagentParams struct {
	SourcePath        string `json:"source_path" jsonschema:"the project's source directory"`
	ParentSessionName string `json:"parent_session_name" jsonschema:"the calling session's name"`
	ChildName         string `json:"child_session_name" jsonschema:"name for the new child session"`
	Instructions      string `json:"instructions" jsonschema:"instructions written to the child's instructions.md"`
	AgentType         string `json:"agent_type,omitempty" jsonschema:"agent type to spawn; defaults to executor"`
}

func (s *Server) handleSpawnSubagent(ctx context.Context, req *mcp_sdk.CallToolRequest, params SpawnSubagentParams) (*mcp_sdk.CallToolResult, any, error) {
	ctx, span := tracing.StartSpan(ctx, "spawn_subagent")
	defer span.End()

	tree, err := s.store.Load(params.SourcePath)
	if err != nil {
		metrics.RecordToolCall("spawn_subagent", "error")
		return errorResult(fmt.Sprintf("Error: %s", err)), nil, nil
	}

	parent := tree.Find(params.ParentSessionName)
	if parent == nil {
		msg := fmt.Sprintf("Error: Parent session '%s' not found", params.ParentSessionName)
		metrics.RecordToolCall("spawn_subagent", "error")
		return errorResult(msg), nil, nil
	}

	s.store.Locks().Lock(parent.SessionID)
	defer s.store.Locks().Unlock(parent.SessionID)

	child, err := s.manager.SpawnChild(ctx, parent, params.ChildName, params.Instructions, params.AgentType)
	if err != nil {
		metrics.RecordToolCall("spawn_subagent", "error")
		return errorResult(fmt.Sprintf("Error: %s", err)), nil, nil
	}

	if err := s.store.Save(tree); err != nil {
		metrics.RecordToolCall("spawn_subagent", "error")
		return errorResult(fmt.Sprintf("Error: failed to persist session tree: %s", err)), nil, nil
	}

	logger.Info("mcp: spawned child session '%s' under parent '%s'", child.SessionName, parent.SessionName)
	metrics.RecordToolCall("spawn_subagent", "ok")
	msg := fmt.Sprintf("Successfully spawned child session '%s' under parent '%s'", child.SessionName, parent.SessionName)
	return okResult(msg), nil, nil
}

// SendMessageParams is send_message_to_session's input.
type SendMessageParams struct {
	SourcePath  string `json:"source_path" jsonschema:"the project's source directory"`
	SenderName  string `json:"sender_name" jsonschema:"the calling session's name"`
	TargetName  string `json:"session_name" jsonschema:"the session to send the message to"`
	Message     string `json:"message" jsonschema:"the message text"`
}

func (s *Server) handleSendMessage(ctx context.Context, req *mcp_sdk.CallToolRequest, params SendMessageParams) (*mcp_sdk.CallToolResult, any, error) {
	ctx, span := tracing.StartSpan(ctx, "send_message_to_session")
	defer span.End()

	target, _, err := s.store.Find(params.SourcePath, params.TargetName)
	if err != nil {
		metrics.RecordToolCall("send_message_to_session", "error")
		return errorResult(fmt.Sprintf("Error: %s", err)), nil, nil
	}
	if target == nil {
		metrics.RecordToolCall("send_message_to_session", "error")
		return errorResult(fmt.Sprintf("Error: session '%s' not found", params.TargetName)), nil, nil
	}

	s.store.Locks().Lock(target.SessionID)
	defer s.store.Locks().Unlock(target.SessionID)

	result, err := s.manager.SendMessage(ctx, target, params.SenderName, params.Message)
	if err != nil {
		metrics.RecordToolCall("send_message_to_session", "error")
		return errorResult(fmt.Sprintf("Error: %s", err)), nil, nil
	}

	metrics.RecordToolCall("send_message_to_session", "ok")
	return okResult(result), nil, nil
}

func okResult(text string) *mcp_sdk.CallToolResult {
	return &mcp_sdk.CallToolResult{Content: []mcp_sdk.Content{&mcp_sdk.TextContent{Text: text}}}
}

func errorResult(text string) *mcp_sdk.CallToolResult {
	return &mcp_sdk.CallToolResult{IsError: true, Content: []mcp_sdk.Content{&mcp_sdk.TextContent{Text: text}}}
}

func generateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Mux builds the MCP HTTP handler: health/ready/metrics unauthenticated,
// request-ID + access logging on every route, /mcp wrapped in the
// Prometheus request middleware — matching the hook monitor's posture
// (Non-goal: no auth, no rate limiting).
func (s *Server) Mux() http.Handler {
	mcpHandler := mcp_sdk.NewStreamableHTTPHandler(func(r *http.Request) *mcp_sdk.Server {
		return s.mcp
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/mcp", metrics.Middleware(mcpHandler))
	mux.Handle("/mcp/", metrics.Middleware(mcpHandler))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		logger.Info("mcp: %s %s from %s [request_id=%s]", r.Method, r.URL.Path, r.RemoteAddr, requestID)
		mux.ServeHTTP(w, r)
	})
}
