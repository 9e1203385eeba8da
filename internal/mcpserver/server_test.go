package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/messagequeue"
	"github.com/HyphaGroup/orchestra/internal/session"
	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeProtocol is a no-op agent.Protocol: every terminal session "exists"
// and every operation trivially succeeds, so handler tests exercise the
// MCP/session wiring without a real tmux binary.
type fakeProtocol struct {
	sendErr error
}

func (f *fakeProtocol) Start(ctx context.Context, t agent.Target) (bool, error) { return true, nil }
func (f *fakeProtocol) Status(ctx context.Context, t agent.Target) (agent.Status, error) {
	return agent.Status{Exists: true, Windows: 1}, nil
}
func (f *fakeProtocol) SendMessage(ctx context.Context, t agent.Target, text string) (bool, error) {
	if f.sendErr != nil {
		return false, f.sendErr
	}
	return true, nil
}
func (f *fakeProtocol) Attach(ctx context.Context, t agent.Target, targetPane string) (bool, error) {
	return true, nil
}
func (f *fakeProtocol) Delete(ctx context.Context, t agent.Target) error { return nil }

func newTestServer(t *testing.T, agentsYAML string) (*Server, *config.Home, string) {
	t.Helper()
	root := t.TempDir()
	home := &config.Home{Root: root}
	if err := os.MkdirAll(home.ConfigDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if agentsYAML != "" {
		if err := os.WriteFile(home.AgentsYAMLPath(), []byte(agentsYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	registry, err := agent.NewRegistry(home)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	store := session.NewStore(home, registry)
	queue := messagequeue.New(home.MessagesJSONL())
	manager := session.NewManager(home, store, &fakeProtocol{}, queue, 8765, 8081)

	return NewServer(store, manager), home, root
}

func TestHandleSpawnSubagent(t *testing.T) {
	agentsYAML := `
agents:
  - name: helper
    prompt: "Helper agent."
    work_path_kind: source
`
	srv, home, sourcePath := newTestServer(t, agentsYAML)

	t.Run("errors on unknown parent", func(t *testing.T) {
		res, _, err := srv.handleSpawnSubagent(context.Background(), nil, SpawnSubagentParams{
			SourcePath:        sourcePath,
			ParentSessionName: "nobody",
			ChildName:         "child",
		})
		if err != nil {
			t.Fatalf("handleSpawnSubagent() error = %v", err)
		}
		if !res.IsError {
			t.Error("expected IsError = true for unknown parent")
		}
	})

	t.Run("spawns a child under an existing root", func(t *testing.T) {
		registry, err := agent.NewRegistry(home)
		if err != nil {
			t.Fatal(err)
		}
		store := session.NewStore(home, registry)
		tree := &session.Tree{SourcePath: sourcePath}
		root := &session.Session{
			SessionName: "designer",
			SessionID:   filepath.Base(sourcePath),
			AgentType:   "designer",
			SourcePath:  sourcePath,
			WorkPath:    sourcePath,
			State:       session.StateRunning,
		}
		tree.Roots = append(tree.Roots, root)
		if err := store.Save(tree); err != nil {
			t.Fatal(err)
		}

		res, _, err := srv.handleSpawnSubagent(context.Background(), nil, SpawnSubagentParams{
			SourcePath:        sourcePath,
			ParentSessionName: "designer",
			ChildName:         "helper-1",
			Instructions:      "do the thing",
			AgentType:         "helper",
		})
		if err != nil {
			t.Fatalf("handleSpawnSubagent() error = %v", err)
		}
		if res.IsError {
			t.Fatalf("handleSpawnSubagent() returned error result: %+v", res.Content)
		}

		tree2, err := store.Load(sourcePath)
		if err != nil {
			t.Fatal(err)
		}
		if tree2.Find("helper-1") == nil {
			t.Error("expected persisted tree to contain the new child session")
		}
	})
}

func TestHandleSendMessage(t *testing.T) {
	srv, home, sourcePath := newTestServer(t, "")

	registry, err := agent.NewRegistry(home)
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewStore(home, registry)
	tree := &session.Tree{SourcePath: sourcePath}
	root := &session.Session{
		SessionName: "designer",
		SessionID:   filepath.Base(sourcePath),
		AgentType:   "designer",
		SourcePath:  sourcePath,
		WorkPath:    sourcePath,
		State:       session.StateRunning,
	}
	child := &session.Session{
		SessionName:       "worker",
		SessionID:         filepath.Base(sourcePath) + "-worker",
		AgentType:         "executor",
		SourcePath:        sourcePath,
		WorkPath:          sourcePath,
		ParentSessionName: "designer",
		State:             session.StateRunning,
	}
	root.Children = append(root.Children, child)
	tree.Roots = append(tree.Roots, root)
	if err := store.Save(tree); err != nil {
		t.Fatal(err)
	}

	t.Run("errors on unknown target", func(t *testing.T) {
		res, _, err := srv.handleSendMessage(context.Background(), nil, SendMessageParams{
			SourcePath: sourcePath,
			SenderName: "designer",
			TargetName: "nobody",
			Message:    "hi",
		})
		if err != nil {
			t.Fatalf("handleSendMessage() error = %v", err)
		}
		if !res.IsError {
			t.Error("expected IsError = true for unknown target")
		}
	})

	t.Run("delivers to an existing session", func(t *testing.T) {
		res, _, err := srv.handleSendMessage(context.Background(), nil, SendMessageParams{
			SourcePath: sourcePath,
			SenderName: "designer",
			TargetName: "worker",
			Message:    "status?",
		})
		if err != nil {
			t.Fatalf("handleSendMessage() error = %v", err)
		}
		if res.IsError {
			t.Fatalf("handleSendMessage() returned error result: %+v", res.Content)
		}
		content := res.Content[0].(*mcp_sdk.TextContent)
		if !strings.Contains(content.Text, "worker") {
			t.Errorf("result text = %q, want it to mention the target session", content.Text)
		}
	})
}

func TestErrorAndOkResult(t *testing.T) {
	ok := okResult("done")
	if ok.IsError {
		t.Error("okResult().IsError = true, want false")
	}
	if got := ok.Content[0].(*mcp_sdk.TextContent).Text; got != "done" {
		t.Errorf("okResult content = %q, want %q", got, "done")
	}

	errRes := errorResult("boom")
	if !errRes.IsError {
		t.Error("errorResult().IsError = false, want true")
	}
	if got := errRes.Content[0].(*mcp_sdk.TextContent).Text; got != "boom" {
		t.Errorf("errorResult content = %q, want %q", got, "boom")
	}
}
