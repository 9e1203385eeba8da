package session

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/messagequeue"
)

// stubProtocol records calls instead of touching tmux or Docker.
type stubProtocol struct {
	started []string
	sent    []string
	deleted []string
}

func (s *stubProtocol) Start(ctx context.Context, t agent.Target) (bool, error) {
	s.started = append(s.started, t.SessionID)
	return true, nil
}
func (s *stubProtocol) Status(ctx context.Context, t agent.Target) (agent.Status, error) {
	return agent.Status{Exists: true}, nil
}
func (s *stubProtocol) SendMessage(ctx context.Context, t agent.Target, text string) (bool, error) {
	s.sent = append(s.sent, text)
	return true, nil
}
func (s *stubProtocol) Attach(ctx context.Context, t agent.Target, targetPane string) (bool, error) {
	return true, nil
}
func (s *stubProtocol) Delete(ctx context.Context, t agent.Target) error {
	s.deleted = append(s.deleted, t.SessionID)
	return nil
}

func initRepo(t *testing.T, dir string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", ".")
	run("commit", "-q", "-m", "init")
}

func newTestManager(t *testing.T) (*Manager, *stubProtocol, *Store, string) {
	t.Helper()
	root := t.TempDir()
	home := &config.Home{Root: root}
	for _, dir := range []string{home.ConfigDir(), home.SharedClaudeDir(), home.SubagentsDir(), home.WorktreesDir(), home.ReposDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	registry, err := agent.NewRegistry(home)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	store := NewStore(home, registry)
	protocol := &stubProtocol{}
	queue := messagequeue.New(home.MessagesJSONL())
	mgr := NewManager(home, store, protocol, queue, 8765, 8081)

	sourcePath := filepath.Join(t.TempDir(), "project")
	if err := os.MkdirAll(sourcePath, 0o755); err != nil {
		t.Fatal(err)
	}
	initRepo(t, sourcePath)

	return mgr, protocol, store, sourcePath
}

func newRootSession(sourcePath string, registry *agent.Registry) *Session {
	return &Session{
		SessionName: "designer",
		SessionID:   "designer",
		AgentType:   "designer",
		SourcePath:  sourcePath,
		State:       StateNascent,
	}
}

func TestPrepareDesignerUsesSourcePath(t *testing.T) {
	mgr, _, store, sourcePath := newTestManager(t)
	root := newRootSession(sourcePath, store.registry)
	root.tree = &Tree{SourcePath: sourcePath, registry: store.registry}

	if err := mgr.Prepare(root, "", ""); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if root.WorkPath != sourcePath {
		t.Fatalf("expected work path %s, got %s", sourcePath, root.WorkPath)
	}
	if _, err := os.Stat(filepath.Join(sourcePath, "CLAUDE.md")); err != nil {
		t.Fatalf("expected CLAUDE.md written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sourcePath, ".claude", "commands", "merge-child.md")); err != nil {
		t.Fatalf("expected merge-child.md written for root: %v", err)
	}
}

func TestSpawnChildAppendsOnSuccess(t *testing.T) {
	mgr, stub, store, sourcePath := newTestManager(t)
	root := newRootSession(sourcePath, store.registry)
	root.tree = &Tree{SourcePath: sourcePath, registry: store.registry}
	if err := mgr.Prepare(root, "", ""); err != nil {
		t.Fatalf("Prepare root: %v", err)
	}

	ctx := context.Background()
	child, err := mgr.SpawnChild(ctx, root, "worker-1", "do the thing", "")
	if err != nil {
		t.Fatalf("SpawnChild: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0] != child {
		t.Fatalf("expected child appended to root.Children, got %+v", root.Children)
	}
	if child.AgentType != "executor" {
		t.Fatalf("expected default agent type executor, got %s", child.AgentType)
	}
	if _, err := os.Stat(filepath.Join(child.WorkPath, "instructions.md")); err != nil {
		t.Fatalf("expected instructions.md written: %v", err)
	}
	if len(stub.started) != 1 || stub.started[0] != child.SessionID {
		t.Fatalf("expected protocol.Start called for child, got %+v", stub.started)
	}
}

func TestSpawnChildRejectsDuplicateName(t *testing.T) {
	mgr, _, store, sourcePath := newTestManager(t)
	root := newRootSession(sourcePath, store.registry)
	root.tree = &Tree{SourcePath: sourcePath, registry: store.registry}
	if err := mgr.Prepare(root, "", ""); err != nil {
		t.Fatalf("Prepare root: %v", err)
	}

	ctx := context.Background()
	if _, err := mgr.SpawnChild(ctx, root, "worker-1", "x", ""); err != nil {
		t.Fatalf("SpawnChild: %v", err)
	}
	if _, err := mgr.SpawnChild(ctx, root, "worker-1", "y", ""); err == nil {
		t.Fatalf("expected error spawning duplicate name")
	}
	if len(root.Children) != 1 {
		t.Fatalf("expected exactly one child after rejected duplicate, got %d", len(root.Children))
	}
}

func TestSendMessageToDesignerQueues(t *testing.T) {
	mgr, stub, store, sourcePath := newTestManager(t)
	root := newRootSession(sourcePath, store.registry)
	root.tree = &Tree{SourcePath: sourcePath, registry: store.registry}

	ctx := context.Background()
	result, err := mgr.SendMessage(ctx, root, "worker-1", "status update")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(stub.sent) != 0 {
		t.Fatalf("expected designer message to bypass protocol, got %+v", stub.sent)
	}
	pending, err := mgr.queue.Pending("designer")
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 || pending[0].Message != "status update" {
		t.Fatalf("expected message queued, got %+v", pending)
	}
	if result == "" {
		t.Fatalf("expected non-empty confirmation string")
	}
}

func TestSendMessageToExecutorUsesProtocol(t *testing.T) {
	mgr, stub, store, sourcePath := newTestManager(t)
	root := newRootSession(sourcePath, store.registry)
	root.tree = &Tree{SourcePath: sourcePath, registry: store.registry}
	if err := mgr.Prepare(root, "", ""); err != nil {
		t.Fatalf("Prepare root: %v", err)
	}

	ctx := context.Background()
	child, err := mgr.SpawnChild(ctx, root, "worker-1", "x", "")
	if err != nil {
		t.Fatalf("SpawnChild: %v", err)
	}

	if _, err := mgr.SendMessage(ctx, child, "designer", "keep going"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(stub.sent) != 1 || stub.sent[0] != "[From: designer] keep going" {
		t.Fatalf("expected prefixed message sent via protocol, got %+v", stub.sent)
	}
}

func TestDeleteRemovesWorktreeForNonRoot(t *testing.T) {
	mgr, stub, store, sourcePath := newTestManager(t)
	root := newRootSession(sourcePath, store.registry)
	root.tree = &Tree{SourcePath: sourcePath, registry: store.registry}
	if err := mgr.Prepare(root, "", ""); err != nil {
		t.Fatalf("Prepare root: %v", err)
	}

	ctx := context.Background()
	child, err := mgr.SpawnChild(ctx, root, "worker-1", "x", "")
	if err != nil {
		t.Fatalf("SpawnChild: %v", err)
	}
	workPath := child.WorkPath

	if err := mgr.Delete(ctx, child); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(stub.deleted) != 1 || stub.deleted[0] != child.SessionID {
		t.Fatalf("expected protocol.Delete called, got %+v", stub.deleted)
	}
	if _, err := os.Stat(workPath); !os.IsNotExist(err) {
		t.Fatalf("expected worktree removed, stat err = %v", err)
	}
	if child.State != StateRemoved {
		t.Fatalf("expected state removed, got %s", child.State)
	}
}
