package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/audit"
	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/messagequeue"
	"github.com/HyphaGroup/orchestra/internal/validation"
	"github.com/HyphaGroup/orchestra/internal/workspace"
)

// agentCommand is the CLI invoked inside every session's tmux pane.
const agentCommand = "claude"

// Manager drives a Session through its lifecycle: prepare, start,
// spawn_child, toggle_pairing, delete, send_message. It holds the shared
// collaborators (store, protocol, queue) session data itself never
// references, resolving the cyclic Session/AgentProtocol dependency spec.md
// flags by injection rather than a mutual import.
type Manager struct {
	home     *config.Home
	store    *Store
	protocol agent.Protocol
	queue    *messagequeue.Queue

	mcpPort     int
	monitorPort int
}

// NewManager builds a Manager bound to the given collaborators.
func NewManager(home *config.Home, store *Store, protocol agent.Protocol, queue *messagequeue.Queue, mcpPort, monitorPort int) *Manager {
	return &Manager{home: home, store: store, protocol: protocol, queue: queue, mcpPort: mcpPort, monitorPort: monitorPort}
}

// Prepare sets s.WorkPath by running its descriptor's setup (worktree
// creation or identity for the designer), then writes the per-workspace
// files. Safe to re-run: CreateWorktree no-ops on an existing non-empty
// worktree, and the file writers overwrite their files with freshly
// generated content.
func (m *Manager) Prepare(s *Session, parentWorkPath, instructions string) error {
	d := s.Descriptor()
	workPath, err := d.Setup(m.home, s.SessionID, s.SourcePath, parentWorkPath)
	if err != nil {
		return fmt.Errorf("setting up session %s: %w", s.SessionName, err)
	}
	s.WorkPath = workPath
	s.UseDocker = d.UseDocker

	if err := writeWorkspaceFiles(m.home, s, instructions, m.mcpPort); err != nil {
		return fmt.Errorf("writing workspace files for %s: %w", s.SessionName, err)
	}

	s.State = StatePrepared
	return nil
}

// Start ensures s is prepared, then delegates to the control plane to bring
// its terminal session up. Idempotent: Protocol.Start no-ops if the
// terminal session already exists.
func (m *Manager) Start(ctx context.Context, s *Session) (bool, error) {
	if s.WorkPath == "" {
		if err := m.Prepare(s, "", ""); err != nil {
			return false, err
		}
	}

	target := m.target(s)
	ok, err := m.protocol.Start(ctx, target)
	if err != nil {
		return false, fmt.Errorf("starting session %s: %w", s.SessionName, err)
	}
	if ok {
		s.State = StateRunning
	}
	return ok, nil
}

// Target builds the control-plane address for s, exported so callers
// outside the lifecycle operations (the monitor's delivery client, the
// supervisor's stale-session sweep) can drive the same Protocol without
// duplicating the mcp/monitor port and command wiring.
func (m *Manager) Target(s *Session) agent.Target {
	return m.target(s)
}

func (m *Manager) target(s *Session) agent.Target {
	return agent.Target{
		SessionID:   s.SessionID,
		WorkPath:    s.WorkPath,
		UseDocker:   s.UseDocker,
		MCPPort:     m.mcpPort,
		MonitorPort: m.monitorPort,
		Paired:      s.Paired,
		Command:     agentCommand,
	}
}

// SpawnChild constructs a new child session under parent, named name,
// running agentType (default "executor" when empty), with instructions
// written to the child's instructions.md. Per spec.md's atomic contract,
// any failure in setup/start leaves parent.Children untouched — the child
// is only appended once every step below has succeeded.
func (m *Manager) SpawnChild(ctx context.Context, parent *Session, name, instructions, agentType string) (*Session, error) {
	if err := validation.ValidateSessionName(name); err != nil {
		return nil, err
	}
	if parent.findByName(name) != nil {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if agentType == "" {
		agentType = "executor"
	}

	child := &Session{
		SessionName:       name,
		SessionID:         fmt.Sprintf("%s-%s", filepath.Base(parent.SourcePath), name),
		AgentType:         agentType,
		SourcePath:        parent.SourcePath,
		ParentSessionName: parent.SessionName,
		State:             StateNascent,
	}
	child.tree = parent.tree

	if err := m.Prepare(child, parent.WorkPath, instructions); err != nil {
		audit.LogFailure(audit.OpSessionSpawn, parent.SourcePath, child.SessionID, name, err)
		return nil, err
	}
	if _, err := m.Start(ctx, child); err != nil {
		audit.LogFailure(audit.OpSessionSpawn, parent.SourcePath, child.SessionID, name, err)
		return nil, err
	}

	parent.Children = append(parent.Children, child)
	audit.LogSuccess(audit.OpSessionSpawn, parent.SourcePath, child.SessionID, name)
	return child, nil
}

// CreateRoot builds and starts the designer session for a project that has
// none yet, appending it to t.Roots once prepare and start both succeed —
// the same atomic-append contract SpawnChild uses for children. name
// defaults to "designer" when empty.
func (m *Manager) CreateRoot(ctx context.Context, t *Tree, sourcePath, name string) (*Session, error) {
	if err := validation.ValidateSourcePath(sourcePath); err != nil {
		return nil, err
	}
	if name == "" {
		name = "designer"
	}
	if err := validation.ValidateSessionName(name); err != nil {
		return nil, err
	}
	if t.Find(name) != nil {
		return nil, fmt.Errorf("session %q already exists", name)
	}

	root := &Session{
		SessionName: name,
		SessionID:   fmt.Sprintf("%s-%s", filepath.Base(sourcePath), name),
		AgentType:   "designer",
		SourcePath:  sourcePath,
		State:       StateNascent,
	}
	root.tree = t

	if err := m.Prepare(root, "", ""); err != nil {
		return nil, err
	}
	if _, err := m.Start(ctx, root); err != nil {
		return nil, err
	}

	t.Roots = append(t.Roots, root)
	return root, nil
}

// TogglePairing flips s between unpaired and paired, enforcing spec.md's
// preconditions: s must not be the root, its work path must differ from
// its source path, and at most one session per project may be paired at
// once.
func (m *Manager) TogglePairing(t *Tree, s *Session) error {
	if s.IsRoot() {
		return fmt.Errorf("session %q is the root session and cannot be paired", s.SessionName)
	}
	if s.WorkPath == s.SourcePath {
		return fmt.Errorf("session %q has no distinct work path to pair", s.SessionName)
	}

	basename := filepath.Base(s.SourcePath)
	gitDir := m.home.RepoGitDir(basename)

	if s.Paired {
		if err := workspace.DisablePairing(s.SourcePath, s.WorkPath, gitDir, s.SessionID); err != nil {
			audit.LogFailure(audit.OpPairingDisable, s.SourcePath, s.SessionID, s.SessionName, err)
			return fmt.Errorf("disabling pairing for %s: %w", s.SessionName, err)
		}
		s.Paired = false
		audit.LogSuccess(audit.OpPairingDisable, s.SourcePath, s.SessionID, s.SessionName)
		return nil
	}

	if t.AnyPaired() {
		return fmt.Errorf("another session in this project is already paired")
	}
	if err := workspace.RelocateGit(s.SourcePath, gitDir); err != nil {
		audit.LogFailure(audit.OpPairingEnable, s.SourcePath, s.SessionID, s.SessionName, err)
		return fmt.Errorf("relocating .git for %s: %w", s.SessionName, err)
	}
	if err := workspace.EnablePairing(s.SourcePath, s.WorkPath, gitDir, s.SessionID); err != nil {
		audit.LogFailure(audit.OpPairingEnable, s.SourcePath, s.SessionID, s.SessionName, err)
		return fmt.Errorf("enabling pairing for %s: %w", s.SessionName, err)
	}
	s.Paired = true
	audit.LogSuccess(audit.OpPairingEnable, s.SourcePath, s.SessionID, s.SessionName)
	return nil
}

// Delete tears down s's control-plane session, then (for non-root sessions)
// removes its worktree and branch. Both steps are best-effort: a failure in
// either does not prevent the other or abort the caller's own bookkeeping.
func (m *Manager) Delete(ctx context.Context, s *Session) error {
	target := m.target(s)
	deleteErr := m.protocol.Delete(ctx, target)
	if deleteErr != nil {
		audit.LogFailure(audit.OpSessionDelete, s.SourcePath, s.SessionID, s.SessionName, deleteErr)
	}

	if !s.IsRoot() {
		_ = workspace.RemoveWorktree(s.SourcePath, s.WorkPath, s.SessionID)
	}

	s.State = StateRemoved
	if deleteErr == nil {
		audit.LogSuccess(audit.OpSessionDelete, s.SourcePath, s.SessionID, s.SessionName)
	}
	return nil
}

// SendMessage delivers text to s, prefixed with the sender's name. Designer
// sessions receive it via the message queue (read at the designer's own
// pace); every other session gets it injected directly into its terminal.
func (m *Manager) SendMessage(ctx context.Context, s *Session, senderName, text string) (string, error) {
	prefixed := fmt.Sprintf("[From: %s] %s", senderName, text)

	if s.AgentType == "designer" {
		id, err := m.queue.Append(s.SessionName, senderName, text, s.SourcePath)
		if err != nil {
			audit.LogFailure(audit.OpMessageQueue, s.SourcePath, s.SessionID, s.SessionName, err)
			return "", fmt.Errorf("queuing message for %s: %w", s.SessionName, err)
		}
		audit.LogSuccess(audit.OpMessageQueue, s.SourcePath, s.SessionID, s.SessionName)
		return fmt.Sprintf("Message queued for designer session '%s' (ID: %s)", s.SessionName, id), nil
	}

	ok, err := m.protocol.SendMessage(ctx, m.target(s), prefixed)
	if err != nil {
		audit.LogFailure(audit.OpMessageSend, s.SourcePath, s.SessionID, s.SessionName, err)
		return "", fmt.Errorf("sending message to %s: %w", s.SessionName, err)
	}
	if !ok {
		err := fmt.Errorf("failed to send message to session %q", s.SessionName)
		audit.LogFailure(audit.OpMessageSend, s.SourcePath, s.SessionID, s.SessionName, err)
		return "", err
	}
	audit.LogSuccess(audit.OpMessageSend, s.SourcePath, s.SessionID, s.SessionName)
	return fmt.Sprintf("Successfully sent message to session '%s'", s.SessionName), nil
}

// RecoverStale walks every project's tree looking for sessions recorded as
// running whose control-plane terminal no longer exists — an agent process
// that died or was killed outside of Manager.Delete, leaving the tree out
// of sync with reality. Each one found is marked removed; the owning tree
// is persisted once all of its sessions have been checked. Returns the
// count recovered.
func (m *Manager) RecoverStale(ctx context.Context) (int, error) {
	trees, err := m.store.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("loading session trees: %w", err)
	}

	recovered := 0
	for _, t := range trees {
		dirty := false
		for _, root := range t.Roots {
			root.walk(func(s *Session) bool {
				if s.State != StateRunning {
					return true
				}
				status, err := m.protocol.Status(ctx, m.target(s))
				if err == nil && status.Exists {
					return true
				}
				s.State = StateRemoved
				recovered++
				dirty = true
				return true
			})
		}
		if dirty {
			if err := m.store.Save(t); err != nil {
				return recovered, fmt.Errorf("persisting recovered tree for %s: %w", t.SourcePath, err)
			}
		}
	}
	return recovered, nil
}

// RemoveChild detaches child from parent.Children by name, used after
// Manager.Delete to keep the persisted tree in sync.
func RemoveChild(parent *Session, childName string) {
	kept := parent.Children[:0]
	for _, c := range parent.Children {
		if c.SessionName != childName {
			kept = append(kept, c)
		}
	}
	parent.Children = kept
}
