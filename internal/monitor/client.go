package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HyphaGroup/orchestra/internal/agent"
)

// TargetLookup resolves a live agent.Target for a session_id, used by
// SessionClient to find where to deliver a batch. It mirrors the contract
// of session.Store.FindByID + Session state without this package importing
// session directly, avoiding a cycle (session's operations already import
// agent, which monitor also imports).
type TargetLookup func(sessionID string) (agent.Target, bool)

// SessionClient delivers a batch by injecting it straight into the
// session's own running terminal — there is no separate monitor-agent
// conversation to maintain (no Go Claude Agent SDK client exists in this
// stack), so the digest simply becomes the agent's next turn.
type SessionClient struct {
	Protocol agent.Protocol
	Lookup   TargetLookup
}

// Deliver sends prompt into sessionID's terminal via the control plane.
func (c *SessionClient) Deliver(ctx context.Context, sessionID, sourcePath, prompt string) error {
	target, ok := c.Lookup(sessionID)
	if !ok {
		return fmt.Errorf("session %q not found in %s", sessionID, sourcePath)
	}
	ok, err := c.Protocol.SendMessage(ctx, target, prompt)
	if err != nil {
		return fmt.Errorf("delivering monitor batch to %s: %w", sessionID, err)
	}
	if !ok {
		return fmt.Errorf("failed to deliver monitor batch to %s", sessionID)
	}
	return nil
}

// FileClient implements the independent mode: no session or MCP
// integration, batches are appended to {sourcePath}/.orchestra-monitor.txt
// for a human (or a separate process) to read later.
type FileClient struct{}

// Deliver appends a timestamped batch to sourcePath's feedback file.
func (FileClient) Deliver(ctx context.Context, sessionID, sourcePath, prompt string) error {
	path := filepath.Join(sourcePath, ".orchestra-monitor.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] session=%s\n%s\n\n---\n\n", time.Now().UTC().Format(time.RFC3339), sessionID, prompt)
	_, err = f.WriteString(entry)
	return err
}
