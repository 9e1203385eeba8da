// Package agent defines the agent descriptor model (what an agent type is:
// its prompt, tool allowlist, Docker preference, and workspace setup) and
// the AgentProtocol abstraction that drives a terminal-backed agent process
// through start/status/send-message/attach/delete, uniformly across a local
// tmux session or a containerized one.
package agent

import (
	"fmt"
	"path/filepath"

	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/workspace"
)

// WorkPathKind identifies how a descriptor's Setup resolves a session's
// work_path relative to its source_path.
type WorkPathKind string

const (
	WorkPathSource   WorkPathKind = "source"   // designer: operates directly on source_path
	WorkPathWorktree WorkPathKind = "worktree" // executor: isolated git worktree per session
	WorkPathSubagent WorkPathKind = "subagent" // worktree under the subagents dir, branched from a parent's work_path
)

// Descriptor is an agent type: its system prompt, default container
// preference, tool allowlist, MCP servers it needs wired into
// .claude/settings.json, and how to prepare its workspace.
type Descriptor struct {
	Name         string
	Prompt       string
	UseDocker    bool
	WorkPathKind WorkPathKind
	AllowedTools []string
	MCPServers   map[string]config.MCPServerConfig

	// Setup resolves and creates work_path for a session of this agent
	// type. home is the Orchestra home directory layout; sourcePath and
	// parentWorkPath are the project root and (for subagents) the
	// parent's resolved work_path.
	Setup func(home *config.Home, sessionID, sourcePath, parentWorkPath string) (workPath string, err error)
}

// staleErr marks a descriptor that failed to resolve from config: every
// operation returns it rather than silently falling back to a built-in.
type staleErr struct{ name, reason string }

func (e *staleErr) Error() string {
	return fmt.Sprintf("agent descriptor %q is stale: %s", e.name, e.reason)
}

// Stale returns a Descriptor whose Setup always fails, used for custom
// agent entries in agents.yaml that did not parse cleanly enough to run
// (e.g. an unknown work_path_kind). Sessions referencing it fail at
// prepare() with a clear error instead of being silently substituted.
func Stale(name, reason string) Descriptor {
	return Descriptor{
		Name: name,
		Setup: func(_ *config.Home, _, _, _ string) (string, error) {
			return "", &staleErr{name: name, reason: reason}
		},
	}
}

// Designer is Orchestra's built-in root agent: it works directly in the
// project's source directory and is never containerized.
func Designer() Descriptor {
	return Descriptor{
		Name:         "designer",
		Prompt:       designerPrompt,
		UseDocker:    false,
		WorkPathKind: WorkPathSource,
		MCPServers: map[string]config.MCPServerConfig{
			"orchestra-mcp": {Type: "http"},
		},
		Setup: setupDesigner,
	}
}

// Executor is Orchestra's built-in worker agent: it runs in an isolated
// git worktree, Docker by default.
func Executor() Descriptor {
	return Descriptor{
		Name:         "executor",
		Prompt:       executorPrompt,
		UseDocker:    true,
		WorkPathKind: WorkPathWorktree,
		MCPServers: map[string]config.MCPServerConfig{
			"orchestra-mcp": {Type: "http"},
		},
		Setup: setupExecutor,
	}
}

func setupDesigner(_ *config.Home, _, sourcePath, _ string) (string, error) {
	if sourcePath == "" {
		return "", fmt.Errorf("designer setup: source path is not set")
	}
	return sourcePath, nil
}

func setupExecutor(home *config.Home, sessionID, sourcePath, _ string) (string, error) {
	if sourcePath == "" {
		return "", fmt.Errorf("executor setup: source path is not set")
	}
	basename := filepath.Base(sourcePath)
	workPath := home.WorktreeDir(basename, sessionID)
	if err := workspace.CreateWorktree(workPath, sessionID, sourcePath); err != nil {
		return "", fmt.Errorf("executor setup: %w", err)
	}
	return workPath, nil
}

// subagentSetup builds a Setup func for descriptors whose work_path_kind
// is "subagent": a nested worktree branching from the parent's current
// work_path rather than the project's source_path.
func subagentSetup(home *config.Home, sessionID, sourcePath, parentWorkPath string) (string, error) {
	if parentWorkPath == "" {
		return "", fmt.Errorf("subagent setup: parent work path is not set")
	}
	basename := filepath.Base(sourcePath)
	workPath := home.SubagentDir(basename, sessionID)
	if err := workspace.CreateWorktree(workPath, sessionID, parentWorkPath); err != nil {
		return "", fmt.Errorf("subagent setup: %w", err)
	}
	return workPath, nil
}
