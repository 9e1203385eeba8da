package config

import (
	"os"
	"path/filepath"
)

// Home resolves the orchestra_home directory layout described in the
// filesystem-layout section of the external interfaces: a single per-user
// directory hosting the session store, message queue, shared agent config,
// logs, and per-project worktrees.
type Home struct {
	Root string
}

// LoadHome resolves orchestra_home using ORCHESTRA_HOME_DIR if set, falling
// back to ~/.orchestra. The directory tree (including config/) is created
// if missing.
func LoadHome() (*Home, error) {
	root := os.Getenv("ORCHESTRA_HOME_DIR")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		root = filepath.Join(home, ".orchestra")
	}

	h := &Home{Root: root}
	for _, dir := range []string{
		h.Root,
		h.ConfigDir(),
		h.SharedClaudeDir(),
		h.SubagentsDir(),
		h.WorktreesDir(),
		h.ReposDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Home) SessionsJSON() string { return filepath.Join(h.Root, "sessions.json") }
func (h *Home) MessagesJSONL() string {
	return filepath.Join(h.Root, "messages.jsonl")
}
func (h *Home) ConfigDir() string       { return filepath.Join(h.Root, "config") }
func (h *Home) TmuxConfPath() string    { return filepath.Join(h.ConfigDir(), "tmux.conf") }
func (h *Home) AgentsYAMLPath() string  { return filepath.Join(h.ConfigDir(), "agents.yaml") }
func (h *Home) SharedClaudeDir() string { return filepath.Join(h.Root, "shared-claude") }
func (h *Home) SharedClaudeJSON() string {
	return filepath.Join(h.Root, "shared-claude.json")
}
func (h *Home) SubagentsDir() string { return filepath.Join(h.Root, "subagents") }
func (h *Home) WorktreesDir() string { return filepath.Join(h.Root, "worktrees") }
func (h *Home) ReposDir() string     { return filepath.Join(h.Root, "repos") }
func (h *Home) IndexDB() string      { return filepath.Join(h.Root, "index.db") }

func (h *Home) MonitorLog() string { return filepath.Join(h.Root, "monitor-server.log") }
func (h *Home) MCPLog() string     { return filepath.Join(h.Root, "mcp-server.log") }
func (h *Home) RunnerLog() string  { return filepath.Join(h.Root, "orchestra.log") }

// RepoGitDir returns the stable relocation target for a project's .git
// directory: {orchestra_home}/repos/{basename}/.git.
func (h *Home) RepoGitDir(projectBasename string) string {
	return filepath.Join(h.ReposDir(), projectBasename, ".git")
}

// WorktreeDir returns the worktree path for an executor session.
func (h *Home) WorktreeDir(projectBasename, sessionID string) string {
	return filepath.Join(h.WorktreesDir(), projectBasename, sessionID)
}

// SubagentDir returns the workspace path for a custom-agent session.
func (h *Home) SubagentDir(projectBasename, sessionID string) string {
	return filepath.Join(h.SubagentsDir(), projectBasename, sessionID)
}

// EnsureTmuxConf writes the default tmux.conf if one is not already present.
func (h *Home) EnsureTmuxConf() error {
	path := h.TmuxConfPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(DefaultTmuxConf), 0o644)
}
