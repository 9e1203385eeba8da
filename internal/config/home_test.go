package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHome(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("ORCHESTRA_HOME_DIR", tmpDir)

	h, err := LoadHome()
	if err != nil {
		t.Fatalf("LoadHome() error = %v", err)
	}
	if h.Root != tmpDir {
		t.Errorf("Root = %q, want %q", h.Root, tmpDir)
	}

	for _, dir := range []string{
		h.Root, h.ConfigDir(), h.SharedClaudeDir(), h.SubagentsDir(), h.WorktreesDir(), h.ReposDir(),
	} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
}

func TestHome_PathHelpers(t *testing.T) {
	h := &Home{Root: "/home/.orchestra"}

	cases := map[string]string{
		h.SessionsJSON():    "/home/.orchestra/sessions.json",
		h.MessagesJSONL():   "/home/.orchestra/messages.jsonl",
		h.ConfigDir():       "/home/.orchestra/config",
		h.TmuxConfPath():    "/home/.orchestra/config/tmux.conf",
		h.AgentsYAMLPath():  "/home/.orchestra/config/agents.yaml",
		h.SharedClaudeDir(): "/home/.orchestra/shared-claude",
		h.IndexDB():         "/home/.orchestra/index.db",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}

	if got, want := h.RepoGitDir("myproject"), "/home/.orchestra/repos/myproject/.git"; got != want {
		t.Errorf("RepoGitDir() = %q, want %q", got, want)
	}
	if got, want := h.WorktreeDir("myproject", "sess-1"), "/home/.orchestra/worktrees/myproject/sess-1"; got != want {
		t.Errorf("WorktreeDir() = %q, want %q", got, want)
	}
	if got, want := h.SubagentDir("myproject", "sess-1"), "/home/.orchestra/subagents/myproject/sess-1"; got != want {
		t.Errorf("SubagentDir() = %q, want %q", got, want)
	}
}

func TestHome_EnsureTmuxConf(t *testing.T) {
	h := &Home{Root: t.TempDir()}
	if err := os.MkdirAll(h.ConfigDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := h.EnsureTmuxConf(); err != nil {
		t.Fatalf("EnsureTmuxConf() error = %v", err)
	}
	data, err := os.ReadFile(h.TmuxConfPath())
	if err != nil {
		t.Fatalf("reading tmux.conf: %v", err)
	}
	if string(data) != DefaultTmuxConf {
		t.Errorf("tmux.conf content does not match DefaultTmuxConf")
	}

	if err := os.WriteFile(h.TmuxConfPath(), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.EnsureTmuxConf(); err != nil {
		t.Fatalf("EnsureTmuxConf() second call error = %v", err)
	}
	data, _ = os.ReadFile(h.TmuxConfPath())
	if string(data) != "custom" {
		t.Errorf("EnsureTmuxConf overwrote existing file, got %q", data)
	}
}

func TestLoadHome_DefaultLocation(t *testing.T) {
	t.Setenv("ORCHESTRA_HOME_DIR", "")
	fakeHome := t.TempDir()
	t.Setenv("HOME", fakeHome)

	h, err := LoadHome()
	if err != nil {
		t.Fatalf("LoadHome() error = %v", err)
	}
	want := filepath.Join(fakeHome, ".orchestra")
	if h.Root != want {
		t.Errorf("Root = %q, want %q", h.Root, want)
	}
}
