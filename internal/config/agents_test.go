package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAgentsYAML(t *testing.T) {
	t.Run("missing file returns nil, no error", func(t *testing.T) {
		defs, err := LoadAgentsYAML(filepath.Join(t.TempDir(), "agents.yaml"))
		if err != nil {
			t.Fatalf("LoadAgentsYAML() error = %v", err)
		}
		if defs != nil {
			t.Errorf("LoadAgentsYAML() = %v, want nil", defs)
		}
	})

	t.Run("parses custom agent definitions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agents.yaml")
		content := `
agents:
  - name: researcher
    prompt: "You investigate and summarize findings."
    use_docker: true
    work_path_kind: worktree
    allowed_tools: ["Read", "Grep", "WebFetch"]
    mcp_servers:
      search:
        type: http
        url: http://localhost:9000/mcp
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		defs, err := LoadAgentsYAML(path)
		if err != nil {
			t.Fatalf("LoadAgentsYAML() error = %v", err)
		}
		if len(defs) != 1 {
			t.Fatalf("len(defs) = %d, want 1", len(defs))
		}
		d := defs[0]
		if d.Name != "researcher" {
			t.Errorf("Name = %q, want %q", d.Name, "researcher")
		}
		if !d.UseDocker {
			t.Errorf("UseDocker = false, want true")
		}
		if d.WorkPathKind != "worktree" {
			t.Errorf("WorkPathKind = %q, want %q", d.WorkPathKind, "worktree")
		}
		if len(d.AllowedTools) != 3 {
			t.Errorf("len(AllowedTools) = %d, want 3", len(d.AllowedTools))
		}
		if d.MCPServers["search"].URL != "http://localhost:9000/mcp" {
			t.Errorf("MCPServers[search].URL = %q, want %q", d.MCPServers["search"].URL, "http://localhost:9000/mcp")
		}
	})

	t.Run("malformed YAML is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "agents.yaml")
		if err := os.WriteFile(path, []byte("agents: [this is not valid"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadAgentsYAML(path); err == nil {
			t.Fatal("LoadAgentsYAML() error = nil, want error for malformed YAML")
		}
	})
}
