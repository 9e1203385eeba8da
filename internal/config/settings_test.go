package config

import "testing"

func TestBuildSettings_DefaultPosture(t *testing.T) {
	s := BuildSettings("sess-1", "/src/project", 8765, nil, false)

	if s.Permissions.DefaultMode != "bypassPermissions" {
		t.Errorf("DefaultMode = %q, want %q", s.Permissions.DefaultMode, "bypassPermissions")
	}
	if len(s.Permissions.Allow) != len(defaultAllowedTools) {
		t.Errorf("len(Allow) = %d, want %d", len(s.Permissions.Allow), len(defaultAllowedTools))
	}
	mcp, ok := s.MCPServers["orchestra-mcp"]
	if !ok {
		t.Fatal("MCPServers missing \"orchestra-mcp\" entry")
	}
	if mcp.URL != "http://localhost:8765/mcp" {
		t.Errorf("MCPServers[orchestra-mcp].URL = %q, want %q", mcp.URL, "http://localhost:8765/mcp")
	}
	if s.Hooks != nil {
		t.Errorf("Hooks = %+v, want nil for isMonitored=false", s.Hooks)
	}
}

func TestBuildSettings_RestrictedTools(t *testing.T) {
	allowed := []string{"Read", "Grep"}
	s := BuildSettings("sess-1", "/src/project", 8765, allowed, false)

	if s.Permissions.DefaultMode != "requireApproval" {
		t.Errorf("DefaultMode = %q, want %q", s.Permissions.DefaultMode, "requireApproval")
	}
	if len(s.Permissions.Allow) != 2 {
		t.Errorf("len(Allow) = %d, want 2", len(s.Permissions.Allow))
	}
}

func TestBuildSettings_Monitored(t *testing.T) {
	s := BuildSettings("sess-1", "/src/project", 8765, nil, true)

	if s.Hooks == nil {
		t.Fatal("Hooks = nil, want hooks wired for isMonitored=true")
	}
	wantCmd := "orchestra-hook sess-1 /src/project"
	if len(s.Hooks.Stop) != 1 || s.Hooks.Stop[0].Hooks[0].Command != wantCmd {
		t.Errorf("Hooks.Stop command = %+v, want command %q", s.Hooks.Stop, wantCmd)
	}
	if len(s.Hooks.PostToolUse) != 1 || s.Hooks.PostToolUse[0].Matcher != "*" {
		t.Errorf("Hooks.PostToolUse = %+v, want matcher \"*\"", s.Hooks.PostToolUse)
	}
	if len(s.Hooks.UserPromptSubmit) != 1 {
		t.Errorf("Hooks.UserPromptSubmit = %+v, want one matcher", s.Hooks.UserPromptSubmit)
	}
}
