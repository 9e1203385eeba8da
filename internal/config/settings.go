package config

import "fmt"

// ClaudeSettings is the normative shape of a session's .claude/settings.json:
// tool permissions, the MCP server pointing back at this process, and (for
// non-root agents) the hook commands that forward lifecycle events to the
// monitor.
type ClaudeSettings struct {
	Permissions Permissions                `json:"permissions"`
	MCPServers  map[string]MCPServerConfig `json:"mcpServers"`
	Hooks       *Hooks                     `json:"hooks,omitempty"`
}

// Permissions controls whether tool calls run unattended.
type Permissions struct {
	DefaultMode string   `json:"defaultMode"`
	Allow       []string `json:"allow"`
}

// MCPServerConfig describes one MCP server entry.
type MCPServerConfig struct {
	URL     string   `json:"url,omitempty"`
	Type    string   `json:"type"`
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// Hooks wires lifecycle events to the forwarder CLI.
type Hooks struct {
	PostToolUse      []HookMatcher `json:"PostToolUse,omitempty"`
	UserPromptSubmit []HookMatcher `json:"UserPromptSubmit,omitempty"`
	Stop             []HookMatcher `json:"Stop,omitempty"`
}

// HookMatcher binds an optional tool matcher to one or more hook commands.
type HookMatcher struct {
	Matcher string        `json:"matcher,omitempty"`
	Hooks   []HookCommand `json:"hooks"`
}

// HookCommand is a single hook invocation.
type HookCommand struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// defaultAllowedTools is used when an agent descriptor does not restrict
// tool access; it grants full bypass permissions for read/write/search
// tools and the orchestra MCP server, matching the designer/executor
// default posture.
var defaultAllowedTools = []string{
	"Edit", "Glob", "Grep", "LS", "MultiEdit", "Read", "Write",
	"Bash(cat:*)", "Bash(ls:*)", "Bash(grep:*)", "Bash(find:*)",
	"Bash(git status:*)", "Bash(git diff:*)", "Bash(git log:*)",
	"mcp__orchestra-mcp",
}

// BuildSettings constructs the .claude/settings.json content for a session.
// allowedTools, when non-empty, narrows permissions to requireApproval with
// exactly that allow list (used by custom agent descriptors); an empty list
// grants the default bypass posture. isMonitored controls whether hook
// commands are wired to the forwarder CLI.
func BuildSettings(sessionID, sourcePath string, mcpPort int, allowedTools []string, isMonitored bool) *ClaudeSettings {
	mode := "bypassPermissions"
	allow := defaultAllowedTools
	if len(allowedTools) > 0 {
		mode = "requireApproval"
		allow = allowedTools
	}

	settings := &ClaudeSettings{
		Permissions: Permissions{DefaultMode: mode, Allow: allow},
		MCPServers: map[string]MCPServerConfig{
			"orchestra-mcp": {
				URL:  fmt.Sprintf("http://localhost:%d/mcp", mcpPort),
				Type: "http",
			},
		},
	}

	if isMonitored {
		hookCmd := fmt.Sprintf("orchestra-hook %s %s", sessionID, sourcePath)
		matcher := []HookMatcher{{Hooks: []HookCommand{{Type: "command", Command: hookCmd}}}}
		postToolUse := []HookMatcher{{Matcher: "*", Hooks: []HookCommand{{Type: "command", Command: hookCmd}}}}
		settings.Hooks = &Hooks{
			PostToolUse:      postToolUse,
			UserPromptSubmit: matcher,
			Stop:             matcher,
		}
	}

	return settings
}
