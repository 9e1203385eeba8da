package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"

	"github.com/HyphaGroup/orchestra/internal/audit"
	"github.com/HyphaGroup/orchestra/internal/container"
)

// ContainerImages names the single image Orchestra's containerized agents
// run, wrapping the teacher's multi-type container.ImageManager with the
// one type Orchestra needs.
type ContainerImages struct {
	manager *container.ImageManager
}

// NewContainerImages builds a ContainerImages backed by imageName (default
// "orchestra-image") for runtime.
func NewContainerImages(imageName string, runtime container.Runtime) *ContainerImages {
	return &ContainerImages{
		manager: container.NewImageManager(map[string]string{"executor": imageName}, runtime),
	}
}

// Ensure pulls (or, in dev mode, verifies) the executor image exists.
func (c *ContainerImages) Ensure(ctx context.Context) error {
	if c == nil || c.manager == nil {
		return fmt.Errorf("no container image configured")
	}
	return c.manager.EnsureImageExists(ctx, "executor")
}

func (c *ContainerImages) imageName() string {
	if c == nil || c.manager == nil {
		return "orchestra-image"
	}
	name, _ := c.manager.GetImageName("executor")
	return name
}

// ensureContainer implements the idempotent inspect-then-recreate startup
// spec.md §4.3 requires: if a container named exactly t.ContainerName()
// is already running, reuse it; if it exists but stopped, remove and
// recreate; otherwise create fresh. The command is a no-op keepalive —
// the agent CLI itself is started afterward via the terminal backend.
func (r *Runtime) ensureContainer(ctx context.Context, t Target) error {
	name := t.ContainerName()

	status, err := r.Container.Status(ctx, name)
	if err == nil {
		if status == container.StatusRunning {
			return nil
		}
		_ = r.Container.Remove(ctx, name, true)
	}

	if err := r.Images.Ensure(ctx); err != nil {
		return err
	}

	uid, gid := currentUIDGID()

	mounts := []container.Mount{
		{Type: container.MountTypeBind, Source: t.WorkPath, Target: "/workspace"},
		{Type: container.MountTypeBind, Source: r.SharedClaudeDir, Target: "/home/executor/.claude"},
		{Type: container.MountTypeBind, Source: r.SharedClaudeJSON, Target: "/home/executor/.claude.json"},
		{Type: container.MountTypeBind, Source: r.TmuxConfPath, Target: "/home/executor/.tmux.conf", ReadOnly: true},
	}

	if err := r.ensureSharedClaudeConfig(t.MCPPort); err != nil {
		return fmt.Errorf("preparing shared claude config: %w", err)
	}

	var env []string
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		env = append(env, "ANTHROPIC_API_KEY="+apiKey)
	}
	env = append(env, fmt.Sprintf("CLAUDE_MONITOR_BASE=http://localhost:%d", t.MonitorPort))

	id, err := r.Container.Create(ctx, container.CreateConfig{
		Name:       name,
		Image:      r.Images.imageName(),
		Cmd:        []string{"tail", "-f", "/dev/null"},
		Env:        env,
		WorkingDir: "/workspace",
		Mounts:     mounts,
		Labels:     map[string]string{"orchestra.session_id": t.SessionID},
		User:       fmt.Sprintf("%s:%s", uid, gid),
		Ports: []container.PortBinding{
			{HostPort: t.MCPPort, ContainerPort: t.MCPPort},
			{HostPort: t.MonitorPort, ContainerPort: t.MonitorPort},
		},
	})
	if err != nil {
		audit.LogFailure(audit.OpContainerCreate, t.WorkPath, t.SessionID, "", err)
		return fmt.Errorf("creating container %s: %w", name, err)
	}
	audit.LogSuccess(audit.OpContainerCreate, t.WorkPath, t.SessionID, "")
	return r.Container.Start(ctx, id)
}

func currentUIDGID() (string, string) {
	u, err := user.Current()
	if err != nil {
		return "", ""
	}
	return u.Uid, u.Gid
}

// ensureSharedClaudeConfig writes the shared .claude.json every
// containerized agent mounts, injecting the orchestra-mcp HTTP server
// entry so newly built images don't need their own MCP wiring.
func (r *Runtime) ensureSharedClaudeConfig(mcpPort int) error {
	if err := os.MkdirAll(r.SharedClaudeDir, 0o755); err != nil {
		return err
	}

	cfg := map[string]interface{}{}
	if data, err := os.ReadFile(r.SharedClaudeJSON); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	servers, _ := cfg["mcpServers"].(map[string]interface{})
	if servers == nil {
		servers = map[string]interface{}{}
	}
	servers["orchestra-mcp"] = map[string]string{
		"url":  fmt.Sprintf("http://localhost:%d/mcp", mcpPort),
		"type": "http",
	}
	cfg["mcpServers"] = servers

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.SharedClaudeJSON, data, 0o644)
}
