package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/HyphaGroup/orchestra/internal/audit"
	"github.com/HyphaGroup/orchestra/internal/container"
	"github.com/HyphaGroup/orchestra/internal/terminal"
)

// Target is everything the control plane needs to drive one agent
// process: which terminal session to address, where it runs, and (when
// containerized) the ports it needs wired into its container.
type Target struct {
	SessionID   string
	WorkPath    string
	UseDocker   bool
	MCPPort     int
	MonitorPort int
	Paired      bool
	Command     string // agent CLI invocation, e.g. "claude"
}

// ContainerName is the container a containerized Target runs in.
func (t Target) ContainerName() string {
	return "orchestra-" + t.SessionID
}

// tmuxTarget is the pane address tmux itself uses, on the host or inside
// the container: window 0, pane 0 of the session named after the session
// ID ("{session_id}:0.0"), regardless of backend.
func (t Target) tmuxTarget() string {
	return t.SessionID + ":0.0"
}

// Status mirrors the three fields spec.md's status() returns: whether the
// terminal session exists at all, how many windows it has, and whether a
// client currently has it attached.
type Status struct {
	Exists   bool
	Windows  int
	Attached bool
	Err      string
}

// Protocol is the uniform interface over local-tmux and
// containerized-tmux agent backends: start, inspect, message, attach,
// and tear down a session's terminal without the caller caring which
// backend it runs on.
type Protocol interface {
	Start(ctx context.Context, t Target) (bool, error)
	Status(ctx context.Context, t Target) (Status, error)
	SendMessage(ctx context.Context, t Target, text string) (bool, error)
	Attach(ctx context.Context, t Target, targetPane string) (bool, error)
	Delete(ctx context.Context, t Target) error
}

// Runtime implements Protocol. Container is nil for local-only
// deployments; when non-nil it's used for any Target with UseDocker set.
type Runtime struct {
	Container container.Runtime
	Images    *ContainerImages

	// Shared paths every containerized agent mounts, per spec.md §4.3.
	SharedClaudeDir  string
	SharedClaudeJSON string
	TmuxConfPath     string
}

// NewRuntime builds a Protocol that drives local sessions directly and
// containerized ones through containerRuntime (nil disables Docker
// entirely; Start on a UseDocker target then fails).
func NewRuntime(containerRuntime container.Runtime, images *ContainerImages, sharedClaudeDir, sharedClaudeJSON, tmuxConfPath string) *Runtime {
	return &Runtime{
		Container:        containerRuntime,
		Images:           images,
		SharedClaudeDir:  sharedClaudeDir,
		SharedClaudeJSON: sharedClaudeJSON,
		TmuxConfPath:     tmuxConfPath,
	}
}

// exec runs a tmux-building cmd either on the host or, for containerized
// targets, inside the target's container via container.Runtime.Exec —
// mirroring the teacher's single _exec dispatch used by every operation
// below.
func (r *Runtime) exec(ctx context.Context, t Target, cmd []string) (string, error) {
	if !t.UseDocker {
		out, err := terminal.Exec(cmd)
		return out, err
	}
	if r.Container == nil {
		return "", fmt.Errorf("session %s requires docker but no container runtime is configured", t.SessionID)
	}
	res, err := r.Container.Exec(ctx, t.ContainerName(), container.ExecConfig{
		Cmd:          cmd,
		Env:          []string{"TERM=xterm-256color"},
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return res.Stdout + res.Stderr, fmt.Errorf("exit code %d: %s", res.ExitCode, res.Stderr)
	}
	return res.Stdout, nil
}

// Start is idempotent: if the tmux session already exists it returns true
// without restarting anything. Otherwise it ensures the container is
// running (when UseDocker) then creates a detached tmux session running
// t.Command in the work directory, sending a brief Enter afterward to
// dismiss any first-run trust prompt.
func (r *Runtime) Start(ctx context.Context, t Target) (bool, error) {
	if status, err := r.Status(ctx, t); err == nil && status.Exists {
		return true, nil
	}

	if t.UseDocker {
		if r.Container == nil {
			return false, fmt.Errorf("session %s requires docker but no container runtime is configured", t.SessionID)
		}
		if err := r.ensureContainer(ctx, t); err != nil {
			return false, fmt.Errorf("starting container for %s: %w", t.SessionID, err)
		}
	}

	workDir := t.WorkPath
	if t.UseDocker {
		workDir = "/workspace"
	}

	cmd := terminal.NewSessionCmd(t.SessionID, workDir, t.Command)
	if _, err := r.exec(ctx, t, cmd); err != nil {
		return false, fmt.Errorf("creating tmux session %s: %w", t.SessionID, err)
	}

	time.Sleep(2 * time.Second)
	_, _ = r.SendMessage(ctx, t, "")

	audit.LogSuccess(audit.OpSessionStart, t.WorkPath, t.SessionID, "")
	return true, nil
}

// Status reports whether t's tmux session exists and, if so, its window
// count and attached state. Containerized targets first check the
// container is running; a stopped or missing container means the
// session does not exist regardless of tmux state.
func (r *Runtime) Status(ctx context.Context, t Target) (Status, error) {
	if t.UseDocker {
		if r.Container == nil {
			return Status{Exists: false}, nil
		}
		status, err := r.Container.Status(ctx, t.ContainerName())
		if err != nil || status != container.StatusRunning {
			return Status{Exists: false}, nil
		}
	}

	if _, err := r.exec(ctx, t, terminal.HasSessionCmd(t.SessionID)); err != nil {
		return Status{Exists: false}, nil
	}

	out, err := r.exec(ctx, t, terminal.DisplayMessageCmd(t.SessionID, "#{session_windows}\t#{session_attached}"))
	if err != nil {
		return Status{Exists: true, Err: err.Error()}, nil
	}

	parts := strings.Split(strings.TrimSpace(out), "\t")
	if len(parts) != 2 {
		return Status{Exists: true, Err: "failed to parse tmux output"}, nil
	}
	windows, _ := strconv.Atoi(parts[0])
	return Status{Exists: true, Windows: windows, Attached: parts[1] == "1"}, nil
}

// SendMessage loads text into the paste buffer, pastes it into pane 0,
// then sends a carriage return — matching the teacher's "literal bytes,
// then Enter" two-step so messages containing tmux-special characters
// are delivered unmodified.
func (r *Runtime) SendMessage(ctx context.Context, t Target, text string) (bool, error) {
	target := t.tmuxTarget()
	if _, err := r.exec(ctx, t, terminal.SetBufferCmd(text)); err != nil {
		return false, nil
	}
	if _, err := r.exec(ctx, t, terminal.PasteBufferCmd(target)); err != nil {
		return false, nil
	}
	if _, err := r.exec(ctx, t, terminal.SendKeysCmd(target, "C-m")); err != nil {
		return false, nil
	}
	return true, nil
}

// Attach respawns targetPane in the caller's own (UI) terminal with a
// command that re-attaches to t's session: directly for local targets,
// via a container exec for containerized ones.
func (r *Runtime) Attach(ctx context.Context, t Target, targetPane string) (bool, error) {
	var cmd []string
	if t.UseDocker {
		cmd = terminal.RespawnPaneCmd(targetPane,
			"docker", "exec", "-it", t.ContainerName(), "tmux", "-L", terminal.Socket, "attach-session", "-t", t.SessionID)
	} else {
		cmd = terminal.RespawnPaneCmd(targetPane,
			"sh", "-c", fmt.Sprintf("TMUX= tmux -L %s attach-session -t %s", terminal.Socket, t.SessionID))
	}
	out, err := terminal.Exec(cmd)
	if err != nil {
		return false, fmt.Errorf("attaching to %s: %w: %s", t.SessionID, err, out)
	}
	return true, nil
}

// Delete kills the local tmux session, or stops and removes the
// container (which implicitly kills the tmux session inside it).
// Worktree and persisted session state are not touched here — that's the
// session layer's responsibility.
func (r *Runtime) Delete(ctx context.Context, t Target) error {
	if t.UseDocker {
		if r.Container == nil {
			return nil
		}
		_ = r.Container.Stop(ctx, t.ContainerName())
		err := r.Container.Remove(ctx, t.ContainerName(), true)
		if err != nil {
			audit.LogFailure(audit.OpContainerRemove, t.WorkPath, t.SessionID, "", err)
		} else {
			audit.LogSuccess(audit.OpContainerRemove, t.WorkPath, t.SessionID, "")
		}
		return err
	}
	_, err := terminal.Exec(terminal.KillSessionCmd(t.SessionID))
	return err
}
