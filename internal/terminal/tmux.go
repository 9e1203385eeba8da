// Package terminal builds and executes tmux commands against a dedicated
// socket so Orchestra's own sessions never collide with a user's tmux
// server. Command construction is kept as pure functions, separate from
// execution, so callers can test the former without a tmux binary.
package terminal

import (
	"os"
	"os/exec"
)

// Socket is the dedicated tmux socket name all Orchestra sessions use.
const Socket = "orchestra"

func buildCmd(args ...string) []string {
	return append([]string{"tmux", "-L", Socket}, args...)
}

// Env returns the environment tmux commands should run with: the current
// environment plus a color-capable TERM.
func Env() []string {
	return append(os.Environ(), "TERM=xterm-256color")
}

// NewSessionCmd builds a command creating a detached session running
// command in workDir, with the status bar disabled.
func NewSessionCmd(sessionID, workDir, command string) []string {
	return buildCmd(
		"new-session", "-d", "-s", sessionID, "-c", workDir, command,
		";", "set-option", "-t", sessionID, "status", "off",
	)
}

// HasSessionCmd builds a command that exits zero iff sessionID exists.
func HasSessionCmd(sessionID string) []string {
	return buildCmd("has-session", "-t", sessionID)
}

// DisplayMessageCmd builds a command printing format expanded against sessionID.
func DisplayMessageCmd(sessionID, format string) []string {
	return buildCmd("display-message", "-t", sessionID, "-p", format)
}

// SetBufferCmd builds a command loading content into the paste buffer.
func SetBufferCmd(content string) []string {
	return buildCmd("set-buffer", content)
}

// PasteBufferCmd builds a command pasting the paste buffer into target.
func PasteBufferCmd(target string) []string {
	return buildCmd("paste-buffer", "-t", target)
}

// SendKeysCmd builds a command sending literal keys to target.
func SendKeysCmd(target string, keys ...string) []string {
	args := append([]string{"send-keys", "-t", target}, keys...)
	return buildCmd(args...)
}

// RespawnPaneCmd builds a command that kills and restarts pane with command.
func RespawnPaneCmd(pane string, command ...string) []string {
	args := append([]string{"respawn-pane", "-t", pane, "-k"}, command...)
	return buildCmd(args...)
}

// KillSessionCmd builds a command killing sessionID.
func KillSessionCmd(sessionID string) []string {
	return buildCmd("kill-session", "-t", sessionID)
}

// KillServerCmd builds a command killing the orchestra tmux server entirely.
func KillServerCmd() []string {
	return buildCmd("kill-server")
}

// CapturePaneCmd builds a command dumping target's visible pane content.
func CapturePaneCmd(target string) []string {
	return buildCmd("capture-pane", "-p", "-t", target)
}

// AttachConfigFlags inserts "-f confPath" after the socket flags, the way
// the local executor auto-loads Orchestra's tmux.conf. Containerized
// sessions instead rely on the mounted conf at the default path and never
// need this; it is only for commands run directly on the host.
func AttachConfigFlags(cmd []string, confPath string) []string {
	if len(cmd) > 2 && cmd[0] == "tmux" && cmd[1] == "-L" {
		out := append([]string{}, cmd[:3]...)
		out = append(out, "-f", confPath)
		out = append(out, cmd[3:]...)
		return out
	}
	return cmd
}

// Exec runs a tmux command built by one of the builders above, on the host.
// Returns combined stdout+stderr for logging/diagnostics alongside err.
func Exec(cmd []string) (output string, err error) {
	c := exec.Command(cmd[0], cmd[1:]...)
	c.Env = Env()
	out, err := c.CombinedOutput()
	return string(out), err
}
