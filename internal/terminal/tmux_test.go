package terminal

import (
	"reflect"
	"testing"
)

func TestNewSessionCmd(t *testing.T) {
	got := NewSessionCmd("sess-1", "/work/sess-1", "claude")
	want := []string{
		"tmux", "-L", Socket,
		"new-session", "-d", "-s", "sess-1", "-c", "/work/sess-1", "claude",
		";", "set-option", "-t", "sess-1", "status", "off",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NewSessionCmd() = %v, want %v", got, want)
	}
}

func TestHasSessionCmd(t *testing.T) {
	got := HasSessionCmd("sess-1")
	want := []string{"tmux", "-L", Socket, "has-session", "-t", "sess-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("HasSessionCmd() = %v, want %v", got, want)
	}
}

func TestDisplayMessageCmd(t *testing.T) {
	got := DisplayMessageCmd("sess-1", "#{session_windows}")
	want := []string{"tmux", "-L", Socket, "display-message", "-t", "sess-1", "-p", "#{session_windows}"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DisplayMessageCmd() = %v, want %v", got, want)
	}
}

func TestSendKeysCmd(t *testing.T) {
	got := SendKeysCmd("sess-1:0.0", "C-m")
	want := []string{"tmux", "-L", Socket, "send-keys", "-t", "sess-1:0.0", "C-m"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SendKeysCmd() = %v, want %v", got, want)
	}
}

func TestRespawnPaneCmd(t *testing.T) {
	got := RespawnPaneCmd("%1", "sh", "-c", "echo hi")
	want := []string{"tmux", "-L", Socket, "respawn-pane", "-t", "%1", "-k", "sh", "-c", "echo hi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RespawnPaneCmd() = %v, want %v", got, want)
	}
}

func TestKillSessionCmd(t *testing.T) {
	got := KillSessionCmd("sess-1")
	want := []string{"tmux", "-L", Socket, "kill-session", "-t", "sess-1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KillSessionCmd() = %v, want %v", got, want)
	}
}

func TestCapturePaneCmd(t *testing.T) {
	got := CapturePaneCmd("sess-1:0.0")
	want := []string{"tmux", "-L", Socket, "capture-pane", "-p", "-t", "sess-1:0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CapturePaneCmd() = %v, want %v", got, want)
	}
}

func TestAttachConfigFlags(t *testing.T) {
	t.Run("inserts -f after socket flags", func(t *testing.T) {
		cmd := HasSessionCmd("sess-1")
		got := AttachConfigFlags(cmd, "/home/.orchestra/config/tmux.conf")
		want := []string{"tmux", "-L", Socket, "-f", "/home/.orchestra/config/tmux.conf", "has-session", "-t", "sess-1"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("AttachConfigFlags() = %v, want %v", got, want)
		}
	})

	t.Run("leaves non-tmux commands untouched", func(t *testing.T) {
		cmd := []string{"docker", "exec", "-it", "orchestra-sess-1"}
		got := AttachConfigFlags(cmd, "/conf")
		if !reflect.DeepEqual(got, cmd) {
			t.Errorf("AttachConfigFlags() = %v, want unchanged %v", got, cmd)
		}
	})
}

func TestEnv(t *testing.T) {
	env := Env()
	found := false
	for _, e := range env {
		if e == "TERM=xterm-256color" {
			found = true
		}
	}
	if !found {
		t.Error("Env() missing TERM=xterm-256color")
	}
}
