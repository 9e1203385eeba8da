package agent

import (
	"context"
	"testing"

	"github.com/HyphaGroup/orchestra/internal/container"
	"github.com/HyphaGroup/orchestra/internal/testutil"
)

func dockerTarget() Target {
	return Target{
		SessionID:   "proj-child",
		WorkPath:    "/tmp/proj-child",
		UseDocker:   true,
		MCPPort:     9000,
		MonitorPort: 9001,
		Command:     "claude",
	}
}

func TestRuntime_Status_Docker_ContainerNotRunning(t *testing.T) {
	mock := testutil.NewMockRuntime(t)
	mock.StatusResponse = container.StatusStopped

	r := NewRuntime(mock, nil, "", "", "")
	status, err := r.Status(context.Background(), dockerTarget())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Exists {
		t.Error("Status().Exists = true, want false for a stopped container")
	}
}

func TestRuntime_Status_Docker_NilRuntime(t *testing.T) {
	r := NewRuntime(nil, nil, "", "", "")
	status, err := r.Status(context.Background(), dockerTarget())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Exists {
		t.Error("Status().Exists = true, want false with no container runtime configured")
	}
}

func TestRuntime_Status_Docker_SessionExists(t *testing.T) {
	mock := testutil.NewMockRuntime(t)
	mock.StatusResponse = container.StatusRunning
	mock.ExecResponse = &container.ExecResult{Stdout: "2\t1", ExitCode: 0}

	r := NewRuntime(mock, nil, "", "", "")
	tgt := dockerTarget()
	status, err := r.Status(context.Background(), tgt)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.Exists {
		t.Fatal("Status().Exists = false, want true")
	}
	if status.Windows != 2 || !status.Attached {
		t.Errorf("Status() = %+v, want Windows=2 Attached=true", status)
	}

	mock.AssertExecCalled(t, "tmux")
}

func TestRuntime_Delete_Docker(t *testing.T) {
	mock := testutil.NewMockRuntime(t)
	tgt := dockerTarget()

	r := NewRuntime(mock, nil, "", "", "")
	if err := r.Delete(context.Background(), tgt); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	found := false
	for _, call := range mock.RemoveCalls {
		if call.ContainerID == tgt.ContainerName() && call.Force {
			found = true
		}
	}
	if !found {
		t.Errorf("Remove not called for %s, calls: %v", tgt.ContainerName(), mock.RemoveCalls)
	}
}

func TestRuntime_Delete_Docker_NilRuntime(t *testing.T) {
	r := NewRuntime(nil, nil, "", "", "")
	if err := r.Delete(context.Background(), dockerTarget()); err != nil {
		t.Fatalf("Delete() with nil container runtime should be a no-op, got error: %v", err)
	}
}

func TestRuntime_SendMessage_Docker(t *testing.T) {
	mock := testutil.NewMockRuntime(t)
	r := NewRuntime(mock, nil, "", "", "")

	ok, err := r.SendMessage(context.Background(), dockerTarget(), "hello")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if !ok {
		t.Error("SendMessage() = false, want true")
	}
	if len(mock.ExecCalls) != 3 {
		t.Errorf("expected 3 exec calls (set-buffer, paste-buffer, send-keys), got %d", len(mock.ExecCalls))
	}
}
