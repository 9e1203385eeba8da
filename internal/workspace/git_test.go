package workspace

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T, dir string) {
	t.Helper()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"add", "."},
		{"commit", "-q", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
}

func TestCreateWorktreeNewBranch(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}
	initRepo(t, source)

	workPath := filepath.Join(root, "worktrees", "proj-executor")
	if err := CreateWorktree(workPath, "proj-executor", source); err != nil {
		t.Fatalf("CreateWorktree: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workPath, "README.md")); err != nil {
		t.Fatalf("expected worktree to contain checked-out files: %v", err)
	}
}

func TestCreateWorktreeIdempotent(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}
	initRepo(t, source)

	workPath := filepath.Join(root, "worktrees", "proj-executor")
	if err := CreateWorktree(workPath, "proj-executor", source); err != nil {
		t.Fatalf("first CreateWorktree: %v", err)
	}
	if err := CreateWorktree(workPath, "proj-executor", source); err != nil {
		t.Fatalf("second CreateWorktree should be a no-op, got: %v", err)
	}
}

func TestRelocateGitIdempotent(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}
	initRepo(t, source)

	gitDir := filepath.Join(root, "repos", "source", ".git")
	if err := RelocateGit(source, gitDir); err != nil {
		t.Fatalf("first RelocateGit: %v", err)
	}
	if err := RelocateGit(source, gitDir); err != nil {
		t.Fatalf("second RelocateGit should be a no-op, got: %v", err)
	}

	info, err := os.Lstat(filepath.Join(source, ".git"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected .git to be a symlink after relocation")
	}
}
