package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnablePairing performs the three reversible steps that make sourcePath a
// symlink into workPath: rename source -> source.backup, rewrite
// workPath/.git to point at the session's worktree metadata under
// sourceGitDir, then symlink source -> workPath. Any failed step rolls
// back the steps already completed. sourceGitDir is the stable, relocated
// .git directory for the project (see RelocateGit); it lives outside
// sourcePath, so the rename does not move it.
func EnablePairing(sourcePath, workPath, sourceGitDir, sessionID string) (err error) {
	backupPath := sourcePath + ".backup"

	if _, statErr := os.Stat(backupPath); statErr == nil {
		return fmt.Errorf("backup %s already exists", backupPath)
	}
	if _, statErr := os.Lstat(sourcePath); statErr != nil {
		return fmt.Errorf("stat %s: %w", sourcePath, statErr)
	}

	var renamed, gitdirRewritten bool
	var previousGitdir []byte
	defer func() {
		if err == nil {
			return
		}
		if gitdirRewritten && previousGitdir != nil {
			_ = os.WriteFile(filepath.Join(workPath, ".git"), previousGitdir, 0o644)
		}
		if renamed {
			_ = os.Rename(backupPath, sourcePath)
		}
	}()

	previousGitdir, _ = os.ReadFile(filepath.Join(workPath, ".git"))

	if err = os.Rename(sourcePath, backupPath); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", sourcePath, backupPath, err)
	}
	renamed = true

	// sourceGitDir is the stable, relocated .git directory (see RelocateGit);
	// it does not move when sourcePath is renamed to its backup, so the
	// worktree's gitdir pointer is unaffected by the rename.
	if err = RestoreGitdirTo(workPath, sourceGitDir, sessionID); err != nil {
		return err
	}
	gitdirRewritten = true

	if err = os.Symlink(workPath, sourcePath); err != nil {
		return fmt.Errorf("symlinking %s to %s: %w", sourcePath, workPath, err)
	}
	return nil
}

// DisablePairing reverses EnablePairing: remove the symlink, rewrite
// workPath/.git to point at the session's worktree metadata under
// sourceGitDir, and rename the backup back to sourcePath. Requires
// a symlink and a backup to exist.
func DisablePairing(sourcePath, workPath, sourceGitDir, sessionID string) error {
	backupPath := sourcePath + ".backup"

	info, err := os.Lstat(sourcePath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", sourcePath, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return fmt.Errorf("%s is not a symlink", sourcePath)
	}
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("no backup at %s: %w", backupPath, err)
	}

	if err := os.Remove(sourcePath); err != nil {
		return fmt.Errorf("removing symlink %s: %w", sourcePath, err)
	}

	if err := RestoreGitdirTo(workPath, sourceGitDir, sessionID); err != nil {
		// Best-effort rollback: put the symlink back so state isn't left dangling.
		_ = os.Symlink(workPath, sourcePath)
		return err
	}

	if err := os.Rename(backupPath, sourcePath); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", backupPath, sourcePath, err)
	}
	return nil
}

// RestoreGitdirTo rewrites workPath/.git to "gitdir: {gitDir}/worktrees/{sessionID}".
func RestoreGitdirTo(workPath, gitDir, sessionID string) error {
	gitdirLine := fmt.Sprintf("gitdir: %s/worktrees/%s", gitDir, sessionID)
	return os.WriteFile(filepath.Join(workPath, ".git"), []byte(gitdirLine+"\n"), 0o644)
}
