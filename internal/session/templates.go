package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HyphaGroup/orchestra/internal/config"
)

const mergeChildCommand = `---
description: Merge changes from a child session into the current branch
allowed-tools: ["Bash", "Task"]
---

Review the diff between this branch and the child session's branch,
then commit the merge once satisfied:

!git diff HEAD...$1
`

// writeWorkspaceFiles lays down the per-session files described in the
// filesystem-layout/external-interfaces sections: .claude/orchestra.md,
// CLAUDE.md, settings.json for every session, instructions.md for
// children, and the designer's /merge-child command plus .orchestra/
// designer.md for the root.
func writeWorkspaceFiles(home *config.Home, s *Session, instructions string, mcpPort int) error {
	claudeDir := filepath.Join(s.WorkPath, ".claude")
	if err := os.MkdirAll(claudeDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", claudeDir, err)
	}

	orchestraMD := fmt.Sprintf("# Orchestra session\n\nsession_name: %s\nwork_path: %s\n\n%s\n",
		s.SessionName, s.WorkPath, s.Descriptor().Prompt)
	if err := os.WriteFile(filepath.Join(claudeDir, "orchestra.md"), []byte(orchestraMD), 0o644); err != nil {
		return err
	}

	claudeMD := "@.claude/orchestra.md\n"
	if err := os.WriteFile(filepath.Join(s.WorkPath, "CLAUDE.md"), []byte(claudeMD), 0o644); err != nil {
		return err
	}

	isMonitored := !s.IsRoot()
	settings := config.BuildSettings(s.SessionID, s.SourcePath, mcpPort, s.Descriptor().AllowedTools, isMonitored)
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(claudeDir, "settings.json"), data, 0o644); err != nil {
		return err
	}

	if !s.IsRoot() {
		instructionsPath := filepath.Join(s.WorkPath, "instructions.md")
		if err := os.WriteFile(instructionsPath, []byte(instructions), 0o644); err != nil {
			return err
		}
	}

	orchestraDir := filepath.Join(s.WorkPath, ".orchestra")
	if err := os.MkdirAll(orchestraDir, 0o755); err != nil {
		return err
	}
	if s.IsRoot() {
		commandsDir := filepath.Join(claudeDir, "commands")
		if err := os.MkdirAll(commandsDir, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(commandsDir, "merge-child.md"), []byte(mergeChildCommand), 0o644); err != nil {
			return err
		}
		designerMD := fmt.Sprintf("# %s\n\nRoot session for %s.\n", s.SessionName, s.SourcePath)
		if err := os.WriteFile(filepath.Join(orchestraDir, "designer.md"), []byte(designerMD), 0o644); err != nil {
			return err
		}
	}

	return nil
}
