// Command orchestra is the operator CLI: initialize a project's root
// session, list/spawn/pair/message/delete/attach sessions in a tree, all
// driving the same session.Manager the MCP tools and supervisor use.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/container"
	"github.com/HyphaGroup/orchestra/internal/messagequeue"
	"github.com/HyphaGroup/orchestra/internal/session"
)

var Version = "dev"

// deps bundles the collaborators every subcommand needs, built once per
// invocation from the resolved home directory.
type deps struct {
	home     *config.Home
	store    *session.Store
	manager  *session.Manager
	registry *agent.Registry
}

func buildDeps() (*deps, error) {
	home, err := config.LoadHome()
	if err != nil {
		return nil, fmt.Errorf("resolving orchestra home: %w", err)
	}
	registry, err := agent.NewRegistry(home)
	if err != nil {
		return nil, fmt.Errorf("loading agent registry: %w", err)
	}
	cfg, err := config.LoadServerConfig(home)
	if err != nil {
		return nil, fmt.Errorf("loading server config: %w", err)
	}

	// The CLI builds its protocol with no container runtime, so it drives
	// host-tmux sessions only. Starting, messaging or checking a
	// Docker-backed session (for example spawning the default "executor"
	// type, or sending to one) fails with a "no container runtime is
	// configured" error, and delete leaves such a session's container in
	// place.
	var noContainer container.Runtime
	protocol := agent.NewRuntime(noContainer, nil, home.SharedClaudeDir(), home.SharedClaudeJSON(), home.TmuxConfPath())

	store := session.NewStore(home, registry)
	queue := messagequeue.New(home.MessagesJSONL())
	manager := session.NewManager(home, store, protocol, queue, cfg.MCPPort, cfg.MonitorPort)

	return &deps{home: home, store: store, manager: manager, registry: registry}, nil
}

func main() {
	root := &cobra.Command{
		Use:     "orchestra",
		Short:   "Operator CLI for the Orchestra multi-agent session tree",
		Version: Version,
	}

	root.AddCommand(
		newInitCmd(),
		newListCmd(),
		newSpawnCmd(),
		newPairCmd(),
		newSendCmd(),
		newDeleteCmd(),
		newAttachCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveSourcePath(flagVal string) (string, error) {
	if flagVal == "" {
		return os.Getwd()
	}
	return filepath.Abs(flagVal)
}

func newInitCmd() *cobra.Command {
	var source, name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project's root (designer) session",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}

			tree, err := d.store.Load(sourcePath)
			if err != nil {
				return err
			}
			root, err := d.manager.CreateRoot(cmd.Context(), tree, sourcePath, name)
			if err != nil {
				return err
			}
			if err := d.store.Save(tree); err != nil {
				return fmt.Errorf("persisting session tree: %w", err)
			}
			fmt.Printf("Initialized root session %q (id=%s) for %s\n", root.SessionName, root.SessionID, sourcePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	cmd.Flags().StringVar(&name, "name", "designer", "root session name")
	return cmd
}

func newListCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions in a project's tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}
			tree, err := d.store.Load(sourcePath)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\tTYPE\tSTATE\tPAIRED\tPARENT")
			for _, root := range tree.Roots {
				root.Walk(func(s *session.Session) bool {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n",
						s.SessionName, s.SessionID, s.AgentType, s.State, s.Paired, s.ParentSessionName)
					return true
				})
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	return cmd
}

func newSpawnCmd() *cobra.Command {
	var source, parent, instructions, agentType string
	cmd := &cobra.Command{
		Use:   "spawn <child-name>",
		Short: "Spawn a child session under an existing parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}

			tree, err := d.store.Load(sourcePath)
			if err != nil {
				return err
			}
			parentSession := tree.Find(parent)
			if parentSession == nil {
				return fmt.Errorf("parent session %q not found", parent)
			}

			d.store.Locks().Lock(parentSession.SessionID)
			defer d.store.Locks().Unlock(parentSession.SessionID)

			child, err := d.manager.SpawnChild(cmd.Context(), parentSession, args[0], instructions, agentType)
			if err != nil {
				return err
			}
			if err := d.store.Save(tree); err != nil {
				return fmt.Errorf("persisting session tree: %w", err)
			}
			fmt.Printf("Spawned %q (id=%s) under %q\n", child.SessionName, child.SessionID, parentSession.SessionName)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	cmd.Flags().StringVar(&parent, "parent", "designer", "parent session name")
	cmd.Flags().StringVar(&instructions, "instructions", "", "instructions written to the child's instructions.md")
	cmd.Flags().StringVar(&agentType, "agent-type", "executor", "agent type to spawn")
	return cmd
}

func newPairCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "pair <session-name>",
		Short: "Toggle pairing (work on the project's own checkout) for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}

			target, tree, err := d.store.Find(sourcePath, args[0])
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("session %q not found", args[0])
			}

			d.store.Locks().Lock(target.SessionID)
			defer d.store.Locks().Unlock(target.SessionID)

			if err := d.manager.TogglePairing(tree, target); err != nil {
				return err
			}
			if err := d.store.Save(tree); err != nil {
				return fmt.Errorf("persisting session tree: %w", err)
			}
			fmt.Printf("Session %q paired=%v\n", target.SessionName, target.Paired)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	return cmd
}

func newSendCmd() *cobra.Command {
	var source, from string
	cmd := &cobra.Command{
		Use:   "send <session-name> <message...>",
		Short: "Send a message to a session (queued for designers, injected otherwise)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}

			target, _, err := d.store.Find(sourcePath, args[0])
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("session %q not found", args[0])
			}

			d.store.Locks().Lock(target.SessionID)
			defer d.store.Locks().Unlock(target.SessionID)

			result, err := d.manager.SendMessage(cmd.Context(), target, from, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Println(result)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	cmd.Flags().StringVar(&from, "from", "operator", "sender name recorded on the message")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "delete <session-name>",
		Short: "Tear down a session's terminal and worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}

			target, tree, err := d.store.Find(sourcePath, args[0])
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("session %q not found", args[0])
			}

			d.store.Locks().Lock(target.SessionID)
			if err := d.manager.Delete(cmd.Context(), target); err != nil {
				d.store.Locks().Unlock(target.SessionID)
				return err
			}
			d.store.Locks().Unlock(target.SessionID)
			d.store.Locks().Delete(target.SessionID)

			if !target.IsRoot() {
				if parent := tree.Find(target.ParentSessionName); parent != nil {
					session.RemoveChild(parent, target.SessionName)
				}
			}
			if err := d.store.Save(tree); err != nil {
				return fmt.Errorf("persisting session tree: %w", err)
			}
			fmt.Printf("Deleted session %q\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	return cmd
}

func newAttachCmd() *cobra.Command {
	var source, pane string
	cmd := &cobra.Command{
		Use:   "attach <session-name>",
		Short: "Attach the calling terminal to a session's tmux pane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps()
			if err != nil {
				return err
			}
			sourcePath, err := resolveSourcePath(source)
			if err != nil {
				return err
			}

			target, _, err := d.store.Find(sourcePath, args[0])
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("session %q not found", args[0])
			}

			if pane == "" {
				pane = os.Getenv("TMUX_PANE")
			}
			if pane == "" {
				return fmt.Errorf("not running inside tmux and no --pane given")
			}

			runtime := agent.NewRuntime(nil, nil, d.home.SharedClaudeDir(), d.home.SharedClaudeJSON(), d.home.TmuxConfPath())
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			ok, err := runtime.Attach(ctx, d.manager.Target(target), pane)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("failed to attach to %q", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "project source directory (default: cwd)")
	cmd.Flags().StringVar(&pane, "pane", "", "caller's own pane to respawn (default: $TMUX_PANE)")
	return cmd
}
