// Package supervisor boots and tears down Orchestra's long-running
// services: the MCP tool server, the hook monitor, and the periodic
// maintenance sweep. It is the Go equivalent of the Python launcher's
// subprocess-and-cleanup-callback shape, collapsed into one process since
// both servers are in-process packages here rather than separate binaries.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/cleanup"
	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/logger"
	"github.com/HyphaGroup/orchestra/internal/mcpserver"
	"github.com/HyphaGroup/orchestra/internal/messagequeue"
	"github.com/HyphaGroup/orchestra/internal/monitor"
	"github.com/HyphaGroup/orchestra/internal/session"
	"github.com/HyphaGroup/orchestra/internal/terminal"
	"github.com/HyphaGroup/orchestra/internal/workspace"
)

// Config bundles what Supervisor needs beyond the already-constructed home
// and registry: listen addresses and the sweep cadence.
type Config struct {
	MCPAddr       string
	MonitorAddr   string
	MonitorMode   monitor.Mode
	RecoverySweep string // cron expression, e.g. "@every 5m"
	SessionSweep  string // cron expression for stale-session pruning
	IndexSweep    string // cron expression for the sqlite index resync
}

// Supervisor owns the MCP server, monitor server, and recovery cron, and
// the shutdown sequence grounded in maestro.py's cleanup_servers: Run stops
// both HTTP services when its context ends, then Shutdown (called after Run
// returns) reverses every paired session's pairing artifacts and kills the
// shared tmux server. Pairing is therefore reversed only after the HTTP
// services have already stopped.
type Supervisor struct {
	cfg     Config
	home    *config.Home
	store   *session.Store
	manager *session.Manager

	mcp     *mcpserver.Server
	mon     *monitor.Server
	index   *session.Index
	disk    *cleanup.Monitor
	cron    *cron.Cron
	servers []*http.Server
}

// New wires a Supervisor around an already-constructed store/manager pair
// and the agent.Protocol they share, building the MCP and monitor servers
// internally so callers only deal with one lifecycle object.
func New(cfg Config, home *config.Home, store *session.Store, manager *session.Manager, protocol agent.Protocol, queue *messagequeue.Queue) *Supervisor {
	mcpSrv := mcpserver.NewServer(store, manager)

	var client monitor.AgentClient
	if cfg.MonitorMode == monitor.ModeIndependent {
		client = monitor.FileClient{}
	} else {
		client = &monitor.SessionClient{
			Protocol: protocol,
			Lookup: func(sessionID string) (agent.Target, bool) {
				s, _, err := store.FindByID(sessionID)
				if err != nil || s == nil {
					return agent.Target{}, false
				}
				return manager.Target(s), true
			},
		}
	}

	index, err := session.NewIndex(home.IndexDB())
	if err != nil {
		logger.Error("supervisor: opening session index, list queries will be unavailable: %v", err)
	}

	return &Supervisor{
		cfg:     cfg,
		home:    home,
		store:   store,
		manager: manager,
		mcp:     mcpSrv,
		mon:     monitor.NewServer(cfg.MonitorMode, client),
		index:   index,
		disk:    cleanup.New(cleanup.DefaultConfig(home.Root)),
	}
}

// Run starts the MCP server, monitor server, and recovery cron
// concurrently under one errgroup, blocking until ctx is canceled or any
// service returns an error. On return every service has already been
// asked to stop; the caller still owns logging/exit-code decisions.
func (sv *Supervisor) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	mcpServer := &http.Server{Addr: sv.cfg.MCPAddr, Handler: sv.mcp.Mux()}
	monitorServer := &http.Server{Addr: sv.cfg.MonitorAddr, Handler: sv.mon.Mux()}
	sv.servers = []*http.Server{mcpServer, monitorServer}

	sv.cron = cron.New()
	if sv.cfg.RecoverySweep != "" {
		if _, err := sv.cron.AddFunc(sv.cfg.RecoverySweep, sv.runRecoverySweep); err != nil {
			return fmt.Errorf("scheduling recovery sweep %q: %w", sv.cfg.RecoverySweep, err)
		}
	}
	if sv.cfg.SessionSweep != "" {
		if _, err := sv.cron.AddFunc(sv.cfg.SessionSweep, sv.runSessionSweep); err != nil {
			return fmt.Errorf("scheduling session sweep %q: %w", sv.cfg.SessionSweep, err)
		}
	}
	if sv.index != nil && sv.cfg.IndexSweep != "" {
		if _, err := sv.cron.AddFunc(sv.cfg.IndexSweep, sv.runIndexSync); err != nil {
			return fmt.Errorf("scheduling index sync %q: %w", sv.cfg.IndexSweep, err)
		}
		sv.runIndexSync()
	}

	sv.disk.Start()

	group.Go(func() error {
		logger.Info("supervisor: MCP server listening on %s", sv.cfg.MCPAddr)
		if err := mcpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("supervisor: monitor server listening on %s", sv.cfg.MonitorAddr)
		if err := monitorServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("monitor server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		sv.cron.Run()
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		return sv.shutdownServices()
	})

	return group.Wait()
}

func (sv *Supervisor) shutdownServices() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range sv.servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("supervisor: error shutting down %s: %v", srv.Addr, err)
		}
	}
	if sv.cron != nil {
		stopCtx := sv.cron.Stop()
		<-stopCtx.Done()
	}
	if sv.index != nil {
		if err := sv.index.Close(); err != nil {
			logger.Error("supervisor: closing session index: %v", err)
		}
	}
	sv.disk.Stop()
	return nil
}

// Shutdown runs the maestro.py cleanup sequence beyond what the errgroup's
// own context-cancellation path already stops: reverse pairing artifacts
// for every live session, then kill the shared tmux server. Call this
// after Run returns, once every in-process service has already wound
// down.
func (sv *Supervisor) Shutdown(ctx context.Context) error {
	logger.Info("supervisor: reversing pairing artifacts for all sessions")
	trees, err := sv.store.LoadAll()
	if err != nil {
		logger.Error("supervisor: loading session trees for shutdown: %v", err)
	}
	for _, t := range trees {
		for _, root := range t.Roots {
			root.Walk(func(s *session.Session) bool {
				if !s.Paired {
					return true
				}
				basename := filepath.Base(s.SourcePath)
				gitDir := sv.home.RepoGitDir(basename)
				if err := workspace.DisablePairing(s.SourcePath, s.WorkPath, gitDir, s.SessionID); err != nil {
					logger.Error("supervisor: unpairing %s during shutdown: %v", s.SessionName, err)
				}
				return true
			})
		}
	}

	logger.Info("supervisor: killing tmux server")
	if _, err := terminal.Exec(terminal.KillServerCmd()); err != nil {
		logger.Error("supervisor: killing tmux server: %v", err)
	}
	return nil
}

// runIndexSync rebuilds the sqlite session index from the canonical JSON
// document — the scheduled half of the "document is truth, index is a
// cache" contract.
func (sv *Supervisor) runIndexSync() {
	if err := sv.index.Sync(sv.store); err != nil {
		logger.Error("supervisor: index sync: %v", err)
	}
}

// runRecoverySweep is the cron-scheduled equivalent of
// RecoverStaleSessions: sessions recorded as running whose tmux/container
// backing has disappeared are marked removed so the tree stays truthful.
func (sv *Supervisor) runRecoverySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	recovered, err := sv.manager.RecoverStale(ctx)
	if err != nil {
		logger.Error("supervisor: recovery sweep: %v", err)
		return
	}
	if recovered > 0 {
		logger.Info("supervisor: recovery sweep marked %d stale session(s) removed", recovered)
	}
}

// runSessionSweep prunes worktrees left behind by sessions already marked
// removed, covering the case where Manager.Delete's worktree removal
// failed (best-effort by design) and nothing ever retried it.
func (sv *Supervisor) runSessionSweep() {
	trees, err := sv.store.LoadAll()
	if err != nil {
		logger.Error("supervisor: session sweep: loading trees: %v", err)
		return
	}

	pruned := 0
	for _, t := range trees {
		for _, root := range t.Roots {
			root.Walk(func(s *session.Session) bool {
				if s.State != session.StateRemoved || s.IsRoot() {
					return true
				}
				if err := workspace.RemoveWorktree(s.SourcePath, s.WorkPath, s.SessionID); err == nil {
					pruned++
				}
				return true
			})
		}
	}
	if pruned > 0 {
		logger.Info("supervisor: session sweep pruned %d stale worktree(s)", pruned)
	}
}
