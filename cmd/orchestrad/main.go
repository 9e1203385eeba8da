// Command orchestrad is Orchestra's supervisor: it boots the MCP tool
// server, the hook monitor, and the periodic recovery sweep, then tears
// them down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HyphaGroup/orchestra/internal/agent"
	"github.com/HyphaGroup/orchestra/internal/config"
	"github.com/HyphaGroup/orchestra/internal/container"
	"github.com/HyphaGroup/orchestra/internal/container/applecontainer"
	"github.com/HyphaGroup/orchestra/internal/container/docker"
	"github.com/HyphaGroup/orchestra/internal/logger"
	"github.com/HyphaGroup/orchestra/internal/messagequeue"
	"github.com/HyphaGroup/orchestra/internal/monitor"
	"github.com/HyphaGroup/orchestra/internal/session"
	"github.com/HyphaGroup/orchestra/internal/supervisor"
	"github.com/HyphaGroup/orchestra/internal/tracing"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	dirFlag := flag.String("dir", "", "Orchestra home directory (default: $ORCHESTRA_HOME_DIR or ~/.orchestra)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("orchestrad %s\n", Version)
		return
	}

	if *dirFlag != "" {
		if err := os.Setenv("ORCHESTRA_HOME_DIR", *dirFlag); err != nil {
			log.Fatalf("setting ORCHESTRA_HOME_DIR: %v", err)
		}
	}

	home, err := config.LoadHome()
	if err != nil {
		log.Fatalf("resolving orchestra home: %v", err)
	}
	if err := home.EnsureTmuxConf(); err != nil {
		log.Fatalf("writing default tmux.conf: %v", err)
	}

	if err := logger.Init(home.Root); err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Info("orchestrad %s starting, home=%s", Version, home.Root)

	shutdownTracing, err := tracing.Setup(context.Background(), "orchestrad")
	if err != nil {
		logger.Error("tracing setup failed, continuing without export: %v", err)
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	cfg, err := config.LoadServerConfig(home)
	if err != nil {
		log.Fatalf("loading server config: %v", err)
	}

	registry, err := agent.NewRegistry(home)
	if err != nil {
		log.Fatalf("loading agent registry: %v", err)
	}

	containerRuntime, images := resolveContainerRuntime(cfg)
	protocol := agent.NewRuntime(containerRuntime, images, home.SharedClaudeDir(), home.SharedClaudeJSON(), home.TmuxConfPath())

	store := session.NewStore(home, registry)
	queue := messagequeue.New(home.MessagesJSONL())
	manager := session.NewManager(home, store, protocol, queue, cfg.MCPPort, cfg.MonitorPort)

	mode := monitor.ModeSession
	if cfg.MonitorMode == string(monitor.ModeIndependent) {
		mode = monitor.ModeIndependent
	}

	sv := supervisor.New(supervisor.Config{
		MCPAddr:       fmt.Sprintf(":%d", cfg.MCPPort),
		MonitorAddr:   fmt.Sprintf(":%d", cfg.MonitorPort),
		MonitorMode:   mode,
		RecoverySweep: "@every 5m",
		SessionSweep:  "@every 15m",
		IndexSweep:    "@every 1m",
	}, home, store, manager, protocol, queue)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal %v, shutting down", sig)
		cancel()
	}()

	runErr := sv.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := sv.Shutdown(shutdownCtx); err != nil {
		logger.Error("supervisor shutdown: %v", err)
	}

	if runErr != nil && ctx.Err() == nil {
		logger.Error("supervisor exited with error: %v", runErr)
		os.Exit(1)
	}
	logger.Info("orchestrad stopped")
}

// resolveContainerRuntime mirrors the teacher's auto-detect-then-fall-back
// selection (Apple Container on macOS ARM64, then Docker), wrapped in the
// same 5-second status cache. A nil runtime is valid: Target.UseDocker
// sessions simply fail to start until one is configured.
func resolveContainerRuntime(cfg config.ServerConfig) (container.Runtime, *agent.ContainerImages) {
	pref := cfg.ContainerRuntime
	if pref == "" {
		pref = container.GetRuntimePreference()
	}

	var base container.Runtime
	switch pref {
	case "docker":
		if r, err := docker.NewRuntime(); err == nil {
			base = r
		} else {
			logger.Error("docker runtime unavailable: %v", err)
		}
	case "apple":
		if r, err := applecontainer.NewRuntime(); err == nil {
			base = r
		} else {
			logger.Error("apple container runtime unavailable: %v", err)
		}
	default:
		if r, err := applecontainer.NewRuntime(); err == nil && r.IsAvailable() {
			base = r
			logger.Info("using Apple Container runtime")
		} else if r, err := docker.NewRuntime(); err == nil && r.IsAvailable() {
			base = r
			logger.Info("using Docker runtime")
		} else {
			logger.Info("no container runtime available; containerized sessions will fail to start")
		}
	}

	if base == nil {
		return nil, nil
	}

	cached := container.NewCachedRuntime(base, 5*time.Second)
	images := agent.NewContainerImages("orchestra-image", cached)
	return cached, images
}
