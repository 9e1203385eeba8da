// Package cleanup monitors disk usage under an Orchestra home directory,
// logging warnings as worktrees and container images accumulate.
package cleanup

import (
	"sync"
	"syscall"
	"time"

	"github.com/HyphaGroup/orchestra/internal/logger"
)

// Monitor periodically checks disk usage under a root path.
type Monitor struct {
	root      string
	interval  time.Duration
	diskWarn  float64
	diskError float64
	cancel    func()
	wg        sync.WaitGroup
}

// Config holds disk-monitor configuration.
type Config struct {
	Root             string
	Interval         time.Duration
	DiskWarnPercent  float64
	DiskErrorPercent float64
}

// DefaultConfig returns sensible defaults for root.
func DefaultConfig(root string) Config {
	return Config{
		Root:             root,
		Interval:         5 * time.Minute,
		DiskWarnPercent:  80.0,
		DiskErrorPercent: 90.0,
	}
}

// New creates a Monitor from cfg.
func New(cfg Config) *Monitor {
	return &Monitor{
		root:      cfg.Root,
		interval:  cfg.Interval,
		diskWarn:  cfg.DiskWarnPercent,
		diskError: cfg.DiskErrorPercent,
	}
}

// Start begins the periodic disk-usage check loop.
func (m *Monitor) Start() {
	stop := make(chan struct{})
	m.cancel = sync.OnceFunc(func() { close(stop) })
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Check()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Check()
			}
		}
	}()

	logger.Info("disk monitor started for %s (interval=%v)", m.root, m.interval)
}

// Stop halts the check loop.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
		m.wg.Wait()
		logger.Info("disk monitor stopped")
	}
}

// Check runs a single disk usage check, logging a warning or error if usage
// has crossed the configured thresholds.
func (m *Monitor) Check() {
	used, total, percent, err := m.Usage()
	if err != nil {
		logger.Error("disk monitor: statfs %s: %v", m.root, err)
		return
	}
	_ = used
	_ = total

	switch {
	case percent >= m.diskError:
		logger.Error("disk usage at %.1f%% under %s", percent, m.root)
	case percent >= m.diskWarn:
		logger.Info("WARNING: disk usage at %.1f%% under %s", percent, m.root)
	}
}

// Usage returns current disk usage stats for root.
func (m *Monitor) Usage() (usedBytes, totalBytes uint64, usedPercent float64, err error) {
	var stat syscall.Statfs_t
	if err = syscall.Statfs(m.root, &stat); err != nil {
		return
	}

	totalBytes = stat.Blocks * uint64(stat.Bsize)
	freeBytes := stat.Bfree * uint64(stat.Bsize)
	usedBytes = totalBytes - freeBytes
	usedPercent = float64(usedBytes) / float64(totalBytes) * 100
	return
}
