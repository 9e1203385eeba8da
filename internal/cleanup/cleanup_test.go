package cleanup

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/test/root")

	if cfg.Root != "/test/root" {
		t.Errorf("Root = %q, want %q", cfg.Root, "/test/root")
	}
	if cfg.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want %v", cfg.Interval, 5*time.Minute)
	}
	if cfg.DiskWarnPercent != 80.0 {
		t.Errorf("DiskWarnPercent = %f, want 80.0", cfg.DiskWarnPercent)
	}
	if cfg.DiskErrorPercent != 90.0 {
		t.Errorf("DiskErrorPercent = %f, want 90.0", cfg.DiskErrorPercent)
	}
}

func TestNew(t *testing.T) {
	cfg := Config{
		Root:             "/custom/root",
		Interval:         10 * time.Minute,
		DiskWarnPercent:  75.0,
		DiskErrorPercent: 85.0,
	}

	mon := New(cfg)

	if mon.root != "/custom/root" {
		t.Errorf("root = %q, want %q", mon.root, "/custom/root")
	}
	if mon.interval != 10*time.Minute {
		t.Errorf("interval = %v, want %v", mon.interval, 10*time.Minute)
	}
	if mon.diskWarn != 75.0 {
		t.Errorf("diskWarn = %f, want 75.0", mon.diskWarn)
	}
	if mon.diskError != 85.0 {
		t.Errorf("diskError = %f, want 85.0", mon.diskError)
	}
}

func TestMonitor_StartStop(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Config{
		Root:             tmpDir,
		Interval:         100 * time.Millisecond,
		DiskWarnPercent:  80.0,
		DiskErrorPercent: 90.0,
	}

	mon := New(cfg)
	mon.Start()
	time.Sleep(150 * time.Millisecond)
	mon.Stop()
}

func TestMonitor_Usage(t *testing.T) {
	tmpDir := t.TempDir()

	mon := New(Config{Root: tmpDir})
	used, total, percent, err := mon.Usage()

	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if total == 0 {
		t.Error("total bytes should be > 0")
	}
	if used > total {
		t.Error("used bytes should be <= total bytes")
	}
	if percent < 0 || percent > 100 {
		t.Errorf("percent = %f, should be between 0 and 100", percent)
	}
}

func TestMonitor_Usage_InvalidPath(t *testing.T) {
	mon := New(Config{Root: "/nonexistent/path/that/does/not/exist"})
	_, _, _, err := mon.Usage()

	if err == nil {
		t.Error("expected error for nonexistent path")
	}
}

func TestMonitor_Check(t *testing.T) {
	tmpDir := t.TempDir()

	mon := New(Config{
		Root:             tmpDir,
		DiskWarnPercent:  80.0,
		DiskErrorPercent: 90.0,
	})

	// Should not panic - just logs warnings if disk is high.
	mon.Check()
}
