package gpio

import (
	"testing"
	"time"
)

// unreachableConfig points both hardware probes at resources that cannot
// exist, forcing selection through the whole fallback chain.
func unreachableConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Chip:             "no-such-gpiochip",
		Pin:              9999,
		SentinelDir:      t.TempDir(),
		SentinelInterval: 10 * time.Millisecond,
	}
}

// TestDetect_FallsBackToSimulation verifies that with no usable hardware
// backend, selection still yields a working backend in simulation mode.
func TestDetect_FallsBackToSimulation(t *testing.T) {
	backend := Detect(unreachableConfig(t), quietLogger())
	defer backend.Close()

	if backend == nil {
		t.Fatal("expected a backend, got nil")
	}
	if backend.Name() != "sim" {
		t.Fatalf("expected simulation backend, got %s", backend.Name())
	}
	if !backend.Events() {
		t.Fatal("expected simulation backend to deliver edges")
	}
}

// TestHardwareProbeOrder verifies the priority order is stable: the
// low-level polled backend is probed before the character-device one.
func TestHardwareProbeOrder(t *testing.T) {
	probes := HardwareProbes()
	if len(probes) != 2 {
		t.Fatalf("expected 2 hardware probes, got %d", len(probes))
	}
	if probes[0].Name != "periph" || probes[1].Name != "gpiocdev" {
		t.Fatalf("unexpected probe order: %s, %s", probes[0].Name, probes[1].Name)
	}
}

// TestConfigDefaults verifies zero values are filled in.
func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Chip == "" || cfg.Pin == 0 {
		t.Fatal("expected chip and pin defaults")
	}
	if cfg.PollInterval != 50*time.Millisecond {
		t.Fatalf("expected 50ms poll interval, got %v", cfg.PollInterval)
	}
	if cfg.SentinelInterval != 500*time.Millisecond {
		t.Fatalf("expected 500ms sentinel interval, got %v", cfg.SentinelInterval)
	}
	if cfg.SentinelDir == "" {
		t.Fatal("expected sentinel dir default")
	}
}
