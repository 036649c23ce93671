package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the zero-file defaults are usable.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Sequencer.HoldThreshold.Std() != 3*time.Second {
		t.Fatalf("expected 3s hold threshold, got %s", cfg.Sequencer.HoldThreshold.Std())
	}
	if cfg.Button.Pin != 3 {
		t.Fatalf("expected default pin 3, got %d", cfg.Button.Pin)
	}
	if cfg.Trips.Store != "memory" {
		t.Fatalf("expected memory trip store, got %q", cfg.Trips.Store)
	}
}

// TestLoadFile verifies TOML fields override defaults and absent fields
// keep them.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
[logging]
level = "debug"

[button]
pin = 17
poll_interval = "25ms"

[sequencer]
hold_threshold = "5s"
hold_steps = 5

[trips]
store = "sqlite"
path = "/var/lib/dashcam/trips.db"

[control]
enabled = true
listen = "0.0.0.0:9090"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	if cfg.Logging.LogLevel() != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.LogLevel())
	}
	if cfg.Button.Pin != 17 {
		t.Fatalf("expected pin 17, got %d", cfg.Button.Pin)
	}
	if got := cfg.Button.GPIOConfig().PollInterval; got != 25*time.Millisecond {
		t.Fatalf("expected 25ms poll interval, got %s", got)
	}
	if got := cfg.Sequencer.SequencerConfig().HoldThreshold; got != 5*time.Second {
		t.Fatalf("expected 5s hold threshold, got %s", got)
	}
	if cfg.Sequencer.SequencerConfig().HoldSteps != 5 {
		t.Fatalf("expected 5 hold steps, got %d", cfg.Sequencer.SequencerConfig().HoldSteps)
	}
	if cfg.Trips.Store != "sqlite" {
		t.Fatalf("expected sqlite store, got %q", cfg.Trips.Store)
	}
	if !cfg.Control.Enabled || cfg.Control.Listen != "0.0.0.0:9090" {
		t.Fatalf("expected control enabled on 0.0.0.0:9090, got %+v", cfg.Control)
	}

	// Absent sections keep defaults.
	if cfg.Shutdown.CoordinatorConfig().CancelTimeout != 5*time.Second {
		t.Fatalf("expected default cancel timeout, got %s",
			cfg.Shutdown.CoordinatorConfig().CancelTimeout)
	}
}

// TestLoadFile_BadTOML verifies a parse failure is reported and defaults
// are returned.
func TestLoadFile_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	if cfg.Trips.Store != "memory" {
		t.Fatal("expected defaults returned on parse failure")
	}
}

// TestLogLevel_UnknownFallsBack verifies unrecognized level names map to
// info.
func TestLogLevel_UnknownFallsBack(t *testing.T) {
	c := LoggingConfig{Level: "verbose"}
	if got := c.LogLevel(); got != "info" {
		t.Fatalf("expected info, got %q", got)
	}
}
