package gpio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openroad/dashcam/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func newTestSim(t *testing.T) (*Sim, string, chan Edge) {
	t.Helper()
	dir := t.TempDir()
	sim := NewSim(Config{
		SentinelDir:      dir,
		SentinelInterval: 10 * time.Millisecond,
	}, quietLogger())

	edges := make(chan Edge, 16)
	if err := sim.Watch(func(e Edge) { edges <- e }); err != nil {
		t.Fatalf("expected Watch to succeed, got %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	return sim, dir, edges
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
		t.Fatalf("creating sentinel: %v", err)
	}
}

func waitEdge(t *testing.T, edges chan Edge, want Edge) {
	t.Helper()
	select {
	case got := <-edges:
		if got != want {
			t.Fatalf("expected edge %s, got %s", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for edge %s", want)
	}
}

// TestSim_PressSentinelProducesPressEdge verifies the trigger file is
// consumed and mapped to a press edge.
func TestSim_PressSentinelProducesPressEdge(t *testing.T) {
	_, dir, edges := newTestSim(t)

	touch(t, dir, SentinelPress)
	waitEdge(t, edges, EdgePress)

	// The consumed marker must be deleted.
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := os.Stat(filepath.Join(dir, SentinelPress)); os.IsNotExist(err) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("expected press sentinel to be deleted after consumption")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestSim_PressReleaseCycle verifies a full press/release cycle and the
// implied level tracking.
func TestSim_PressReleaseCycle(t *testing.T) {
	sim, dir, edges := newTestSim(t)

	if level, _ := sim.Read(); level != LevelHigh {
		t.Fatal("expected released (high) level initially")
	}

	touch(t, dir, SentinelPress)
	waitEdge(t, edges, EdgePress)
	if level, _ := sim.Read(); level != LevelLow {
		t.Fatal("expected pressed (low) level after press")
	}

	touch(t, dir, SentinelRelease)
	waitEdge(t, edges, EdgeRelease)
	if level, _ := sim.Read(); level != LevelHigh {
		t.Fatal("expected released (high) level after release")
	}
}

// TestSim_ForceSentinel verifies the third sentinel maps to the force
// edge.
func TestSim_ForceSentinel(t *testing.T) {
	_, dir, edges := newTestSim(t)

	touch(t, dir, SentinelForce)
	waitEdge(t, edges, EdgeForce)
}

// TestSim_ConsumesFilesPresentBeforeWatch verifies the rescan picks up a
// sentinel created before monitoring started.
func TestSim_ConsumesFilesPresentBeforeWatch(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, SentinelPress)

	sim := NewSim(Config{
		SentinelDir:      dir,
		SentinelInterval: 10 * time.Millisecond,
	}, quietLogger())
	defer sim.Close()

	edges := make(chan Edge, 1)
	if err := sim.Watch(func(e Edge) { edges <- e }); err != nil {
		t.Fatalf("expected Watch to succeed, got %v", err)
	}

	waitEdge(t, edges, EdgePress)
}

// TestSim_WatchIsIdempotent verifies a second Watch only rebinds the
// handler.
func TestSim_WatchIsIdempotent(t *testing.T) {
	sim, dir, _ := newTestSim(t)

	edges := make(chan Edge, 1)
	if err := sim.Watch(func(e Edge) { edges <- e }); err != nil {
		t.Fatalf("expected second Watch to succeed, got %v", err)
	}

	touch(t, dir, SentinelPress)
	waitEdge(t, edges, EdgePress)
}

// TestSim_CloseIsIdempotent verifies Close can be called repeatedly.
func TestSim_CloseIsIdempotent(t *testing.T) {
	sim, _, _ := newTestSim(t)

	if err := sim.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := sim.Close(); err != nil {
		t.Fatalf("expected no error on double close, got %v", err)
	}
}
