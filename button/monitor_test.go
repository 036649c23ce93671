package button

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/openroad/dashcam/gpio"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/shutdown"
)

// recordingHandler captures forwarded edges.
type recordingHandler struct {
	mu       sync.Mutex
	presses  int
	releases int
	forces   int
	notify   chan string
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{notify: make(chan string, 16)}
}

func (h *recordingHandler) OnPress() {
	h.mu.Lock()
	h.presses++
	h.mu.Unlock()
	h.notify <- "press"
}

func (h *recordingHandler) OnRelease() {
	h.mu.Lock()
	h.releases++
	h.mu.Unlock()
	h.notify <- "release"
}

func (h *recordingHandler) OnForce() {
	h.mu.Lock()
	h.forces++
	h.mu.Unlock()
	h.notify <- "force"
}

func (h *recordingHandler) wait(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-h.notify:
		if got != want {
			t.Fatalf("expected %s edge, got %s", want, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s edge", want)
	}
}

// scriptedBackend is a polled backend whose levels are fed by the test.
type scriptedBackend struct {
	mu     sync.Mutex
	level  gpio.Level
	err    error
	closed bool
}

func (b *scriptedBackend) Name() string  { return "scripted" }
func (b *scriptedBackend) Events() bool  { return false }
func (b *scriptedBackend) Close() error  { b.mu.Lock(); b.closed = true; b.mu.Unlock(); return nil }
func (b *scriptedBackend) Watch(func(gpio.Edge)) error {
	return gpio.ErrNotWatchable
}

func (b *scriptedBackend) Read() (gpio.Level, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level, b.err
}

func (b *scriptedBackend) set(level gpio.Level) {
	b.mu.Lock()
	b.level = level
	b.mu.Unlock()
}

func quietLogger() *logging.Logger {
	logger := logging.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func testCoordinator() *shutdown.Coordinator {
	return shutdown.NewCoordinator(shutdown.DefaultConfig(), quietLogger())
}

// TestMonitor_StartIsIdempotent verifies a second Start returns false.
func TestMonitor_StartIsIdempotent(t *testing.T) {
	backend := &scriptedBackend{level: gpio.LevelHigh}
	m := New(gpio.Config{PollInterval: 5 * time.Millisecond}, backend,
		newRecordingHandler(), testCoordinator(), quietLogger(), nil)

	if !m.Start() {
		t.Fatal("expected first Start to return true")
	}
	if m.Start() {
		t.Fatal("expected second Start to return false")
	}

	if !m.Stop() {
		t.Fatal("expected Stop to return true")
	}
	if m.Stop() {
		t.Fatal("expected second Stop to return false")
	}
}

// TestMonitor_PolledEdgeSynthesis verifies press and release edges are
// synthesized from level transitions.
func TestMonitor_PolledEdgeSynthesis(t *testing.T) {
	backend := &scriptedBackend{level: gpio.LevelHigh}
	handler := newRecordingHandler()
	m := New(gpio.Config{PollInterval: 5 * time.Millisecond}, backend,
		handler, testCoordinator(), quietLogger(), nil)

	m.Start()
	defer m.Stop()

	backend.set(gpio.LevelLow)
	handler.wait(t, "press")

	backend.set(gpio.LevelHigh)
	handler.wait(t, "release")
}

// TestMonitor_OneEdgePerTransition verifies a held level does not repeat
// the callback: the last observed level is remembered.
func TestMonitor_OneEdgePerTransition(t *testing.T) {
	backend := &scriptedBackend{level: gpio.LevelHigh}
	handler := newRecordingHandler()
	m := New(gpio.Config{PollInterval: 2 * time.Millisecond}, backend,
		handler, testCoordinator(), quietLogger(), nil)

	m.Start()
	defer m.Stop()

	backend.set(gpio.LevelLow)
	handler.wait(t, "press")

	// Hold for many poll intervals.
	time.Sleep(50 * time.Millisecond)

	handler.mu.Lock()
	presses := handler.presses
	handler.mu.Unlock()
	if presses != 1 {
		t.Fatalf("expected exactly 1 press edge for one transition, got %d", presses)
	}
}

// TestMonitor_SimulationModeOperatesWithoutHardware verifies that with
// no hardware backend available, Start still returns true and edges
// flow via the sentinel protocol.
func TestMonitor_SimulationModeOperatesWithoutHardware(t *testing.T) {
	dir := t.TempDir()
	cfg := gpio.Config{
		SentinelDir:      dir,
		SentinelInterval: 10 * time.Millisecond,
	}
	handler := newRecordingHandler()
	m := New(cfg, gpio.NewSim(cfg, quietLogger()), handler,
		testCoordinator(), quietLogger(), nil)

	if !m.Start() {
		t.Fatal("expected Start to return true in simulation mode")
	}
	defer m.Stop()

	if err := os.WriteFile(filepath.Join(dir, gpio.SentinelPress), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	handler.wait(t, "press")

	if err := os.WriteFile(filepath.Join(dir, gpio.SentinelForce), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	handler.wait(t, "force")
}

// TestMonitor_FallsBackToSimOnRuntimeFailure verifies a backend that
// starts failing mid-run is replaced by the simulation backend instead
// of terminating monitoring.
func TestMonitor_FallsBackToSimOnRuntimeFailure(t *testing.T) {
	dir := t.TempDir()
	backend := &scriptedBackend{level: gpio.LevelHigh}
	handler := newRecordingHandler()
	cfg := gpio.Config{
		PollInterval:     5 * time.Millisecond,
		SentinelDir:      dir,
		SentinelInterval: 10 * time.Millisecond,
	}
	m := New(cfg, backend, handler, testCoordinator(), quietLogger(), nil)

	m.Start()
	defer m.Stop()

	// Break the hardware backend.
	backend.mu.Lock()
	backend.err = gpio.ErrClosed
	backend.mu.Unlock()

	// Edges must now arrive through the sentinel protocol.
	deadline := time.Now().Add(2 * time.Second)
	for {
		os.WriteFile(filepath.Join(dir, gpio.SentinelPress), nil, 0o644)
		select {
		case got := <-handler.notify:
			if got == "press" {
				return
			}
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("expected monitor to fall back to simulation mode")
		}
	}
}

// TestMonitor_NoFallbackDuringStop verifies a backend error observed
// once the loop is already stopping does not start a simulation watcher
// that nothing would ever close.
func TestMonitor_NoFallbackDuringStop(t *testing.T) {
	backend := &scriptedBackend{level: gpio.LevelHigh}
	cfg := gpio.Config{
		PollInterval:     5 * time.Millisecond,
		SentinelDir:      t.TempDir(),
		SentinelInterval: 10 * time.Millisecond,
	}
	m := New(cfg, backend, newRecordingHandler(), testCoordinator(), quietLogger(), nil)

	m.Start()
	m.Stop()

	// The closed backend reads as an error after Stop; that must not be
	// treated as a runtime failure to degrade around.
	if sim := m.fallbackToSim(&scriptedBackend{err: gpio.ErrClosed}, gpio.ErrClosed); sim != nil {
		sim.Close()
		t.Fatal("expected no simulation fallback after stop was requested")
	}
	if m.Backend() != backend {
		t.Fatal("expected the original backend to remain installed")
	}
}

// TestMonitor_LoopStopsOnCoordinatorShutdown verifies the loop observes
// the cooperative flag and the registry drains cleanly.
func TestMonitor_LoopStopsOnCoordinatorShutdown(t *testing.T) {
	backend := &scriptedBackend{level: gpio.LevelHigh}
	coord := testCoordinator()
	m := New(gpio.Config{PollInterval: 5 * time.Millisecond}, backend,
		newRecordingHandler(), coord, quietLogger(), nil)

	m.Start()

	coord.RequestShutdown()
	coord.StopAllLoops(2 * time.Second)

	_, loops := coord.TrackedUnits()
	if loops != 0 {
		t.Fatalf("expected loop registry drained, got %d", loops)
	}
}
