package button

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/openroad/dashcam/events"
	"github.com/openroad/dashcam/gpio"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/shutdown"
)

// Handler receives normalized button edges. Implemented by the shutdown
// sequencer; the monitor never looks inside.
type Handler interface {
	// OnPress is invoked on the press edge.
	OnPress()

	// OnRelease is invoked on the release edge.
	OnRelease()

	// OnForce is invoked when the simulation protocol requests an
	// immediate shutdown bypassing the hold ritual.
	OnForce()
}

// residentInterval is how often an event-driven monitoring loop wakes up
// to check whether it should still be running.
const residentInterval = 500 * time.Millisecond

// Monitor produces press/release edges from the selected backend.
type Monitor struct {
	cfg     gpio.Config
	handler Handler
	coord   *shutdown.Coordinator
	logger  *logging.Logger
	bus     events.Bus

	running atomic.Bool

	mu        sync.Mutex
	backend   gpio.Backend
	loop      *shutdown.Loop
	lastLevel gpio.Level
}

// New creates a monitor. backend may be nil, in which case the platform
// is probed on Start. bus may be nil; edges are then only delivered to
// the handler.
func New(cfg gpio.Config, backend gpio.Backend, handler Handler, coord *shutdown.Coordinator, logger *logging.Logger, bus events.Bus) *Monitor {
	if logger == nil {
		logger = logging.New()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = gpio.DefaultConfig().PollInterval
	}
	return &Monitor{
		cfg:     cfg,
		handler: handler,
		coord:   coord,
		logger:  logger.WithComponent("button"),
		bus:     bus,
		backend: backend,
	}
}

// Backend returns the active backend, probing if none was injected.
func (m *Monitor) Backend() gpio.Backend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend
}

// Start begins monitoring on a dedicated loop registered with the
// coordinator. Idempotent: returns false if already running.
func (m *Monitor) Start() bool {
	if m.running.Swap(true) {
		return false
	}

	m.mu.Lock()
	if m.backend == nil {
		m.backend = gpio.Detect(m.cfg, m.logger)
	}
	m.loop = m.coord.RegisterLoop(shutdown.SubsystemButton)
	m.mu.Unlock()

	go m.run()
	return true
}

// Stop signals the loop to exit and joins it with a short timeout.
// Idempotent: returns false if not running.
func (m *Monitor) Stop() bool {
	if !m.running.Swap(false) {
		return false
	}

	m.mu.Lock()
	loop := m.loop
	backend := m.backend
	m.mu.Unlock()

	// Stop the loop before the backend: a poll tick that hits the closed
	// backend first would read it as a runtime failure and fall back to
	// simulation mid-teardown.
	loop.RequestStop()
	if backend != nil {
		backend.Close()
	}
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		m.logger.UnitAbandoned("loop", shutdown.SubsystemButton, 2*time.Second)
	}
	return true
}

// run is the monitoring loop. It either polls the backend for level
// transitions or, for event backends, binds the callbacks and stays
// resident so the subsystem remains accounted for.
func (m *Monitor) run() {
	m.mu.Lock()
	loop := m.loop
	backend := m.backend
	m.mu.Unlock()

	defer loop.Finish()
	defer m.coord.UnregisterLoop(loop)

	if backend.Events() {
		if err := backend.Watch(m.dispatch); err != nil {
			backend = m.fallbackToSim(backend, err)
			if backend == nil {
				return
			}
		}
		m.stayResident(loop)
		return
	}

	m.pollLoop(loop, backend)
}

// stayResident keeps the loop alive while an event backend delivers
// edges on its own thread.
func (m *Monitor) stayResident(loop *shutdown.Loop) {
	ticker := time.NewTicker(residentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-loop.StopRequested():
			return
		case <-ticker.C:
			if !m.coord.ShouldContinue(shutdown.SubsystemButton) {
				return
			}
		}
	}
}

// pollLoop samples the pin and synthesizes edges from level changes.
// A transition is reported exactly once: the last observed level is
// remembered and a callback fires only when the new level differs.
func (m *Monitor) pollLoop(loop *shutdown.Loop, backend gpio.Backend) {
	level, err := backend.Read()
	if err != nil {
		backend = m.fallbackToSim(backend, err)
		if backend == nil {
			return
		}
		m.stayResident(loop)
		return
	}

	m.mu.Lock()
	m.lastLevel = level
	m.mu.Unlock()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-loop.StopRequested():
			return
		case <-ticker.C:
			if !m.coord.ShouldContinue(shutdown.SubsystemButton) {
				return
			}

			level, err := backend.Read()
			if err != nil {
				backend = m.fallbackToSim(backend, err)
				if backend == nil {
					return
				}
				m.stayResident(loop)
				return
			}

			m.mu.Lock()
			changed := level != m.lastLevel
			m.lastLevel = level
			m.mu.Unlock()

			if !changed {
				continue
			}
			if level == gpio.LevelLow {
				m.dispatch(gpio.EdgePress)
			} else {
				m.dispatch(gpio.EdgeRelease)
			}
		}
	}
}

// fallbackToSim replaces a failed backend with the simulation backend so
// monitoring continues in degraded mode. Returns nil if the loop is
// already stopping, or if even the simulation cannot start.
func (m *Monitor) fallbackToSim(failed gpio.Backend, cause error) gpio.Backend {
	m.mu.Lock()
	loop := m.loop
	m.mu.Unlock()

	// A read error during teardown is the closed backend, not a failure
	// to degrade around; starting a sim watcher here would leak it.
	select {
	case <-loop.StopRequested():
		failed.Close()
		return nil
	default:
	}

	m.logger.Fallback(failed.Name(), "sim", cause)
	failed.Close()

	sim := gpio.NewSim(m.cfg, m.logger)
	if err := sim.Watch(m.dispatch); err != nil {
		m.logger.Error("simulation backend failed to start", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	m.mu.Lock()
	m.backend = sim
	m.mu.Unlock()
	return sim
}

// dispatch forwards one edge to the handler and publishes it for
// observers. The monitor holds no shutdown policy.
func (m *Monitor) dispatch(edge gpio.Edge) {
	m.mu.Lock()
	backend := m.backend
	m.mu.Unlock()

	backendName := "unknown"
	if backend != nil {
		backendName = backend.Name()
	}
	m.logger.EdgeDetected(edge.String(), backendName)

	if m.bus != nil {
		switch edge {
		case gpio.EdgePress:
			m.bus.Publish(events.SubjectButtonPress, nil)
		case gpio.EdgeRelease:
			m.bus.Publish(events.SubjectButtonRelease, nil)
		case gpio.EdgeForce:
			m.bus.Publish(events.SubjectButtonForce, nil)
		}
	}

	switch edge {
	case gpio.EdgePress:
		m.handler.OnPress()
	case gpio.EdgeRelease:
		m.handler.OnRelease()
	case gpio.EdgeForce:
		m.handler.OnForce()
	}
}
