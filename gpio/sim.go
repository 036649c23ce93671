package gpio

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openroad/dashcam/logging"
)

// Sim is the software-only backend driven by sentinel files. It is used
// when no hardware backend is usable or the platform is not the target
// embedded OS, and doubles as the test double for the whole input path.
type Sim struct {
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex
	handler func(Edge)
	level   Level

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSim creates a simulation backend. It never fails to construct.
func NewSim(cfg Config, logger *logging.Logger) *Sim {
	if logger == nil {
		logger = logging.New()
	}
	return &Sim{
		cfg:    cfg.withDefaults(),
		logger: logger.WithComponent("gpio-sim"),
		level:  LevelHigh, // pull-up: released
	}
}

// Name identifies the backend.
func (s *Sim) Name() string {
	return "sim"
}

// Events reports that the simulation delivers edges itself.
func (s *Sim) Events() bool {
	return true
}

// Read returns the level implied by the last consumed sentinel.
func (s *Sim) Read() (Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level, nil
}

// Watch binds the handler and starts the sentinel watcher. Idempotent;
// a second call only replaces the handler.
func (s *Sim) Watch(handler func(Edge)) error {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()

	if s.running.Swap(true) {
		return nil
	}

	if err := os.MkdirAll(s.cfg.SentinelDir, 0o755); err != nil {
		s.running.Store(false)
		return err
	}

	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run()
	return nil
}

// run watches for sentinel files until Close. fsnotify gives prompt
// wakeups; the ticker rescans for files created before the watch was in
// place or missed events.
func (s *Sim) run() {
	defer close(s.doneCh)

	var notify chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(s.cfg.SentinelDir); err == nil {
			notify = make(chan fsnotify.Event)
			go func() {
				for ev := range watcher.Events {
					select {
					case notify <- ev:
					case <-s.stopCh:
						return
					}
				}
			}()
		}
		defer watcher.Close()
	} else {
		s.logger.Warn("fsnotify unavailable, polling only", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ticker := time.NewTicker(s.cfg.SentinelInterval)
	defer ticker.Stop()

	// Consume anything already present at startup.
	s.consume()

	for {
		select {
		case <-s.stopCh:
			return
		case ev := <-notify:
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				s.consume()
			}
		case <-ticker.C:
			s.consume()
		}
	}
}

// consume checks each sentinel file, deletes it, and dispatches its
// edge. Force is checked first so an emergency request is never queued
// behind a pending press.
func (s *Sim) consume() {
	type sentinel struct {
		name string
		edge Edge
	}
	for _, sn := range []sentinel{
		{SentinelForce, EdgeForce},
		{SentinelPress, EdgePress},
		{SentinelRelease, EdgeRelease},
	} {
		path := filepath.Join(s.cfg.SentinelDir, sn.name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.logger.Warn("removing sentinel failed", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		s.dispatch(sn.edge)
	}
}

// dispatch updates the implied level and invokes the handler.
func (s *Sim) dispatch(edge Edge) {
	s.mu.Lock()
	switch edge {
	case EdgePress:
		s.level = LevelLow
	case EdgeRelease:
		s.level = LevelHigh
	}
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler(edge)
	}
}

// Close stops the watcher and waits briefly for the loop to exit.
func (s *Sim) Close() error {
	if !s.running.Swap(false) {
		return nil
	}
	close(s.stopCh)
	select {
	case <-s.doneCh:
	case <-time.After(2 * time.Second):
	}
	return nil
}
