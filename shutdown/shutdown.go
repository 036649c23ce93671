package shutdown

import (
	"sync"
	"time"
)

// Subsystem names tracked by the coordinator. ShouldContinue accepts
// arbitrary names, but these are the ones the daemon registers.
const (
	SubsystemCapture   = "capture"
	SubsystemStreaming = "streaming"
	SubsystemLocation  = "location"
	SubsystemControl   = "control-channel"
	SubsystemButton    = "button-monitor"
)

// DefaultSubsystems returns the subsystem set a stock daemon tracks.
func DefaultSubsystems() []string {
	return []string{
		SubsystemCapture,
		SubsystemStreaming,
		SubsystemLocation,
		SubsystemControl,
		SubsystemButton,
	}
}

// Task is a cancellable goroutine unit tracked by the coordinator.
// The owning goroutine must call Finish when it exits; the coordinator
// holds only weak membership and tolerates tasks finishing on their own
// before a sweep runs.
type Task struct {
	name   string
	cancel func()
	done   chan struct{}
	once   sync.Once
}

// Name returns the human-readable task name.
func (t *Task) Name() string {
	return t.name
}

// Finish marks the task as settled. Safe to call more than once.
func (t *Task) Finish() {
	t.once.Do(func() {
		close(t.done)
	})
}

// Done is closed when the task has settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Loop is a dedicated long-running loop (the Go analogue of an owned
// monitoring thread). Stopping is a request, never a kill: the loop is
// asked to stop via its stop channel and joined via its done channel.
type Loop struct {
	name     string
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	doneOnce sync.Once
}

// Name returns the human-readable loop name.
func (l *Loop) Name() string {
	return l.name
}

// StopRequested is closed when the loop has been asked to stop.
func (l *Loop) StopRequested() <-chan struct{} {
	return l.stop
}

// Finish marks the loop as terminated. Safe to call more than once.
func (l *Loop) Finish() {
	l.doneOnce.Do(func() {
		close(l.done)
	})
}

// Done is closed when the loop has terminated.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// RequestStop asks the loop to exit. Idempotent.
func (l *Loop) RequestStop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Config configures the coordinator.
type Config struct {
	// CancelTimeout bounds how long CancelAllTasks waits overall.
	// Default: 5 seconds
	CancelTimeout time.Duration

	// JoinTimeout bounds how long StopAllLoops waits per loop.
	// Default: 2 seconds
	JoinTimeout time.Duration

	// Subsystems to track continue-flags for. Default: DefaultSubsystems.
	Subsystems []string
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CancelTimeout: 5 * time.Second,
		JoinTimeout:   2 * time.Second,
		Subsystems:    DefaultSubsystems(),
	}
}
