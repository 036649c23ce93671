package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/openroad/dashcam/logging"
)

// Coordinator tracks every long-running unit in the daemon and can stop
// them cooperatively with bounded wait. All flag and registry mutation
// happens under one mutex; Requested and ShouldContinue are cheap reads.
type Coordinator struct {
	config Config
	logger *logging.Logger

	requested atomic.Bool

	mu         sync.Mutex
	subsystems map[string]bool
	tasks      map[*Task]struct{}
	loops      map[*Loop]struct{}

	requestOnce sync.Once
	done        chan struct{}
	signalChan  chan os.Signal
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(config Config, logger *logging.Logger) *Coordinator {
	if config.CancelTimeout == 0 {
		config.CancelTimeout = DefaultConfig().CancelTimeout
	}
	if config.JoinTimeout == 0 {
		config.JoinTimeout = DefaultConfig().JoinTimeout
	}
	if config.Subsystems == nil {
		config.Subsystems = DefaultSubsystems()
	}
	if logger == nil {
		logger = logging.New()
	}

	subsystems := make(map[string]bool, len(config.Subsystems))
	for _, name := range config.Subsystems {
		subsystems[name] = true
	}

	return &Coordinator{
		config:     config,
		logger:     logger.WithComponent("shutdown"),
		subsystems: subsystems,
		tasks:      make(map[*Task]struct{}),
		loops:      make(map[*Loop]struct{}),
		done:       make(chan struct{}),
		signalChan: make(chan os.Signal, 1),
	}
}

// RequestShutdown flips the process-wide flag and every per-subsystem
// flag to "stop". Idempotent and irreversible; the first caller wins and
// subsequent callers are no-ops.
func (c *Coordinator) RequestShutdown() {
	c.requestOnce.Do(func() {
		c.mu.Lock()
		c.requested.Store(true)
		for name := range c.subsystems {
			c.subsystems[name] = false
		}
		c.mu.Unlock()

		c.logger.Info("shutdown_requested")
		close(c.done)
	})
}

// Requested reports whether shutdown has been requested. Never blocks.
func (c *Coordinator) Requested() bool {
	return c.requested.Load()
}

// Done returns a channel closed when shutdown has been requested.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// ShouldContinue reports whether the named subsystem may keep running.
// Unknown names continue until global shutdown is requested: fail-open
// for forward compatibility, fail-closed once shutdown starts.
func (c *Coordinator) ShouldContinue(name string) bool {
	if c.requested.Load() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cont, known := c.subsystems[name]
	if !known {
		return true
	}
	return cont
}

// HaltSubsystem stops one subsystem without shutting down the process.
// Like the global flag, a halted subsystem is never un-halted.
func (c *Coordinator) HaltSubsystem(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.subsystems[name]; known {
		c.subsystems[name] = false
	}
}

// RegisterTask derives a cancellable context from parent and tracks the
// unit under the given name. Registering after shutdown has been
// requested is legal: the unit's context is cancelled immediately.
func (c *Coordinator) RegisterTask(parent context.Context, name string) (context.Context, *Task) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	task := &Task{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.tasks[task] = struct{}{}
	c.mu.Unlock()

	if c.requested.Load() {
		cancel()
	}

	return ctx, task
}

// UnregisterTask removes a task from the tracked set. Called by units
// whose loop exits normally; safe to call for already-swept tasks.
func (c *Coordinator) UnregisterTask(task *Task) {
	if task == nil {
		return
	}
	c.mu.Lock()
	delete(c.tasks, task)
	c.mu.Unlock()
}

// RegisterLoop tracks a dedicated loop under the given name. As with
// tasks, registering after shutdown is legal and the loop is asked to
// stop immediately.
func (c *Coordinator) RegisterLoop(name string) *Loop {
	loop := &Loop{
		name: name,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	c.loops[loop] = struct{}{}
	c.mu.Unlock()

	if c.requested.Load() {
		loop.RequestStop()
	}

	return loop
}

// UnregisterLoop removes a loop from the tracked set.
func (c *Coordinator) UnregisterLoop(loop *Loop) {
	if loop == nil {
		return
	}
	c.mu.Lock()
	delete(c.loops, loop)
	c.mu.Unlock()
}

// CancelAllTasks cancels every registered task, then waits up to timeout
// for all of them to settle. Tasks that do not settle in time are logged
// and abandoned, never retried. The registry is cleared afterwards
// whether or not everything settled.
func (c *Coordinator) CancelAllTasks(timeout time.Duration) {
	if timeout <= 0 {
		timeout = c.config.CancelTimeout
	}

	c.mu.Lock()
	tasks := make([]*Task, 0, len(c.tasks))
	for task := range c.tasks {
		tasks = append(tasks, task)
	}
	c.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
	}

	deadline := time.Now().Add(timeout)
	for _, task := range tasks {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.logger.UnitAbandoned("task", task.name, timeout)
			continue
		}
		select {
		case <-task.Done():
		case <-time.After(remaining):
			c.logger.UnitAbandoned("task", task.name, timeout)
		}
	}

	c.mu.Lock()
	c.tasks = make(map[*Task]struct{})
	c.mu.Unlock()
}

// StopAllLoops asks every registered loop to stop and joins each with up
// to timeout. Loops exceeding the timeout are logged as not terminated
// but the call still returns; the registry is cleared afterwards.
func (c *Coordinator) StopAllLoops(timeout time.Duration) {
	if timeout <= 0 {
		timeout = c.config.JoinTimeout
	}

	c.mu.Lock()
	loops := make([]*Loop, 0, len(c.loops))
	for loop := range c.loops {
		loops = append(loops, loop)
	}
	c.mu.Unlock()

	for _, loop := range loops {
		loop.RequestStop()
	}

	for _, loop := range loops {
		select {
		case <-loop.Done():
		case <-time.After(timeout):
			c.logger.UnitAbandoned("loop", loop.name, timeout)
		}
	}

	c.mu.Lock()
	c.loops = make(map[*Loop]struct{})
	c.mu.Unlock()
}

// TrackedUnits returns the current number of registered tasks and loops.
func (c *Coordinator) TrackedUnits() (tasks, loops int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks), len(c.loops)
}

// HandleSignals binds SIGINT and SIGTERM to RequestShutdown.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signalChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-c.signalChan
		c.logger.Info("signal_received")
		c.RequestShutdown()
	}()
}

// Trigger manually injects a termination signal (useful for testing).
func (c *Coordinator) Trigger() {
	select {
	case c.signalChan <- syscall.SIGTERM:
	default:
	}
}
