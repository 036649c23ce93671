package sequencer

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/events"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/shutdown"
)

// State identifies where the press-and-hold ritual currently is.
type State int

const (
	// StateIdle means no hold session is in progress.
	StateIdle State = iota

	// StatePressed means the button went down but no escalation step
	// has elapsed yet.
	StatePressed

	// StateHolding means at least one escalation step has elapsed.
	StateHolding

	// StateCommitted means the hold survived every step; releasing the
	// button no longer has any effect.
	StateCommitted

	// StateShuttingDown means the commit sequence is executing.
	StateShuttingDown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateHolding:
		return "holding"
	case StateCommitted:
		return "committed"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// Color is an RGB triple for indicator feedback.
type Color struct {
	R, G, B uint8
}

// Standard feedback colors.
var (
	ColorOff   = Color{}
	ColorGreen = Color{G: 255}
	ColorAmber = Color{R: 255, G: 160}
	ColorRed   = Color{R: 255}
	ColorBlue  = Color{B: 255}
)

// AllIndicators addresses every indicator at once.
const AllIndicators = -1

// AudioNotifier plays spoken announcements and short tones. All calls
// are best-effort; implementations must never block the caller on
// playback.
type AudioNotifier interface {
	// Announce speaks (or displays) a message. Urgent announcements
	// preempt queued ones.
	Announce(message, title string, urgent bool)

	// Beep plays a short tone at the given frequency.
	Beep(freqHz int, duration time.Duration)
}

// LEDFeedback drives the indicator strip during the hold ritual and the
// closing sequence.
type LEDFeedback interface {
	// SetColor sets one indicator, or all of them when indicator is
	// AllIndicators.
	SetColor(c Color, indicator int) error

	// StartAnimation begins a repeating pattern such as "blink". It
	// replaces any running animation.
	StartAnimation(pattern string, c Color, count int, onTime, offTime time.Duration) error

	// StopAnimation stops any running animation and leaves the
	// indicators dark.
	StopAnimation()

	// RunShutdownSequence plays the closing sweep and blanks the strip.
	RunShutdownSequence(stepDelay time.Duration) error
}

// TripFinalizer closes out the active recording trip, if any.
type TripFinalizer interface {
	// ActiveTrip reports the identifier of the in-progress trip.
	ActiveTrip(ctx context.Context) (id string, active bool, err error)

	// EndTrip finalizes the active trip. The end position is optional;
	// hasPosition false means the recorder's last known waypoint is
	// used instead.
	EndTrip(ctx context.Context, lat, lon float64, hasPosition bool) (id string, err error)
}

// OSShutdownInvoker asks the operating system to power off.
type OSShutdownInvoker interface {
	ShutdownNow() error
}

// Config holds sequencer tuning.
type Config struct {
	// HoldThreshold is how long the button must stay held before the
	// shutdown commits. Default: 3s.
	HoldThreshold time.Duration

	// HoldSteps is the number of escalation steps announced during the
	// hold. Default: 3.
	HoldSteps int

	// StepColors are the indicator colors for successive hold steps.
	// When the hold has more steps than colors the last color repeats.
	StepColors []Color

	// LEDStepDelay is the per-indicator delay of the closing sweep.
	// Default: 200ms.
	LEDStepDelay time.Duration

	// GraceDelay runs after trip finalization, before the final
	// announcement. Default: 2s; negative disables the delay.
	GraceDelay time.Duration

	// FinalDelay runs after the final announcement, before the OS
	// invocation. Default: 1s; negative disables the delay.
	FinalDelay time.Duration

	// ForceDelay is the only pause on the force path, long enough for
	// the urgent announcement to start. Default: 500ms; negative
	// disables the delay.
	ForceDelay time.Duration

	// FinalizeTimeout bounds trip finalization. Default: 5s.
	FinalizeTimeout time.Duration
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HoldThreshold:   3 * time.Second,
		HoldSteps:       3,
		StepColors:      []Color{ColorGreen, ColorAmber, ColorRed},
		LEDStepDelay:    200 * time.Millisecond,
		GraceDelay:      2 * time.Second,
		FinalDelay:      time.Second,
		ForceDelay:      500 * time.Millisecond,
		FinalizeTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HoldThreshold <= 0 {
		c.HoldThreshold = def.HoldThreshold
	}
	if c.HoldSteps <= 0 {
		c.HoldSteps = def.HoldSteps
	}
	if len(c.StepColors) == 0 {
		c.StepColors = def.StepColors
	}
	if c.LEDStepDelay <= 0 {
		c.LEDStepDelay = def.LEDStepDelay
	}
	switch {
	case c.GraceDelay == 0:
		c.GraceDelay = def.GraceDelay
	case c.GraceDelay < 0:
		c.GraceDelay = 0
	}
	switch {
	case c.FinalDelay == 0:
		c.FinalDelay = def.FinalDelay
	case c.FinalDelay < 0:
		c.FinalDelay = 0
	}
	switch {
	case c.ForceDelay == 0:
		c.ForceDelay = def.ForceDelay
	case c.ForceDelay < 0:
		c.ForceDelay = 0
	}
	if c.FinalizeTimeout <= 0 {
		c.FinalizeTimeout = def.FinalizeTimeout
	}
	return c
}

// Tones used for press and cancel feedback.
const (
	pressToneHz  = 1200
	cancelToneHz = 600
	toneDuration = 150 * time.Millisecond
)

// Deps are the sequencer's collaborators. Coordinator is required;
// everything else may be nil and is replaced by a no-op.
type Deps struct {
	Audio       AudioNotifier
	LEDs        LEDFeedback
	Trips       TripFinalizer
	Invoker     OSShutdownInvoker
	Coordinator *shutdown.Coordinator
	Logger      *logging.Logger
	Bus         events.Bus
}

// Sequencer is the press-and-hold shutdown state machine.
type Sequencer struct {
	cfg     Config
	audio   AudioNotifier
	leds    LEDFeedback
	trips   TripFinalizer
	invoker OSShutdownInvoker
	coord   *shutdown.Coordinator
	logger  *logging.Logger
	bus     events.Bus

	mu        sync.Mutex
	state     State
	pressedAt time.Time
	step      int

	commitClaimed atomic.Bool
	invokeOnce    sync.Once
	closeOnce     sync.Once
	committed     chan struct{}
}

// New creates a sequencer. deps.Coordinator must be set.
func New(cfg Config, deps Deps) *Sequencer {
	if deps.Logger == nil {
		deps.Logger = logging.New()
	}
	if deps.Audio == nil {
		deps.Audio = noopAudio{}
	}
	if deps.LEDs == nil {
		deps.LEDs = noopLEDs{}
	}
	if deps.Invoker == nil {
		deps.Invoker = NewCommandInvoker()
	}
	return &Sequencer{
		cfg:       cfg.withDefaults(),
		audio:     deps.Audio,
		leds:      deps.LEDs,
		trips:     deps.Trips,
		invoker:   deps.Invoker,
		coord:     deps.Coordinator,
		logger:    deps.Logger.WithComponent("sequencer"),
		bus:       deps.Bus,
		committed: make(chan struct{}),
	}
}

// Start binds the sequencer to external shutdown requests: a signal (or
// any other caller of RequestShutdown) runs the same commit sequence a
// completed hold would.
func (s *Sequencer) Start() {
	go func() {
		<-s.coord.Done()
		s.commit("external")
	}()
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Committed returns a channel closed once the commit sequence has
// finished (including the OS invocation attempt).
func (s *Sequencer) Committed() <-chan struct{} {
	return s.committed
}

// OnPress starts a hold session. A press while a session is already in
// progress, or after commit, is ignored.
func (s *Sequencer) OnPress() {
	s.mu.Lock()
	if s.state >= StateCommitted || !s.pressedAt.IsZero() {
		s.mu.Unlock()
		return
	}
	start := time.Now()
	s.pressedAt = start
	s.state = StatePressed
	s.step = 0
	s.mu.Unlock()

	s.logger.Info("hold_started")
	s.audio.Beep(pressToneHz, toneDuration)
	s.publishState(StatePressed)

	go s.holdLoop(start)
}

// OnRelease cancels the hold session if the commit point has not been
// reached. After commit the release is ignored.
func (s *Sequencer) OnRelease() {
	s.mu.Lock()
	if s.state >= StateCommitted || s.pressedAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.pressedAt = time.Time{}
	s.state = StateIdle
	s.step = 0
	s.mu.Unlock()

	s.logger.Info("hold_cancelled")
	s.leds.StopAnimation()
	if err := s.leds.SetColor(ColorOff, AllIndicators); err != nil {
		s.logger.Warn("led_reset_failed", map[string]interface{}{"error": err.Error()})
	}
	s.audio.Beep(cancelToneHz, toneDuration)
	s.publishState(StateIdle)
}

// OnForce handles the simulation protocol's immediate-shutdown request.
func (s *Sequencer) OnForce() {
	s.ForceShutdown()
}

// holdLoop escalates feedback once per step while the session that
// started at start is still live, then commits. The session is live as
// long as pressedAt still equals start: a release zeroes it and a new
// press replaces it, either way this loop stands down.
func (s *Sequencer) holdLoop(start time.Time) {
	defer s.recovered("hold")

	stepDur := s.cfg.HoldThreshold / time.Duration(s.cfg.HoldSteps)

	for k := 1; k <= s.cfg.HoldSteps; k++ {
		time.Sleep(stepDur)

		s.mu.Lock()
		if s.state >= StateCommitted || s.pressedAt != start {
			s.mu.Unlock()
			return
		}
		s.state = StateHolding
		s.step = k
		s.mu.Unlock()

		s.logger.HoldStep(k, s.cfg.HoldSteps)
		if err := s.leds.SetColor(s.stepColor(k), k-1); err != nil {
			s.logger.Warn("led_step_failed", map[string]interface{}{
				"step":  k,
				"error": err.Error(),
			})
		}
		if s.bus != nil {
			s.bus.Publish(events.SubjectHoldStep, []byte(strconv.Itoa(k)))
		}
	}

	s.mu.Lock()
	if s.state >= StateCommitted || s.pressedAt != start {
		s.mu.Unlock()
		return
	}
	s.state = StateCommitted
	s.mu.Unlock()

	s.logger.Info("hold_committed")
	s.publishState(StateCommitted)
	s.commit("button")
}

// stepColor returns the feedback color for hold step k (1-based).
func (s *Sequencer) stepColor(k int) Color {
	colors := s.cfg.StepColors
	if k-1 < len(colors) {
		return colors[k-1]
	}
	return colors[len(colors)-1]
}

// Shutdown runs the full commit sequence as if a hold had completed.
// Used by the control channel and other non-button triggers. Returns
// once the sequence has finished; concurrent and repeated calls beyond
// the first return immediately.
func (s *Sequencer) Shutdown() {
	s.commit("requested")
}

// ForceShutdown skips the ritual: one urgent announcement, a short
// pause, then cooperative flags and the OS invocation. No LED sequence,
// no trip finalization, no grace delays.
func (s *Sequencer) ForceShutdown() {
	s.mu.Lock()
	if s.state == StateShuttingDown {
		s.mu.Unlock()
		return
	}
	s.state = StateShuttingDown
	s.mu.Unlock()

	// Claim the commit latch so a later completed hold does not start
	// the slow sequence underneath the force path.
	s.commitClaimed.Store(true)

	s.logger.Warn("force_shutdown")
	s.publishState(StateShuttingDown)
	s.audio.Announce("Immediate shutdown requested.", "Dashcam", true)
	time.Sleep(s.cfg.ForceDelay)

	s.coord.RequestShutdown()
	s.invoke()
	s.closeOnce.Do(func() { close(s.committed) })
}

// commit runs the sequence at most once across all trigger sources.
// The first trigger claims the latch; later triggers return immediately
// without waiting for the sequence to finish.
func (s *Sequencer) commit(trigger string) {
	if s.commitClaimed.Swap(true) {
		return
	}
	s.runCommitSequence(trigger)
	s.closeOnce.Do(func() { close(s.committed) })
}

// runCommitSequence executes the ordered shutdown steps. Steps are
// best-effort: a failure is logged and the next step runs anyway.
func (s *Sequencer) runCommitSequence(trigger string) {
	s.mu.Lock()
	s.state = StateShuttingDown
	s.mu.Unlock()

	s.logger.Info("shutdown_committed", map[string]interface{}{"trigger": trigger})
	s.publishState(StateShuttingDown)
	if s.bus != nil {
		s.bus.Publish(events.SubjectShutdown, []byte(trigger))
	}

	s.runStep("announce-intent", func() error {
		s.audio.Announce("Shutting down. Finishing the current trip.", "Dashcam", false)
		return nil
	})
	s.runStep("request-shutdown", func() error {
		s.coord.RequestShutdown()
		return nil
	})
	s.runStep("led-sequence", func() error {
		return s.leds.RunShutdownSequence(s.cfg.LEDStepDelay)
	})
	s.runStep("cancel-tasks", func() error {
		s.coord.CancelAllTasks(0)
		return nil
	})
	s.runStep("stop-loops", func() error {
		s.coord.StopAllLoops(0)
		return nil
	})
	s.runStep("finalize-trip", s.finalizeTrip)
	s.runStep("grace-delay", func() error {
		time.Sleep(s.cfg.GraceDelay)
		return nil
	})
	s.runStep("announce-final", func() error {
		s.audio.Announce("Powering off now.", "Dashcam", true)
		return nil
	})
	s.runStep("final-delay", func() error {
		time.Sleep(s.cfg.FinalDelay)
		return nil
	})

	s.invoke()
}

// runStep executes one commit step, logging its outcome and containing
// panics so the remaining steps still run.
func (s *Sequencer) runStep(name string, fn func() error) {
	defer s.recovered(name)
	s.logger.ShutdownMilestone(name, fn())
}

// finalizeTrip ends the active trip, if there is one and a finalizer is
// wired.
func (s *Sequencer) finalizeTrip() error {
	if s.trips == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FinalizeTimeout)
	defer cancel()

	_, active, err := s.trips.ActiveTrip(ctx)
	if err != nil {
		return errors.New(errors.ErrCodeTripEnd, "checking active trip", errors.WithCause(err))
	}
	if !active {
		s.logger.Info("no_active_trip")
		return nil
	}

	id, err := s.trips.EndTrip(ctx, 0, 0, false)
	if err != nil {
		return errors.New(errors.ErrCodeTripEnd, "ending trip", errors.WithCause(err))
	}

	if s.bus != nil {
		s.bus.Publish(events.SubjectTripEnded, []byte(id))
	}
	s.audio.Announce("Trip saved.", "Dashcam", false)
	return nil
}

// invoke asks the OS to power off, at most once per process. The
// platform fallback command runs only when the primary invoker errors.
func (s *Sequencer) invoke() {
	s.invokeOnce.Do(func() {
		err := s.invoker.ShutdownNow()
		s.logger.ShutdownMilestone("os-shutdown", err)
		if err == nil {
			return
		}

		ferr := fallbackShutdown()
		s.logger.ShutdownMilestone("os-shutdown-fallback", ferr)
		if ferr != nil {
			s.logger.Error("shutdown_invocation_failed", map[string]interface{}{
				"code":     string(errors.ErrCodeShutdownFallback),
				"primary":  err.Error(),
				"fallback": ferr.Error(),
			})
		}
	})
}

// publishState emits a state transition for observers.
func (s *Sequencer) publishState(state State) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.SubjectStateChanged, []byte(state.String()))
}

// recovered contains a panic from a collaborator. Before the commit
// point the machine returns to Idle so a later press starts fresh.
func (s *Sequencer) recovered(where string) {
	r := recover()
	if r == nil {
		return
	}
	s.logger.Error("panic_recovered", map[string]interface{}{
		"where": where,
		"panic": r,
	})

	s.mu.Lock()
	if s.state < StateCommitted {
		s.state = StateIdle
		s.pressedAt = time.Time{}
		s.step = 0
	}
	s.mu.Unlock()
}

// noopAudio and noopLEDs stand in when no hardware is wired.
type noopAudio struct{}

func (noopAudio) Announce(string, string, bool) {}
func (noopAudio) Beep(int, time.Duration)       {}

type noopLEDs struct{}

func (noopLEDs) SetColor(Color, int) error { return nil }
func (noopLEDs) StartAnimation(string, Color, int, time.Duration, time.Duration) error {
	return nil
}
func (noopLEDs) StopAnimation()                          {}
func (noopLEDs) RunShutdownSequence(time.Duration) error { return nil }
