package gpio

import (
	"errors"
	"os"
	"time"
)

// Common errors.
var (
	// ErrNotPollable is returned by Read on backends that only deliver
	// native edge events.
	ErrNotPollable = errors.New("backend does not support level reads")

	// ErrNotWatchable is returned by Watch on backends that only support
	// polled level reads.
	ErrNotWatchable = errors.New("backend does not deliver edge events")

	// ErrClosed is returned for operations on a closed backend.
	ErrClosed = errors.New("backend closed")
)

// Level is the physical level of the button pin. The pin is configured
// with a pull-up, so the released level is high and a press pulls low.
type Level int

const (
	LevelLow Level = iota
	LevelHigh
)

// String returns the string representation of the level.
func (l Level) String() string {
	if l == LevelHigh {
		return "high"
	}
	return "low"
}

// Edge is a normalized input transition.
type Edge int

const (
	// EdgePress is the falling edge of the button pin.
	EdgePress Edge = iota

	// EdgeRelease is the rising edge of the button pin.
	EdgeRelease

	// EdgeForce requests an immediate shutdown bypassing the hold
	// ritual. Only the simulation backend produces it.
	EdgeForce
)

// String returns the string representation of the edge.
func (e Edge) String() string {
	switch e {
	case EdgePress:
		return "press"
	case EdgeRelease:
		return "release"
	case EdgeForce:
		return "force"
	default:
		return "unknown"
	}
}

// Backend is a normalized view of the button input pin.
type Backend interface {
	// Name identifies the backend implementation.
	Name() string

	// Events reports whether the backend delivers native edge events.
	// Event backends are driven through Watch; polled backends are
	// driven through Read.
	Events() bool

	// Read returns the current pin level (polled backends only).
	Read() (Level, error)

	// Watch binds the edge handler and starts delivery (event backends
	// only). Edges are delivered serially, in physical order.
	Watch(handler func(Edge)) error

	// Close releases the pin or stops delivery.
	Close() error
}

// Sentinel file names for the simulation protocol.
const (
	SentinelPress   = "trigger_shutdown"
	SentinelRelease = "release_shutdown"
	SentinelForce   = "trigger_immediate_shutdown"
)

// Config configures backend selection and the chosen backend.
type Config struct {
	// Chip is the GPIO character device name. Default: "gpiochip0"
	Chip string

	// Pin is the BCM pin number of the button. Default: 3, the pin that
	// doubles as a wake source on the Pi.
	Pin int

	// PollInterval is how often polled backends sample the pin.
	// Default: 50ms
	PollInterval time.Duration

	// Debounce is the hardware debounce period requested from event
	// backends that support one. Default: 10ms
	Debounce time.Duration

	// SentinelDir is the directory watched in simulation mode.
	// Default: the OS temp directory.
	SentinelDir string

	// SentinelInterval is the rescan period in simulation mode.
	// Default: 500ms
	SentinelInterval time.Duration
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Chip:             "gpiochip0",
		Pin:              3,
		PollInterval:     50 * time.Millisecond,
		Debounce:         10 * time.Millisecond,
		SentinelDir:      os.TempDir(),
		SentinelInterval: 500 * time.Millisecond,
	}
}

// withDefaults fills zero values from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Chip == "" {
		c.Chip = def.Chip
	}
	if c.Pin == 0 {
		c.Pin = def.Pin
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.Debounce < 0 {
		c.Debounce = 0
	}
	if c.SentinelDir == "" {
		c.SentinelDir = def.SentinelDir
	}
	if c.SentinelInterval <= 0 {
		c.SentinelInterval = def.SentinelInterval
	}
	return c
}
