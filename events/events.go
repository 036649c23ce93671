package events

import (
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed         = errors.New("bus closed")
	ErrInvalidSubject = errors.New("invalid subject")
)

// Well-known subjects published by the daemon.
const (
	SubjectButtonPress   = "button.press"
	SubjectButtonRelease = "button.release"
	SubjectButtonForce   = "button.force"
	SubjectStateChanged  = "sequencer.state"
	SubjectHoldStep      = "sequencer.hold_step"
	SubjectTripStarted   = "trip.started"
	SubjectTripEnded     = "trip.ended"
	SubjectShutdown      = "shutdown.requested"
)

// Event is a message received from the bus.
type Event struct {
	// Subject the event was published to.
	Subject string

	// Data is the event payload, JSON for structured events.
	Data []byte

	// At is when the event was published.
	At time.Time
}

// Bus provides pub/sub messaging inside the process.
type Bus interface {
	// Publish sends an event to all subscribers of a subject.
	// It never blocks; events to full subscribers are dropped.
	Publish(subject string, data []byte) error

	// Subscribe creates a subscription to a subject.
	// All subscribers receive all events for the subject.
	Subscribe(subject string) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription represents an active subscription.
type Subscription interface {
	// Events returns the channel for incoming events.
	// The channel is closed when the subscription ends.
	Events() <-chan *Event

	// Unsubscribe cancels the subscription.
	Unsubscribe() error
}

// Config holds bus configuration.
type Config struct {
	// BufferSize for subscription channels.
	// Default: 64
	BufferSize int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize: 64,
	}
}

// ValidateSubject checks if a subject is valid.
func ValidateSubject(subject string) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	return nil
}
