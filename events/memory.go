package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// MemoryBus implements Bus using in-memory channels.
type MemoryBus struct {
	config Config

	mu     sync.RWMutex
	subs   map[string][]*memorySub
	closed atomic.Bool
}

type memorySub struct {
	subject string
	ch      chan *Event
	closed  atomic.Bool
	bus     *MemoryBus
}

// NewMemoryBus creates a new in-memory event bus.
func NewMemoryBus(cfg Config) *MemoryBus {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}

	return &MemoryBus{
		config: cfg,
		subs:   make(map[string][]*memorySub),
	}
}

// Publish sends an event to all subscribers.
func (b *MemoryBus) Publish(subject string, data []byte) error {
	if err := ValidateSubject(subject); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrClosed
	}

	ev := &Event{
		Subject: subject,
		Data:    data,
		At:      time.Now(),
	}

	// Deliver while holding the read lock: channels are closed under the
	// write lock, so a send can never race a close. Sends are
	// non-blocking, so holding the lock across delivery is cheap.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[subject] {
		if !sub.closed.Load() {
			select {
			case sub.ch <- ev:
			default:
				// Buffer full, drop event
			}
		}
	}

	return nil
}

// Subscribe creates a subscription to a subject.
func (b *MemoryBus) Subscribe(subject string) (Subscription, error) {
	if err := ValidateSubject(subject); err != nil {
		return nil, err
	}
	if b.closed.Load() {
		return nil, ErrClosed
	}

	sub := &memorySub{
		subject: subject,
		ch:      make(chan *Event, b.config.BufferSize),
		bus:     b,
	}

	b.mu.Lock()
	b.subs[subject] = append(b.subs[subject], sub)
	b.mu.Unlock()

	return sub, nil
}

// Close shuts down the bus and all subscriptions.
func (b *MemoryBus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, subs := range b.subs {
		for _, sub := range subs {
			if !sub.closed.Swap(true) {
				close(sub.ch)
			}
		}
	}
	b.subs = make(map[string][]*memorySub)

	return nil
}

// Events returns the subscription's channel.
func (s *memorySub) Events() <-chan *Event {
	return s.ch
}

// Unsubscribe cancels the subscription.
func (s *memorySub) Unsubscribe() error {
	if s.closed.Swap(true) {
		return nil
	}

	b := s.bus
	b.mu.Lock()
	subs := b.subs[s.subject]
	for i, sub := range subs {
		if sub == s {
			b.subs[s.subject] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	// Close under the write lock so an in-flight Publish, which delivers
	// under the read lock, can never send on the closed channel.
	close(s.ch)
	b.mu.Unlock()

	return nil
}
