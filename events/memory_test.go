package events

import (
	"testing"
	"time"
)

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, err := bus.Subscribe(SubjectButtonPress)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := bus.Publish(SubjectButtonPress, []byte("edge")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case ev := <-sub.Events():
		if ev.Subject != SubjectButtonPress {
			t.Fatalf("expected subject %s, got %s", SubjectButtonPress, ev.Subject)
		}
		if string(ev.Data) != "edge" {
			t.Fatalf("expected payload 'edge', got %q", ev.Data)
		}
		if ev.At.IsZero() {
			t.Fatal("expected event timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBus_MultipleSubscribersReceiveAll(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub1, _ := bus.Subscribe(SubjectStateChanged)
	sub2, _ := bus.Subscribe(SubjectStateChanged)

	bus.Publish(SubjectStateChanged, []byte("holding"))

	for i, sub := range []Subscription{sub1, sub2} {
		select {
		case <-sub.Events():
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i+1)
		}
	}
}

func TestMemoryBus_SlowSubscriberDropsNotBlocks(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 1})
	defer bus.Close()

	sub, _ := bus.Subscribe(SubjectHoldStep)

	// Fill the buffer, then publish more; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(SubjectHoldStep, []byte("step"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	// Exactly one event should be buffered.
	select {
	case <-sub.Events():
	default:
		t.Fatal("expected one buffered event")
	}
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	sub, _ := bus.Subscribe(SubjectTripEnded)
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Channel should be closed.
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}

	// Publishing after unsubscribe should not panic.
	if err := bus.Publish(SubjectTripEnded, []byte("x")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Double unsubscribe is a no-op.
	if err := sub.Unsubscribe(); err != nil {
		t.Fatalf("expected no error on double unsubscribe, got %v", err)
	}
}

func TestMemoryBus_Close(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	sub, _ := bus.Subscribe(SubjectShutdown)

	if err := bus.Close(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected subscription channel closed after bus close")
	}

	if err := bus.Publish(SubjectShutdown, nil); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := bus.Subscribe(SubjectShutdown); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryBus_ConcurrentPublishUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(Config{BufferSize: 1})
	defer bus.Close()

	// Hammer unsubscribe against a publisher; a send racing a channel
	// close would panic the publisher goroutine.
	stop := make(chan struct{})
	published := make(chan struct{})
	go func() {
		defer close(published)
		for {
			select {
			case <-stop:
				return
			default:
				bus.Publish(SubjectStateChanged, []byte("s"))
			}
		}
	}()

	for i := 0; i < 200; i++ {
		sub, err := bus.Subscribe(SubjectStateChanged)
		if err != nil {
			t.Fatal(err)
		}
		if err := sub.Unsubscribe(); err != nil {
			t.Fatal(err)
		}
	}

	close(stop)
	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not exit cleanly")
	}
}

func TestMemoryBus_InvalidSubject(t *testing.T) {
	bus := NewMemoryBus(DefaultConfig())
	defer bus.Close()

	if err := bus.Publish("", nil); err != ErrInvalidSubject {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
	if _, err := bus.Subscribe(""); err != ErrInvalidSubject {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}
