package gpio

import (
	"sync"

	"github.com/warthog618/go-gpiocdev"

	derrors "github.com/openroad/dashcam/errors"
)

// cdevBackend binds press/release callbacks directly to kernel edge
// events on the GPIO character device. No polling is needed; the monitor
// loop only stays resident while events arrive on the kernel's thread.
type cdevBackend struct {
	cfg Config

	mu   sync.Mutex
	line *gpiocdev.Line
}

// openCdev probes for a usable GPIO character device.
func openCdev(cfg Config) (Backend, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeBackendProbe, "opening gpio chip",
			derrors.WithCause(err), derrors.WithComponent("gpio"))
	}
	chip.Close()

	return &cdevBackend{cfg: cfg}, nil
}

// Name identifies the backend.
func (b *cdevBackend) Name() string {
	return "gpiocdev"
}

// Events reports that this backend delivers native edge events.
func (b *cdevBackend) Events() bool {
	return true
}

// Read is not supported; the line is owned by the event request.
func (b *cdevBackend) Read() (Level, error) {
	return LevelLow, ErrNotPollable
}

// Watch requests the line with both edges and binds the handler. The
// kernel serializes event delivery, so edges arrive in physical order.
func (b *cdevBackend) Watch(handler func(Edge)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.line != nil {
		return nil
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			switch evt.Type {
			case gpiocdev.LineEventFallingEdge:
				handler(EdgePress)
			case gpiocdev.LineEventRisingEdge:
				handler(EdgeRelease)
			}
		}),
	}
	if b.cfg.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(b.cfg.Debounce))
	}

	line, err := gpiocdev.RequestLine(b.cfg.Chip, b.cfg.Pin, opts...)
	if err != nil {
		return derrors.New(derrors.ErrCodePinConfig, "requesting line with edge events",
			derrors.WithCause(err), derrors.WithComponent("gpio"))
	}

	b.line = line
	return nil
}

// Close releases the line.
func (b *cdevBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	return err
}
