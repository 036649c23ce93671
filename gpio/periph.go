package gpio

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	derrors "github.com/openroad/dashcam/errors"
)

// periphBackend reads the pin through periph.io's memory-mapped or sysfs
// pin registry. It has no native edge delivery; the button monitor polls
// it and synthesizes edges from level transitions.
type periphBackend struct {
	pin gpio.PinIO
}

// openPeriph probes for a usable periph.io pin.
func openPeriph(cfg Config) (Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, derrors.New(derrors.ErrCodeBackendProbe, "periph host init failed",
			derrors.WithCause(err), derrors.WithComponent("gpio"))
	}

	pin := gpioreg.ByName(fmt.Sprintf("GPIO%d", cfg.Pin))
	if pin == nil {
		return nil, derrors.New(derrors.ErrCodePinConfig,
			fmt.Sprintf("GPIO%d not present", cfg.Pin),
			derrors.WithComponent("gpio"))
	}

	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, derrors.New(derrors.ErrCodePinConfig, "configuring pull-up input",
			derrors.WithCause(err), derrors.WithComponent("gpio"))
	}

	return &periphBackend{pin: pin}, nil
}

// Name identifies the backend.
func (b *periphBackend) Name() string {
	return "periph"
}

// Events reports that this backend is polled.
func (b *periphBackend) Events() bool {
	return false
}

// Read samples the pin level.
func (b *periphBackend) Read() (Level, error) {
	if b.pin.Read() == gpio.High {
		return LevelHigh, nil
	}
	return LevelLow, nil
}

// Watch is not supported on a polled backend.
func (b *periphBackend) Watch(func(Edge)) error {
	return ErrNotWatchable
}

// Close releases the pin.
func (b *periphBackend) Close() error {
	return b.pin.Halt()
}
