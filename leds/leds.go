// Package leds drives the RGB indicator strip through the Linux LED
// class. Each indicator exposes three sysfs brightness files, one per
// color channel, named led<n>-red, led<n>-green and led<n>-blue.
package leds

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/sequencer"
)

// PatternBlink is the only supported animation pattern.
const PatternBlink = "blink"

// Config holds indicator strip configuration.
type Config struct {
	// SysfsDir is the LED class directory. Default: /sys/class/leds.
	SysfsDir string

	// Indicators is the number of addressable indicators. Default: 3.
	Indicators int
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SysfsDir:   "/sys/class/leds",
		Indicators: 3,
	}
}

// Panel drives the indicator strip. It satisfies the sequencer's LED
// feedback contract.
type Panel struct {
	cfg    Config
	logger *logging.Logger

	mu       sync.Mutex
	animStop chan struct{}
	animDone chan struct{}
}

var _ sequencer.LEDFeedback = (*Panel)(nil)

// NewPanel creates a panel.
func NewPanel(cfg Config, logger *logging.Logger) *Panel {
	def := DefaultConfig()
	if cfg.SysfsDir == "" {
		cfg.SysfsDir = def.SysfsDir
	}
	if cfg.Indicators <= 0 {
		cfg.Indicators = def.Indicators
	}
	if logger == nil {
		logger = logging.New()
	}
	return &Panel{
		cfg:    cfg,
		logger: logger.WithComponent("leds"),
	}
}

// SetColor sets one indicator, or every indicator when indicator is
// sequencer.AllIndicators. The first write error is returned but the
// remaining channels are still attempted.
func (p *Panel) SetColor(c sequencer.Color, indicator int) error {
	if indicator == sequencer.AllIndicators {
		var first error
		for i := 0; i < p.cfg.Indicators; i++ {
			if err := p.setOne(c, i); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	if indicator < 0 || indicator >= p.cfg.Indicators {
		return errors.New(errors.ErrCodeLEDWrite,
			fmt.Sprintf("indicator %d out of range", indicator),
			errors.WithComponent("leds"))
	}
	return p.setOne(c, indicator)
}

func (p *Panel) setOne(c sequencer.Color, indicator int) error {
	channels := []struct {
		name  string
		value uint8
	}{
		{"red", c.R},
		{"green", c.G},
		{"blue", c.B},
	}

	var first error
	for _, ch := range channels {
		path := filepath.Join(p.cfg.SysfsDir,
			fmt.Sprintf("led%d-%s", indicator, ch.name), "brightness")
		err := os.WriteFile(path, []byte(strconv.Itoa(int(ch.value))), 0o644)
		if err != nil && first == nil {
			first = errors.New(errors.ErrCodeLEDWrite, "writing "+path,
				errors.WithCause(err), errors.WithComponent("leds"))
		}
	}
	return first
}

// StartAnimation begins a repeating pattern on all indicators, replacing
// any running animation. count <= 0 repeats until stopped.
func (p *Panel) StartAnimation(pattern string, c sequencer.Color, count int, onTime, offTime time.Duration) error {
	if pattern != PatternBlink {
		return errors.New(errors.ErrCodeAnimation,
			"unknown pattern "+pattern, errors.WithComponent("leds"))
	}

	p.StopAnimation()

	p.mu.Lock()
	stop := make(chan struct{})
	done := make(chan struct{})
	p.animStop = stop
	p.animDone = done
	p.mu.Unlock()

	go p.blink(c, count, onTime, offTime, stop, done)
	return nil
}

// blink toggles all indicators between the color and dark.
func (p *Panel) blink(c sequencer.Color, count int, onTime, offTime time.Duration, stop, done chan struct{}) {
	defer close(done)
	defer p.SetColor(sequencer.ColorOff, sequencer.AllIndicators)

	for n := 0; count <= 0 || n < count; n++ {
		p.SetColor(c, sequencer.AllIndicators)
		select {
		case <-stop:
			return
		case <-time.After(onTime):
		}

		p.SetColor(sequencer.ColorOff, sequencer.AllIndicators)
		select {
		case <-stop:
			return
		case <-time.After(offTime):
		}
	}
}

// StopAnimation stops any running animation and leaves the indicators
// dark. Safe to call when nothing is animating.
func (p *Panel) StopAnimation() {
	p.mu.Lock()
	stop := p.animStop
	done := p.animDone
	p.animStop = nil
	p.animDone = nil
	p.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// RunShutdownSequence plays the closing sweep: each indicator lights red
// in turn, then the whole strip goes dark.
func (p *Panel) RunShutdownSequence(stepDelay time.Duration) error {
	p.StopAnimation()

	var first error
	for i := 0; i < p.cfg.Indicators; i++ {
		if err := p.setOne(sequencer.ColorRed, i); err != nil && first == nil {
			first = err
		}
		time.Sleep(stepDelay)
	}
	if err := p.SetColor(sequencer.ColorOff, sequencer.AllIndicators); err != nil && first == nil {
		first = err
	}
	return first
}
