package leds

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/sequencer"
)

func quietLogger() *logging.Logger {
	logger := logging.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

// fakeSysfs builds the LED class layout for n indicators in a temp dir.
func fakeSysfs(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		for _, ch := range []string{"red", "green", "blue"} {
			led := filepath.Join(dir, fmt.Sprintf("led%d-%s", i, ch))
			if err := os.MkdirAll(led, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(led, "brightness"), []byte("0"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}

func brightness(t *testing.T, dir string, indicator int, channel string) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("led%d-%s", indicator, channel), "brightness")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestPanel_SetColorWritesChannels verifies the three channel files get
// the color components.
func TestPanel_SetColorWritesChannels(t *testing.T) {
	dir := fakeSysfs(t, 2)
	p := NewPanel(Config{SysfsDir: dir, Indicators: 2}, quietLogger())

	if err := p.SetColor(sequencer.ColorAmber, 1); err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}

	if got := brightness(t, dir, 1, "red"); got != "255" {
		t.Fatalf("expected red 255, got %s", got)
	}
	if got := brightness(t, dir, 1, "green"); got != "160" {
		t.Fatalf("expected green 160, got %s", got)
	}
	if got := brightness(t, dir, 1, "blue"); got != "0" {
		t.Fatalf("expected blue 0, got %s", got)
	}

	// Indicator 0 untouched.
	if got := brightness(t, dir, 0, "red"); got != "0" {
		t.Fatalf("expected indicator 0 untouched, got red %s", got)
	}
}

// TestPanel_AllIndicators verifies the broadcast address.
func TestPanel_AllIndicators(t *testing.T) {
	dir := fakeSysfs(t, 3)
	p := NewPanel(Config{SysfsDir: dir, Indicators: 3}, quietLogger())

	if err := p.SetColor(sequencer.ColorGreen, sequencer.AllIndicators); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if got := brightness(t, dir, i, "green"); got != "255" {
			t.Fatalf("expected indicator %d green, got %s", i, got)
		}
	}
}

// TestPanel_OutOfRangeIndicator verifies the classified error.
func TestPanel_OutOfRangeIndicator(t *testing.T) {
	p := NewPanel(Config{SysfsDir: fakeSysfs(t, 1), Indicators: 1}, quietLogger())

	err := p.SetColor(sequencer.ColorRed, 5)
	if err == nil {
		t.Fatal("expected error for out-of-range indicator")
	}
	if !errors.Is(err, errors.ErrCodeLEDWrite) {
		t.Fatalf("expected code %s, got %s", errors.ErrCodeLEDWrite, errors.CodeOf(err))
	}
}

// TestPanel_MissingSysfsReportsWriteError verifies a missing LED class
// entry surfaces as a classified error, not a panic.
func TestPanel_MissingSysfsReportsWriteError(t *testing.T) {
	p := NewPanel(Config{SysfsDir: t.TempDir(), Indicators: 1}, quietLogger())

	if err := p.SetColor(sequencer.ColorRed, 0); err == nil {
		t.Fatal("expected error for missing sysfs entries")
	}
}

// TestPanel_BlinkStopsDark verifies StopAnimation joins the blinker and
// leaves the strip dark.
func TestPanel_BlinkStopsDark(t *testing.T) {
	dir := fakeSysfs(t, 1)
	p := NewPanel(Config{SysfsDir: dir, Indicators: 1}, quietLogger())

	err := p.StartAnimation(PatternBlink, sequencer.ColorBlue, 0,
		time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	p.StopAnimation()

	for _, ch := range []string{"red", "green", "blue"} {
		if got := brightness(t, dir, 0, ch); got != "0" {
			t.Fatalf("expected %s dark after stop, got %s", ch, got)
		}
	}

	// Stopping again is harmless.
	p.StopAnimation()
}

// TestPanel_UnknownPatternRejected verifies pattern validation.
func TestPanel_UnknownPatternRejected(t *testing.T) {
	p := NewPanel(Config{SysfsDir: fakeSysfs(t, 1), Indicators: 1}, quietLogger())

	err := p.StartAnimation("strobe", sequencer.ColorRed, 1,
		time.Millisecond, time.Millisecond)
	if !errors.Is(err, errors.ErrCodeAnimation) {
		t.Fatalf("expected animation error, got %v", err)
	}
}

// TestPanel_ShutdownSequenceEndsDark verifies the closing sweep blanks
// the strip.
func TestPanel_ShutdownSequenceEndsDark(t *testing.T) {
	dir := fakeSysfs(t, 3)
	p := NewPanel(Config{SysfsDir: dir, Indicators: 3}, quietLogger())

	if err := p.RunShutdownSequence(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		for _, ch := range []string{"red", "green", "blue"} {
			if got := brightness(t, dir, i, ch); got != "0" {
				t.Fatalf("expected indicator %d %s dark, got %s", i, ch, got)
			}
		}
	}
}
