package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openroad/dashcam/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func waitForFile(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
	return ""
}

// TestSpeaker_AnnounceRunsCommand verifies the speak command receives
// the message as its final argument, asynchronously.
func TestSpeaker_AnnounceRunsCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken")
	s := NewSpeaker(Config{
		SpeakCommand: []string{"sh", "-c", `printf '%s' "$1" > ` + out, "speak"},
	}, quietLogger())

	s.Announce("Powering off now.", "Dashcam", false)

	if got := waitForFile(t, out); got != "Powering off now." {
		t.Fatalf("expected message passed to command, got %q", got)
	}
}

// TestSpeaker_BeepAppendsToneFlags verifies frequency and length are
// passed in beep(1) style.
func TestSpeaker_BeepAppendsToneFlags(t *testing.T) {
	out := filepath.Join(t.TempDir(), "tone")
	s := NewSpeaker(Config{
		BeepCommand: []string{"sh", "-c", `printf '%s %s %s %s' "$1" "$2" "$3" "$4" > ` + out, "beep"},
	}, quietLogger())

	s.Beep(1200, 150*time.Millisecond)

	if got := waitForFile(t, out); got != "-f 1200 -l 150" {
		t.Fatalf("expected beep flags, got %q", got)
	}
}

// TestSpeaker_MissingPlayerIsHarmless verifies a missing command does
// not panic or block.
func TestSpeaker_MissingPlayerIsHarmless(t *testing.T) {
	s := NewSpeaker(Config{
		SpeakCommand: []string{"definitely-no-such-player-c4d1"},
		BeepCommand:  []string{"definitely-no-such-player-c4d1"},
		Timeout:      time.Second,
	}, quietLogger())

	done := make(chan struct{})
	go func() {
		s.Announce("test", "test", true)
		s.Beep(440, 50*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected playback calls to return immediately")
	}
}
