// Package audio plays spoken announcements and short tones by shelling
// out to the platform's speech and beep commands. Playback is always
// asynchronous: the shutdown path must never wait on a sound card.
package audio

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/openroad/dashcam/logging"
)

// Config holds audio command configuration.
type Config struct {
	// SpeakCommand announces a message; the message is appended as the
	// final argument. Default: espeak.
	SpeakCommand []string

	// BeepCommand plays a tone; frequency and length are appended in
	// beep(1) style (-f HZ -l MS). Default: beep.
	BeepCommand []string

	// Timeout bounds each playback process. Default: 5s.
	Timeout time.Duration
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SpeakCommand: []string{"espeak"},
		BeepCommand:  []string{"beep"},
		Timeout:      5 * time.Second,
	}
}

// Speaker runs the configured playback commands.
type Speaker struct {
	cfg    Config
	logger *logging.Logger
}

// NewSpeaker creates a speaker.
func NewSpeaker(cfg Config, logger *logging.Logger) *Speaker {
	def := DefaultConfig()
	if len(cfg.SpeakCommand) == 0 {
		cfg.SpeakCommand = def.SpeakCommand
	}
	if len(cfg.BeepCommand) == 0 {
		cfg.BeepCommand = def.BeepCommand
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = logging.New()
	}
	return &Speaker{
		cfg:    cfg,
		logger: logger.WithComponent("audio"),
	}
}

// Announce speaks a message. Urgent only affects logging priority; the
// process is fired either way and never waited on by the caller.
func (s *Speaker) Announce(message, title string, urgent bool) {
	fields := map[string]interface{}{"title": title, "message": message}
	if urgent {
		s.logger.Warn("announce", fields)
	} else {
		s.logger.Info("announce", fields)
	}

	argv := append(append([]string(nil), s.cfg.SpeakCommand...), message)
	s.run(argv)
}

// Beep plays a short tone.
func (s *Speaker) Beep(freqHz int, duration time.Duration) {
	argv := append(append([]string(nil), s.cfg.BeepCommand...),
		"-f", strconv.Itoa(freqHz),
		"-l", strconv.Itoa(int(duration.Milliseconds())))
	s.run(argv)
}

// run starts the playback command in the background with a bounded
// lifetime. A missing or failing player is logged once per call and
// otherwise ignored: audio is feedback, not function.
func (s *Speaker) run(argv []string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		if err := cmd.Run(); err != nil {
			s.logger.Debug("playback_failed", map[string]interface{}{
				"command": argv[0],
				"error":   err.Error(),
			})
		}
	}()
}
