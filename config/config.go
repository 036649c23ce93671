// Package config loads daemon configuration from TOML.
//
// Configuration is looked up along a small set of standard paths and
// every field has a working default, so a missing file is not an error:
// the daemon runs with hardware probing and in-memory storage out of
// the box.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/gpio"
	"github.com/openroad/dashcam/sequencer"
	"github.com/openroad/dashcam/shutdown"
)

// FileName is the configuration file name searched along StandardPaths.
const FileName = "dashcam.toml"

// Duration is a time.Duration that unmarshals from TOML strings such as
// "3s" or "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root of the TOML file.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Shutdown  ShutdownConfig  `toml:"shutdown"`
	Button    ButtonConfig    `toml:"button"`
	Sequencer SequencerConfig `toml:"sequencer"`
	Trips     TripsConfig     `toml:"trips"`
	Landmarks LandmarksConfig `toml:"landmarks"`
	Audio     AudioConfig     `toml:"audio"`
	LEDs      LEDConfig       `toml:"leds"`
	Control   ControlConfig   `toml:"control"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: info.
	Level string `toml:"level"`
}

// ShutdownConfig tunes the coordinator.
type ShutdownConfig struct {
	CancelTimeout Duration `toml:"cancel_timeout"`
	JoinTimeout   Duration `toml:"join_timeout"`

	// Subsystems overrides the tracked subsystem names.
	Subsystems []string `toml:"subsystems"`
}

// ButtonConfig tunes GPIO access and the simulation protocol.
type ButtonConfig struct {
	Chip             string   `toml:"chip"`
	Pin              int      `toml:"pin"`
	PollInterval     Duration `toml:"poll_interval"`
	Debounce         Duration `toml:"debounce"`
	SentinelDir      string   `toml:"sentinel_dir"`
	SentinelInterval Duration `toml:"sentinel_interval"`
}

// SequencerConfig tunes the press-and-hold ritual.
type SequencerConfig struct {
	HoldThreshold   Duration `toml:"hold_threshold"`
	HoldSteps       int      `toml:"hold_steps"`
	LEDStepDelay    Duration `toml:"led_step_delay"`
	GraceDelay      Duration `toml:"grace_delay"`
	FinalDelay      Duration `toml:"final_delay"`
	ForceDelay      Duration `toml:"force_delay"`
	FinalizeTimeout Duration `toml:"finalize_timeout"`

	// ShutdownCommand overrides the platform shutdown command.
	ShutdownCommand []string `toml:"shutdown_command"`
}

// TripsConfig selects and tunes the trip store.
type TripsConfig struct {
	// Store is "memory" or "sqlite". Default: memory.
	Store string `toml:"store"`

	// Path is the SQLite database file when Store is "sqlite".
	Path string `toml:"path"`

	// AutoStart begins a trip when the daemon starts.
	AutoStart bool `toml:"auto_start"`
}

// LandmarksConfig points at the landmark catalog used to label trip
// endpoints.
type LandmarksConfig struct {
	// Path is a TOML file of named positions. Empty disables labeling.
	Path string `toml:"path"`

	// RadiusMeters is the maximum distance for a landmark match.
	// Default: 250.
	RadiusMeters float64 `toml:"radius_meters"`
}

// AudioConfig tunes spoken and tonal feedback.
type AudioConfig struct {
	Enabled bool `toml:"enabled"`

	// SpeakCommand is the announcement command; the message is appended
	// as the final argument. Default: espeak.
	SpeakCommand []string `toml:"speak_command"`

	// BeepCommand is the tone command. Default: beep with -f/-l flags.
	BeepCommand []string `toml:"beep_command"`
}

// LEDConfig tunes the indicator strip.
type LEDConfig struct {
	Enabled bool `toml:"enabled"`

	// SysfsDir is the LED class directory. Default: /sys/class/leds.
	SysfsDir string `toml:"sysfs_dir"`

	// Indicators is the number of addressable indicators. Default: 3.
	Indicators int `toml:"indicators"`
}

// ControlConfig tunes the websocket control channel.
type ControlConfig struct {
	Enabled bool `toml:"enabled"`

	// Listen is the bind address. Default: 127.0.0.1:8787.
	Listen string `toml:"listen"`
}

// DefaultConfig returns configuration with every default filled in.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Shutdown: ShutdownConfig{
			CancelTimeout: Duration(5 * time.Second),
			JoinTimeout:   Duration(2 * time.Second),
		},
		Button: ButtonConfig{
			Chip:             "gpiochip0",
			Pin:              3,
			PollInterval:     Duration(50 * time.Millisecond),
			Debounce:         Duration(10 * time.Millisecond),
			SentinelInterval: Duration(500 * time.Millisecond),
		},
		Sequencer: SequencerConfig{
			HoldThreshold:   Duration(3 * time.Second),
			HoldSteps:       3,
			LEDStepDelay:    Duration(200 * time.Millisecond),
			GraceDelay:      Duration(2 * time.Second),
			FinalDelay:      Duration(time.Second),
			ForceDelay:      Duration(500 * time.Millisecond),
			FinalizeTimeout: Duration(5 * time.Second),
		},
		Trips: TripsConfig{Store: "memory"},
		Landmarks: LandmarksConfig{
			RadiusMeters: 250,
		},
		Audio: AudioConfig{Enabled: true},
		LEDs: LEDConfig{
			SysfsDir:   "/sys/class/leds",
			Indicators: 3,
		},
		Control: ControlConfig{
			Listen: "127.0.0.1:8787",
		},
	}
}

// StandardPaths returns the search locations in priority order: working
// directory, user config directory, then system-wide.
func StandardPaths() []string {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "dashcam", FileName))
	}
	paths = append(paths, filepath.Join("/etc", "dashcam", FileName))
	return paths
}

// Load reads configuration from the first file found along
// StandardPaths. No file at all yields the defaults.
func Load() (Config, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return DefaultConfig(), nil
}

// LoadFile reads configuration from an explicit path. Fields absent
// from the file keep their defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig(), errors.New(errors.ErrCodeInternal,
			"parsing "+path, errors.WithCause(err), errors.WithComponent("config"))
	}
	return cfg, nil
}

// LogLevel maps the configured level name onto the logging package.
func (c LoggingConfig) LogLevel() string {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return c.Level
	default:
		return "info"
	}
}

// CoordinatorConfig builds the shutdown package configuration.
func (c ShutdownConfig) CoordinatorConfig() shutdown.Config {
	cfg := shutdown.DefaultConfig()
	if c.CancelTimeout > 0 {
		cfg.CancelTimeout = c.CancelTimeout.Std()
	}
	if c.JoinTimeout > 0 {
		cfg.JoinTimeout = c.JoinTimeout.Std()
	}
	if len(c.Subsystems) > 0 {
		cfg.Subsystems = c.Subsystems
	}
	return cfg
}

// GPIOConfig builds the gpio package configuration.
func (c ButtonConfig) GPIOConfig() gpio.Config {
	cfg := gpio.DefaultConfig()
	if c.Chip != "" {
		cfg.Chip = c.Chip
	}
	if c.Pin > 0 {
		cfg.Pin = c.Pin
	}
	if c.PollInterval > 0 {
		cfg.PollInterval = c.PollInterval.Std()
	}
	if c.Debounce > 0 {
		cfg.Debounce = c.Debounce.Std()
	}
	if c.SentinelDir != "" {
		cfg.SentinelDir = c.SentinelDir
	}
	if c.SentinelInterval > 0 {
		cfg.SentinelInterval = c.SentinelInterval.Std()
	}
	return cfg
}

// SequencerConfig builds the sequencer package configuration.
func (c SequencerConfig) SequencerConfig() sequencer.Config {
	cfg := sequencer.DefaultConfig()
	if c.HoldThreshold > 0 {
		cfg.HoldThreshold = c.HoldThreshold.Std()
	}
	if c.HoldSteps > 0 {
		cfg.HoldSteps = c.HoldSteps
	}
	if c.LEDStepDelay > 0 {
		cfg.LEDStepDelay = c.LEDStepDelay.Std()
	}
	if c.GraceDelay > 0 {
		cfg.GraceDelay = c.GraceDelay.Std()
	}
	if c.FinalDelay > 0 {
		cfg.FinalDelay = c.FinalDelay.Std()
	}
	if c.ForceDelay > 0 {
		cfg.ForceDelay = c.ForceDelay.Std()
	}
	if c.FinalizeTimeout > 0 {
		cfg.FinalizeTimeout = c.FinalizeTimeout.Std()
	}
	return cfg
}
