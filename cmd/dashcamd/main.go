// Command dashcamd runs the dashcam power management daemon: it watches
// the physical power button, escalates press-and-hold feedback, and on
// commit finalizes the active trip and powers the machine off cleanly.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/openroad/dashcam/audio"
	"github.com/openroad/dashcam/button"
	"github.com/openroad/dashcam/config"
	"github.com/openroad/dashcam/control"
	"github.com/openroad/dashcam/events"
	"github.com/openroad/dashcam/landmarks"
	"github.com/openroad/dashcam/leds"
	"github.com/openroad/dashcam/logging"
	"github.com/openroad/dashcam/sequencer"
	"github.com/openroad/dashcam/shutdown"
	"github.com/openroad/dashcam/trips"
)

func main() {
	configPath := flag.String("config", "", "path to dashcam.toml (default: standard search paths)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "dashcamd:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger := logging.New()
	switch cfg.Logging.LogLevel() {
	case "debug":
		logger.SetLevel(logging.LevelDebug)
	case "warn":
		logger.SetLevel(logging.LevelWarn)
	case "error":
		logger.SetLevel(logging.LevelError)
	}

	coord := shutdown.NewCoordinator(cfg.Shutdown.CoordinatorConfig(), logger)
	coord.HandleSignals()

	bus := events.NewMemoryBus(events.DefaultConfig())
	defer bus.Close()

	// Storage and the landmark catalog initialize in parallel; neither
	// depends on the other and SQLite opens can be slow on SD cards.
	var (
		store trips.Store
		index *landmarks.Index
	)
	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		if cfg.Trips.Store == "sqlite" && cfg.Trips.Path != "" {
			s, err := trips.NewSQLiteStore(cfg.Trips.Path)
			if err != nil {
				return err
			}
			store = s
			return nil
		}
		store = trips.NewMemoryStore()
		return nil
	})
	g.Go(func() error {
		if cfg.Landmarks.Path == "" {
			return nil
		}
		catalog, err := landmarks.LoadCatalog(cfg.Landmarks.Path)
		if err != nil {
			return err
		}
		index, err = landmarks.NewIndex(catalog, cfg.Landmarks.RadiusMeters, logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	defer store.Close()
	if index != nil {
		defer index.Close()
	}

	managerOpts := []trips.ManagerOption{trips.WithLogger(logger)}
	if index != nil {
		managerOpts = append(managerOpts, trips.WithLabeler(index))
	}
	manager := trips.NewManager(store, managerOpts...)

	deps := sequencer.Deps{
		Trips:       manager,
		Coordinator: coord,
		Logger:      logger,
		Bus:         bus,
	}
	if cfg.Audio.Enabled {
		deps.Audio = audio.NewSpeaker(audio.Config{
			SpeakCommand: cfg.Audio.SpeakCommand,
			BeepCommand:  cfg.Audio.BeepCommand,
		}, logger)
	}
	if cfg.LEDs.Enabled {
		deps.LEDs = leds.NewPanel(leds.Config{
			SysfsDir:   cfg.LEDs.SysfsDir,
			Indicators: cfg.LEDs.Indicators,
		}, logger)
	}
	if len(cfg.Sequencer.ShutdownCommand) > 0 {
		deps.Invoker = sequencer.NewCommandInvoker(cfg.Sequencer.ShutdownCommand...)
	}

	seq := sequencer.New(cfg.Sequencer.SequencerConfig(), deps)
	seq.Start()

	monitor := button.New(cfg.Button.GPIOConfig(), nil, seq, coord, logger, bus)
	monitor.Start()

	if cfg.Control.Enabled {
		srv := control.NewServer(control.Config{Listen: cfg.Control.Listen},
			seq, coord, bus, logger)
		if err := srv.Start(); err != nil {
			return err
		}
	}

	if cfg.Trips.AutoStart {
		id, err := manager.StartTrip(context.Background())
		if err != nil {
			logger.Warn("trip_autostart_failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			bus.Publish(events.SubjectTripStarted, []byte(id))
		}
	}

	logger.Info("dashcamd_ready")

	// The commit sequence, however triggered, is the only way out.
	<-seq.Committed()
	return nil
}
