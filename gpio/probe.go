package gpio

import (
	"runtime"

	"github.com/openroad/dashcam/logging"
)

// Probe is one capability probe in the backend selection order.
type Probe struct {
	// Name identifies the backend the probe configures.
	Name string

	// Open attempts to configure the backend. A non-nil error means
	// "not available here" and selection falls through to the next probe.
	Open func(cfg Config) (Backend, error)
}

// HardwareProbes returns the hardware probes in priority order:
// memory-mapped pin access first, character-device GPIO second.
func HardwareProbes() []Probe {
	return []Probe{
		{Name: "periph", Open: openPeriph},
		{Name: "gpiocdev", Open: openCdev},
	}
}

// Detect selects a backend, evaluated once at start. The first probe
// that configures the pin wins; if none is usable, or the platform is
// not the target embedded OS at all, selection degrades to simulation
// mode. Detect never fails: the simulation backend always constructs.
func Detect(cfg Config, logger *logging.Logger) Backend {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.New()
	}
	log := logger.WithComponent("gpio")

	if runtime.GOOS != "linux" {
		log.Fallback("hardware", "sim", nil)
		sim := NewSim(cfg, logger)
		log.BackendSelected(sim.Name(), true)
		return sim
	}

	for _, probe := range HardwareProbes() {
		backend, err := probe.Open(cfg)
		if err != nil {
			log.Fallback(probe.Name, "next-backend", err)
			continue
		}
		log.BackendSelected(backend.Name(), false)
		return backend
	}

	sim := NewSim(cfg, logger)
	log.BackendSelected(sim.Name(), true)
	return sim
}
