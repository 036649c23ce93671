// Package gpio abstracts the button input pin over whatever capability
// the platform offers.
//
// # Overview
//
// The daemon runs against three mutually incompatible ways of reading a
// button: memory-mapped pin access polled in a tight loop (periph.io),
// character-device GPIO with native edge events (go-gpiocdev), and a
// software-only simulation driven by sentinel files in a temp directory.
// All three are normalized behind the Backend interface so the button
// monitor never needs to know which one won.
//
// Backend selection is an ordered list of capability probes evaluated
// once at start; the first probe that can configure the pin wins. Probe
// failures are not errors - they fall through to the next backend, and
// when nothing is usable (or the platform is not Linux at all) selection
// short-circuits to simulation mode with a single warning.
//
// # Simulation protocol
//
// Simulation mode watches a well-known directory for sentinel files:
//
//	trigger_shutdown            press edge
//	release_shutdown            release edge
//	trigger_immediate_shutdown  force-shutdown edge
//
// Each consumed file is deleted. The directory is watched with fsnotify
// and additionally rescanned on a timer, so files created before the
// watch was established are still consumed.
package gpio
