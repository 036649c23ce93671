// Package button monitors the physical power button.
//
// # Overview
//
// The Monitor owns one gpio.Backend and turns whatever that backend
// offers - polled levels or native edge events - into a normalized
// stream of press/release callbacks delivered to a Handler. It holds no
// shutdown policy of its own: every edge is forwarded verbatim, in the
// order it physically occurred.
//
// For polled backends the monitor remembers the last observed level and
// fires a callback only when the new level differs, so one physical
// transition is never reported twice. If a previously working backend
// fails mid-run, the monitor logs the failure and falls back to
// simulation mode rather than giving up on monitoring entirely.
//
// The monitoring loop runs as a dedicated loop registered with the
// shutdown coordinator under the "button-monitor" subsystem.
package button
