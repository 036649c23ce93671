// Package control exposes a small websocket channel for companion apps.
//
// # Overview
//
// Clients connect to /ws and receive JSON text frames with an envelope
// of {type, ts, data}: a hello frame with the current sequencer state on
// connect, then every daemon event published on the internal bus. The
// channel also accepts commands - "shutdown" runs the full ritual as if
// a hold had completed, "force_shutdown" skips it, "status" replies with
// the current state.
//
// Each client gets its own buffered send queue and write pump so one
// slow phone on a flaky link cannot stall the others; a client whose
// queue fills is disconnected. The server runs as a loop registered with
// the shutdown coordinator and drains all clients when asked to stop.
package control
