// Package trips records driving trips and finalizes the active one
// during shutdown.
//
// # Overview
//
// A Manager owns at most one active trip. Waypoints fed in while
// driving accumulate distance and remember the last known position, so
// a trip can be closed out even when no end position is supplied - the
// common case during a button-initiated shutdown. An optional Labeler
// names the end point after a nearby landmark.
//
// Finished trips are persisted through a Store. The in-memory store
// backs tests and ephemeral installs; the SQLite store survives power
// cycles, which is the whole point of a dashcam trip log.
package trips
