// Package events provides in-process pub/sub for daemon events.
//
// # Overview
//
// Button edges, state machine transitions, trip lifecycle changes and
// shutdown milestones are published as events so that observers (the
// websocket control channel, tests) can follow along without being wired
// into the shutdown path. Publishing never blocks: slow subscribers drop
// messages rather than stalling the monitoring loop.
//
// Events carry no shutdown policy. The sequencer is driven by direct
// callbacks from the button monitor; the bus is strictly observational.
//
// # Usage
//
//	bus := events.NewMemoryBus(events.DefaultConfig())
//	sub, _ := bus.Subscribe(events.SubjectButtonPress)
//	for ev := range sub.Events() {
//	    fmt.Println(ev.Subject, string(ev.Data))
//	}
package events
