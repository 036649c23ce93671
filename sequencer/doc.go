// Package sequencer turns button edges into a staged, cancellable
// shutdown ritual.
//
// # Overview
//
// A single press starts a hold session. While the button stays held the
// sequencer escalates visual feedback step by step; releasing before the
// hold threshold cancels the session and reverts all feedback. Only a
// hold that survives every step reaches the commit point - after that,
// releasing the button has no effect and the full shutdown sequence
// runs: announce, LED closing sequence, cooperative cancellation of all
// registered units, trip finalization, two grace delays, and finally the
// OS shutdown invocation with a last-resort fallback.
//
// # State machine
//
//	Idle ──press──▶ Pressed ──▶ Holding(1..N) ──▶ Committed ──▶ ShuttingDown
//	  ▲                │             │
//	  └────release─────┴─────────────┘      (cancelled before commit)
//
//	ForceShutdown() skips the ritual from any state: one urgent
//	announcement, a short delay, then straight to the OS invocation.
//
// A one-way latch collapses concurrent triggers - physical button, UI
// request, OS signal - into exactly one execution of the commit
// sequence. Each commit step is isolated: a failing step is logged and
// the sequence continues, because the process is already committed to
// terminating and there will be no later cycle to retry in.
//
// Collaborators (audio cues, LED feedback, trip finalization, the OS
// shutdown command) are injected as narrow interfaces and are all
// best-effort from the sequencer's point of view.
package sequencer
