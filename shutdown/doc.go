// Package shutdown provides coordinated shutdown for the daemon's loops.
//
// # Overview
//
// The shutdown package is the single source of truth for "should this
// loop keep running". Every long-running unit in the daemon - capture,
// streaming, location updates, the control channel, the button monitor -
// registers with the Coordinator and polls it at loop boundaries.
// Requesting shutdown flips one process-wide flag plus a per-subsystem
// flag for each known subsystem; the flags are monotonic for the lifetime
// of the process. Cancellation is cooperative: nothing is killed, loops
// observe the flags (or their derived context) and exit on their own,
// and the bulk operations wait for them with a bounded timeout.
//
// # Architecture
//
//	SIGINT / SIGTERM / button commit / control channel
//	                     │
//	                     ▼
//	             RequestShutdown()          (idempotent, level-triggered)
//	                     │
//	        ┌────────────┼────────────┐
//	        ▼            ▼            ▼
//	   ShouldContinue  Task ctx    Loop stop
//	   polls → false   cancelled   channel closed
//	        │            │            │
//	        └── CancelAllTasks / StopAllLoops wait, bounded ──┘
//
// # Usage
//
// A cooperatively cancelled task:
//
//	ctx, task := coord.RegisterTask(context.Background(), "capture")
//	go func() {
//	    defer task.Finish()
//	    defer coord.UnregisterTask(task)
//	    for {
//	        select {
//	        case <-ctx.Done():
//	            return
//	        case frame := <-frames:
//	            write(frame)
//	        }
//	    }
//	}()
//
// A dedicated polling loop:
//
//	loop := coord.RegisterLoop(shutdown.SubsystemButton)
//	go func() {
//	    defer loop.Finish()
//	    for coord.ShouldContinue(shutdown.SubsystemButton) {
//	        select {
//	        case <-loop.StopRequested():
//	            return
//	        case <-ticker.C:
//	            poll()
//	        }
//	    }
//	}()
//
// During shutdown:
//
//	coord.RequestShutdown()
//	coord.CancelAllTasks(5 * time.Second)
//	coord.StopAllLoops(2 * time.Second)
//
// Units that do not stop in time are logged as warnings and abandoned;
// shutdown proceeds regardless, because the OS will terminate the process
// shortly afterwards anyway.
package shutdown
