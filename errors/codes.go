package errors

// Category classifies errors by the subsystem concern that produced them.
type Category string

// Categories mirror the failure taxonomy of the shutdown core.
const (
	// CategoryHardware covers unavailable or failing input hardware.
	// Never fatal: the monitor degrades to simulation mode instead.
	CategoryHardware Category = "hardware"

	// CategoryFeedback covers LED and audio cue failures.
	// Recovered locally; the shutdown sequence continues unaffected.
	CategoryFeedback Category = "feedback"

	// CategoryFinalization covers trip bookkeeping failures during commit.
	CategoryFinalization Category = "finalization"

	// CategoryCancellation covers tasks or loops that did not stop in time.
	CategoryCancellation Category = "cancellation"

	// CategoryInvocation covers OS shutdown command failures. The only
	// category with no recovery path once both attempts have failed.
	CategoryInvocation Category = "invocation"

	// CategoryInternal covers bugs and unexpected state.
	CategoryInternal Category = "internal"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// Severity indicates how a failure should surface in the log.
type Severity int

const (
	// SeverityWarning marks failures that shutdown proceeds past.
	SeverityWarning Severity = iota

	// SeverityError marks failures with no further recovery path.
	SeverityError
)

// Severity returns the log severity appropriate for the category.
func (c Category) Severity() Severity {
	switch c {
	case CategoryInvocation, CategoryInternal:
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Code identifies specific failure types within categories.
type Code string

// Codes for the failure scenarios of the shutdown core.
const (
	// Hardware
	ErrCodeNoBackend     Code = "NO_BACKEND"     // no usable GPIO backend on this platform
	ErrCodeBackendProbe  Code = "BACKEND_PROBE"  // a backend failed while being configured
	ErrCodeBackendFailed Code = "BACKEND_FAILED" // a previously working backend failed mid-run
	ErrCodePinConfig     Code = "PIN_CONFIG"     // pin could not be configured as pull-up input

	// Feedback
	ErrCodeLEDWrite  Code = "LED_WRITE"  // writing an LED control file failed
	ErrCodeAudioExec Code = "AUDIO_EXEC" // the announce/beep command failed
	ErrCodeAnimation Code = "ANIMATION"  // an LED animation could not run

	// Finalization
	ErrCodeTripEnd    Code = "TRIP_END"    // the active trip could not be ended cleanly
	ErrCodeTripStore  Code = "TRIP_STORE"  // trip storage read/write failed
	ErrCodeNoLandmark Code = "NO_LANDMARK" // no named place near the end position

	// Cancellation
	ErrCodeTaskTimeout Code = "TASK_TIMEOUT" // a task did not settle within the cancel timeout
	ErrCodeLoopTimeout Code = "LOOP_TIMEOUT" // a loop did not join within its timeout

	// Invocation
	ErrCodeShutdownCmd      Code = "SHUTDOWN_CMD"      // the primary OS shutdown invocation failed
	ErrCodeShutdownFallback Code = "SHUTDOWN_FALLBACK" // the last-resort invocation also failed

	// Internal
	ErrCodeInternal Code = "INTERNAL" // unexpected internal error
	ErrCodeClosed   Code = "CLOSED"   // operation on a closed component
)

// String returns the string representation of the code.
func (c Code) String() string {
	return string(c)
}

// DefaultCategory returns the category an error code belongs to.
func (c Code) DefaultCategory() Category {
	switch c {
	case ErrCodeNoBackend, ErrCodeBackendProbe, ErrCodeBackendFailed, ErrCodePinConfig:
		return CategoryHardware
	case ErrCodeLEDWrite, ErrCodeAudioExec, ErrCodeAnimation:
		return CategoryFeedback
	case ErrCodeTripEnd, ErrCodeTripStore, ErrCodeNoLandmark:
		return CategoryFinalization
	case ErrCodeTaskTimeout, ErrCodeLoopTimeout:
		return CategoryCancellation
	case ErrCodeShutdownCmd, ErrCodeShutdownFallback:
		return CategoryInvocation
	default:
		return CategoryInternal
	}
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[Code]string{
	ErrCodeNoBackend:        "no usable GPIO backend",
	ErrCodeBackendProbe:     "backend configuration failed",
	ErrCodeBackendFailed:    "backend failed during monitoring",
	ErrCodePinConfig:        "pin configuration failed",
	ErrCodeLEDWrite:         "LED write failed",
	ErrCodeAudioExec:        "audio command failed",
	ErrCodeAnimation:        "LED animation failed",
	ErrCodeTripEnd:          "trip finalization failed",
	ErrCodeTripStore:        "trip storage failure",
	ErrCodeNoLandmark:       "no landmark near position",
	ErrCodeTaskTimeout:      "task did not settle in time",
	ErrCodeLoopTimeout:      "loop did not terminate in time",
	ErrCodeShutdownCmd:      "OS shutdown invocation failed",
	ErrCodeShutdownFallback: "fallback shutdown invocation failed",
	ErrCodeInternal:         "internal error",
	ErrCodeClosed:           "component is closed",
}

// Description returns a human-readable description for the error code.
func (c Code) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
