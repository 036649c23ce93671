// Package logging provides leveled console logging for the daemon.
// Every fallback and every swallowed error in the shutdown path is
// reported through this package - there are no silent failures.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry in traditional format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Domain event logging methods ---
// Called from the shutdown path so that operator-facing events share one
// vocabulary across packages.

// EdgeDetected logs a normalized button edge.
func (l *Logger) EdgeDetected(edge string, backend string) {
	l.Debug("button_edge", map[string]interface{}{
		"edge":    edge,
		"backend": backend,
	})
}

// BackendSelected logs which input backend won the capability probe.
func (l *Logger) BackendSelected(name string, simulated bool) {
	l.Info("backend_selected", map[string]interface{}{
		"backend":   name,
		"simulated": simulated,
	})
}

// Fallback logs a degraded-mode transition. Hardware being unavailable is
// not an error, but it is always visible in the log.
func (l *Logger) Fallback(from, to string, err error) {
	fields := map[string]interface{}{
		"from": from,
		"to":   to,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Warn("fallback", fields)
}

// ShutdownMilestone logs one step of the commit sequence.
func (l *Logger) ShutdownMilestone(step string, err error) {
	fields := map[string]interface{}{
		"step": step,
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("shutdown_step_failed", fields)
	} else {
		l.Info("shutdown_step", fields)
	}
}

// HoldStep logs escalation progress while the button stays held.
func (l *Logger) HoldStep(step, total int) {
	l.Info("hold_step", map[string]interface{}{
		"step":  step,
		"total": total,
	})
}

// TripFinalized logs the outcome of ending the active trip.
func (l *Logger) TripFinalized(tripID string, duration time.Duration, label string) {
	fields := map[string]interface{}{
		"trip":     tripID,
		"duration": duration.Round(time.Second).String(),
	}
	if label != "" {
		fields["near"] = label
	}
	l.Info("trip_finalized", fields)
}

// UnitAbandoned logs a task or loop that did not stop within its timeout.
// Shutdown proceeds regardless; the resource is abandoned, not retried.
func (l *Logger) UnitAbandoned(kind, name string, timeout time.Duration) {
	l.Warn("unit_did_not_terminate", map[string]interface{}{
		"kind":    kind,
		"name":    name,
		"timeout": timeout.String(),
	})
}
