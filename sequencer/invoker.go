package sequencer

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/openroad/dashcam/errors"
)

// CommandInvoker powers the machine off by shelling out to the platform
// shutdown command.
type CommandInvoker struct {
	argv []string
}

// NewCommandInvoker creates an invoker. With no arguments the platform
// default command is used.
func NewCommandInvoker(argv ...string) *CommandInvoker {
	if len(argv) == 0 {
		argv = platformShutdownArgv()
	}
	return &CommandInvoker{argv: argv}
}

// Command returns the command line the invoker will run.
func (i *CommandInvoker) Command() string {
	return strings.Join(i.argv, " ")
}

// ShutdownNow runs the configured shutdown command and waits for it.
func (i *CommandInvoker) ShutdownNow() error {
	cmd := exec.Command(i.argv[0], i.argv[1:]...)
	if err := cmd.Run(); err != nil {
		return errors.New(errors.ErrCodeShutdownCmd, "running "+i.Command(),
			errors.WithCause(err), errors.WithComponent("sequencer"))
	}
	return nil
}

// platformShutdownArgv picks the preferred shutdown command for the
// current OS.
func platformShutdownArgv() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"shutdown", "/s", "/t", "0"}
	case "darwin":
		return []string{"shutdown", "-h", "now"}
	default:
		return []string{"systemctl", "poweroff"}
	}
}

// fallbackShutdownArgv is the last-resort command used when the primary
// invocation fails.
func fallbackShutdownArgv() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"shutdown", "/s", "/f", "/t", "0"}
	default:
		return []string{"shutdown", "-h", "now"}
	}
}

// fallbackShutdown runs the last-resort shutdown command directly.
func fallbackShutdown() error {
	argv := fallbackShutdownArgv()
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		return errors.New(errors.ErrCodeShutdownFallback,
			"running "+strings.Join(argv, " "),
			errors.WithCause(err), errors.WithComponent("sequencer"))
	}
	return nil
}
