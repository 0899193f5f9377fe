// Doorman grants physical access to a door for registered personal devices.
//
// A detector notices a registered phone or tag nearby, an authenticator asks
// for a decision, the actuator opens the door and a locker waits for the
// door to be locked again. Each role has several backends (console, MQTT,
// Bluetooth scan helper, HTTP, external command), picked in config.yaml.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/doorman/internal/manager"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes. Failures of a capability get their own code so service
// managers and scripts can tell a broken scanner from a jammed relay.
const (
	exitOK           = 0
	exitFailure      = 1
	exitDetector     = 3
	exitAuthenticate = 4
	exitActuate      = 5
	exitLock         = 6
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute runs the CLI and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd := newRootCmd(in, out)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return exitOK
	}

	var merr *manager.Error
	if !errors.As(err, &merr) {
		return exitFailure
	}
	switch merr.Stage {
	case manager.StageDetector:
		return exitDetector
	case manager.StageAuthenticate:
		return exitAuthenticate
	case manager.StageActuate:
		return exitActuate
	case manager.StageLock:
		return exitLock
	default:
		return exitFailure
	}
}
