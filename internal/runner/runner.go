// Package runner spawns xcodebuild and xcresulttool and streams their output
// to the session line by line. Everything above this package consumes plain
// output-chunk and exit callbacks and never touches a process.
package runner

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
)

// Logger is the logging surface the runner needs.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// OutputHandler receives ordered chunks of output lines. Lines are never
// split across calls.
type OutputHandler func(lines []string)

// CommandRunner executes build and test invocations.
type CommandRunner struct {
	cancelExitCode int
	logger         Logger
}

// New creates a runner. cancelExitCode is reported when a run is cancelled
// through the context rather than finishing on its own.
func New(cancelExitCode int, logger Logger) *CommandRunner {
	return &CommandRunner{cancelExitCode: cancelExitCode, logger: logger}
}

// Run starts the command and streams its combined stdout and stderr to
// handler in production order, then returns the exit code. Cancelling ctx
// kills the process and yields the configured cancel exit code.
func (r *CommandRunner) Run(ctx context.Context, workDir string, args []string, handler OutputHandler) (int, error) {
	if len(args) == 0 {
		return 1, errEmptyCommand
	}
	if r.logger != nil {
		r.logger.Debug("executing: %v (cwd %s)", args, workDir)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = workDir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return 1, err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
		for scanner.Scan() {
			handler([]string{scanner.Text()})
		}
	}()

	done := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		done <- err
	}()

	var exitCode int
	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		exitCode = r.cancelExitCode
		if r.logger != nil {
			r.logger.Info("run cancelled, reporting exit code %d", exitCode)
		}
	case err := <-done:
		exitCode = exitCodeOf(err)
	}

	wg.Wait()
	return exitCode, nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
