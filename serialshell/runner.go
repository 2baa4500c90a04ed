package serialshell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes to close once the
// context is done.
const waitDelay = 2 * time.Second

// Result holds the captured output of a shell command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// NotFound reports whether the shell could not find the requested program.
func (r Result) NotFound() bool {
	return r.ExitCode == CommandNotFoundExitCode
}

// Runner executes shell commands synchronously.
//
// Run never returns an error for a non-zero exit status; callers inspect
// Result.ExitCode. An error is returned only when the command could not be
// started at all.
type Runner interface {
	Run(ctx context.Context, command string) (Result, error)
}

// ShellRunner runs commands through the host command interpreter, so pipes,
// redirections and other shell syntax are honored.
type ShellRunner struct {
	shell []string
}

// NewShellRunner creates a runner using the given shell. The shell string is
// split on whitespace and the command is appended as the last argument, e.g.
// "bash -c". An empty shell selects "sh -c", or "cmd /C" on Windows.
func NewShellRunner(shell string) *ShellRunner {
	args := strings.Fields(shell)
	if len(args) == 0 {
		args = defaultShell()
	}
	return &ShellRunner{shell: args}
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// Shell returns the interpreter invocation used by the runner.
func (r *ShellRunner) Shell() []string {
	return append([]string(nil), r.shell...)
}

// Run executes command and captures stdout and stderr separately.
func (r *ShellRunner) Run(ctx context.Context, command string) (Result, error) {
	args := append(r.Shell(), command)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	// Grandchildren may keep the output pipes open after the shell is killed.
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// Killed by a signal, typically because ctx was cancelled.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			res.ExitCode = 1
		}
		return res, nil
	}

	if errors.Is(err, exec.ErrWaitDelay) {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	return res, newCommandNotFoundError(args[0], err)
}

// commandName returns the program name a shell command line starts with.
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return command
	}
	return fields[0]
}
