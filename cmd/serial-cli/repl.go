// =============================================================================
// repl.go - The Read-Eval-Print Loop
// =============================================================================
//
// runREPL is shared by interactive mode and batch mode: only the LineSource
// differs. Each iteration reads a line, hands it to the interpreter, and
// renders the outcome on the console.
//
// Ordinary errors (unknown command, bad argument, failed shell command) are
// printed as a single line and the loop continues. A failed shell command
// still shows whatever it wrote before the error line. A transport error means
// the port is unusable, so it is printed and returned, ending the session.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/commonProgrammerr/serial-cli/serialshell"
)

// replOptions controls prompt and telemetry.
type replOptions struct {
	prompt  string
	verbose bool
}

// historyRecorder is implemented by line sources that keep a history. Only
// lines that reach the interpreter are recorded.
type historyRecorder interface {
	Record(line string)
}

// executor is the part of serialshell.Interpreter the loop depends on.
type executor interface {
	Execute(ctx context.Context, line string) (serialshell.Outcome, error)
}

// runREPL runs lines from src until end of input, an exit command, context
// cancellation or a transport failure. Only the last returns an error.
func runREPL(ctx context.Context, src LineSource, interp executor, console *Console, opts replOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for {
		if ctx.Err() != nil {
			logger.Debug("session cancelled")
			return nil
		}

		line, err := src.GetLine(opts.prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				logger.Debug("end of input")
				return nil
			}
			console.Error(err)
			return err
		}

		if serialshell.IsBlank(line) {
			continue
		}
		if h, ok := src.(historyRecorder); ok {
			h.Record(line)
		}

		outcome, err := interp.Execute(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			renderFailure(console, err)
			if serialshell.IsFatal(err) {
				logger.Error("transport failure, ending session", zap.Error(err))
				return err
			}
			logger.Debug("command error", zap.String("line", line), zap.Error(err))
			continue
		}

		switch outcome.Action {
		case serialshell.ActionExit:
			return nil
		case serialshell.ActionClear:
			console.Clear()
			continue
		}

		render(console, outcome, opts.verbose)
	}
}

// render prints a successful outcome.
func render(console *Console, outcome serialshell.Outcome, verbose bool) {
	if outcome.Command.Type == serialshell.CmdShell {
		console.Output(outcome.Text)
		console.Stderr(outcome.Stderr)
		return
	}

	if outcome.Received {
		console.Received(outcome.Text)
	}
	if verbose && outcome.Command.UsesTransport() {
		console.Telemetry(outcome.BytesSent, outcome.BytesReceived)
	}
}

// renderFailure prints the error line, preceded by the captured output of a
// failed shell command.
func renderFailure(console *Console, err error) {
	var serr *serialshell.Error
	if errors.As(err, &serr) && serr.Kind == serialshell.ErrKindCommandFailed {
		console.Output(serr.Stdout)
		console.Stderr(serr.Stderr)
	}
	console.Error(err)
}
