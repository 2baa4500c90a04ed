package serialshell

import (
	"context"

	"go.uber.org/zap"
)

// Action tells the caller what to do with the session after a command.
type Action int

const (
	// ActionNone continues the session.
	ActionNone Action = iota
	// ActionExit ends the session normally.
	ActionExit
	// ActionClear clears the output surface and continues.
	ActionClear
)

// Outcome is the result of executing one command.
type Outcome struct {
	Command Command
	Action  Action

	BytesSent     int
	BytesReceived int

	// Received is true when the command read from the port, even if no
	// bytes arrived before the timeout.
	Received bool

	// Text is the output to display: sanitized port data for reads and
	// sends, or the verbatim stdout of a shell escape.
	Text string

	// Stderr is the error output of a shell escape.
	Stderr string
}

// Interpreter classifies input lines and executes them against a Transport
// and a Runner. It holds the transport for the whole session and must not
// be shared between goroutines.
type Interpreter struct {
	transport Transport
	runner    Runner
	parser    *CommandParser
	expander  *Expander
	logger    *zap.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for transport and subcommand tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Interpreter) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewInterpreter creates an interpreter that owns transport.
func NewInterpreter(transport Transport, runner Runner, opts ...Option) *Interpreter {
	i := &Interpreter{
		transport: transport,
		runner:    runner,
		parser:    NewCommandParser(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.expander = NewExpander(runner, i.logger)
	return i
}

// Execute classifies line and executes the resulting command.
func (i *Interpreter) Execute(ctx context.Context, line string) (Outcome, error) {
	cmd, err := i.parser.Parse(line)
	if err != nil {
		return Outcome{}, err
	}
	return i.Run(ctx, cmd)
}

// Run executes an already classified command.
func (i *Interpreter) Run(ctx context.Context, cmd Command) (Outcome, error) {
	switch cmd.Type {
	case CmdExit:
		return Outcome{Command: cmd, Action: ActionExit}, nil
	case CmdClear:
		return Outcome{Command: cmd, Action: ActionClear}, nil
	case CmdShell:
		return i.runShell(ctx, cmd)
	case CmdReadFixed:
		data, err := i.transport.Read(cmd.Count)
		return i.received(cmd, Outcome{Command: cmd}, data, err)
	case CmdReadUntil:
		data, err := i.transport.ReadUntil(cmd.Delimiter)
		return i.received(cmd, Outcome{Command: cmd}, data, err)
	case CmdSend:
		return i.send(ctx, cmd)
	default:
		return Outcome{}, newUnknownCommandError(cmd.Line)
	}
}

func (i *Interpreter) runShell(ctx context.Context, cmd Command) (Outcome, error) {
	res, err := i.runner.Run(ctx, cmd.Shell)
	if err != nil {
		return Outcome{}, err
	}
	if res.NotFound() {
		return Outcome{}, newCommandNotFoundError(commandName(cmd.Shell), nil)
	}
	if !res.Success() {
		err := newCommandFailedError(cmd.Line, res)
		err.Stdout = res.Stdout
		return Outcome{}, err
	}
	return Outcome{Command: cmd, Text: res.Stdout, Stderr: res.Stderr}, nil
}

func (i *Interpreter) send(ctx context.Context, cmd Command) (Outcome, error) {
	payload, err := i.expander.Expand(ctx, cmd.Payload)
	if err != nil {
		return Outcome{}, err
	}

	data := []byte(payload + LineTerminator)
	n, err := i.transport.Write(data)
	if err != nil {
		return Outcome{}, asTransportError("write failed", err)
	}
	i.logger.Debug("sent", zap.Stringer("command", cmd), zap.Int("bytes", n), zap.Bool("wait", cmd.Wait))

	out := Outcome{Command: cmd, BytesSent: len(data)}
	if !cmd.Wait {
		return out, nil
	}

	resp, err := i.transport.ReadUntil([]byte(ResponseTerminator))
	return i.received(cmd, out, resp, err)
}

func (i *Interpreter) received(cmd Command, out Outcome, data []byte, err error) (Outcome, error) {
	if err != nil {
		return Outcome{}, asTransportError("read failed", err)
	}
	i.logger.Debug("received",
		zap.Stringer("command", cmd),
		zap.Int("bytes", len(data)))
	out.Received = true
	out.BytesReceived = len(data)
	out.Text = Sanitize(data)
	return out, nil
}

// asTransportError marks errors coming out of a Transport as transport
// faults unless they already carry a kind.
func asTransportError(message string, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	return NewTransportError(message, err)
}
