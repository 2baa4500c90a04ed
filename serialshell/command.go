package serialshell

import (
	"fmt"
	"strconv"
)

// CommandType represents the kind of a classified input line.
type CommandType int

const (
	// Session control
	CmdExit CommandType = iota
	CmdClear

	// Local execution
	CmdShell

	// Transport reads
	CmdReadFixed
	CmdReadUntil

	// Transport writes
	CmdSend
)

// String returns the keyword that selects the command type.
func (t CommandType) String() string {
	switch t {
	case CmdExit:
		return "exit"
	case CmdClear:
		return "clear"
	case CmdShell:
		return "shell"
	case CmdReadFixed:
		return "read"
	case CmdReadUntil:
		return "read-until"
	case CmdSend:
		return "send"
	default:
		return "unknown"
	}
}

// Command represents a parsed input line.
// Use the constructor functions (NewExitCommand, NewSendCommand, etc.)
// to create Command instances.
type Command struct {
	Type CommandType

	// Fields used by various commands (only relevant fields are populated)
	Shell     string // For shell escapes
	Count     int    // For fixed-length reads
	Delimiter []byte // For delimiter reads
	Payload   string // For send, before subcommand expansion
	Wait      bool   // For send

	// Line is the input line the command was parsed from, comment stripped.
	Line string
}

// NewExitCommand creates an exit command.
func NewExitCommand() Command {
	return Command{Type: CmdExit, Line: "exit"}
}

// NewClearCommand creates a clear-screen command.
func NewClearCommand() Command {
	return Command{Type: CmdClear, Line: "clear"}
}

// NewShellCommand creates a shell escape running command.
func NewShellCommand(command string) Command {
	return Command{Type: CmdShell, Shell: command, Line: ShellEscapePrefix + command}
}

// NewReadCommand creates a command reading count bytes from the port.
func NewReadCommand(count int) Command {
	return Command{Type: CmdReadFixed, Count: count, Line: "read " + strconv.Itoa(count)}
}

// NewReadUntilCommand creates a command reading from the port until
// delimiter is received.
func NewReadUntilCommand(delimiter []byte) Command {
	return Command{Type: CmdReadUntil, Delimiter: delimiter, Line: "read " + string(delimiter)}
}

// NewSendCommand creates a command writing payload to the port. If wait is
// true the command blocks for a response terminated by ResponseTerminator.
func NewSendCommand(payload string, wait bool) Command {
	line := "send " + payload
	if wait {
		line += " " + WaitFlag
	}
	return Command{Type: CmdSend, Payload: payload, Wait: wait, Line: line}
}

// String formats the command in its canonical input form.
func (c Command) String() string {
	switch c.Type {
	case CmdExit, CmdClear:
		return c.Type.String()
	case CmdShell:
		return ShellEscapePrefix + c.Shell
	case CmdReadFixed:
		return fmt.Sprintf("read %d", c.Count)
	case CmdReadUntil:
		return fmt.Sprintf("read %s", c.Delimiter)
	case CmdSend:
		if c.Wait {
			return fmt.Sprintf("send %s %s", c.Payload, WaitFlag)
		}
		return fmt.Sprintf("send %s", c.Payload)
	default:
		return c.Line
	}
}

// UsesTransport reports whether executing the command touches the port.
func (c Command) UsesTransport() bool {
	switch c.Type {
	case CmdReadFixed, CmdReadUntil, CmdSend:
		return true
	default:
		return false
	}
}
