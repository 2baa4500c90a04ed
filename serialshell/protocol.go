package serialshell

import "time"

// Protocol constants for the line-command grammar and serial framing.
const (
	// ResponseTerminator marks the end of a device response when a send
	// command waits for a reply.
	ResponseTerminator = "\n\n"

	// LineTerminator is appended to every transmitted payload.
	LineTerminator = "\n"

	// CommentMarker starts a trailing comment in an input line.
	CommentMarker = '#'

	// ShellEscapePrefix starts a line that runs a local shell command.
	ShellEscapePrefix = "!"

	// WaitFlag asks a send command to block for a terminated response.
	WaitFlag = "--wait"

	// DefaultBaudRate is the baud rate used when none is configured.
	DefaultBaudRate = 9600

	// DefaultDataBits is the byte size used when none is configured.
	DefaultDataBits = 8

	// DefaultTimeout bounds every read on the port.
	DefaultTimeout = 5 * time.Second

	// CommandNotFoundExitCode is the exit status POSIX shells report when the
	// requested program does not exist.
	CommandNotFoundExitCode = 127
)
