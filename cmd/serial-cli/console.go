// =============================================================================
// console.go - Styled Output Sink
// =============================================================================
//
// Everything the shell shows the operator goes through a Console: command
// output, data received from the port, error lines and byte-count
// telemetry. Styling uses lipgloss with one renderer per writer, so colors
// are emitted only when that writer is a color-capable terminal; tests
// pass bytes.Buffers and get plain text.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/commonProgrammerr/serial-cli/serialshell"
)

// clearScreenSequence moves the cursor home and erases the display.
const clearScreenSequence = "\x1b[H\x1b[2J"

type consoleStyles struct {
	Banner    lipgloss.Style
	Keyword   lipgloss.Style
	Prompt    lipgloss.Style
	Output    lipgloss.Style
	Hex       lipgloss.Style
	Stderr    lipgloss.Style
	Error     lipgloss.Style
	Telemetry lipgloss.Style
	Muted     lipgloss.Style
}

// Console renders shell output.
type Console struct {
	out    io.Writer
	errOut io.Writer

	styles    consoleStyles
	errStyles consoleStyles

	// clear is true when out is a terminal that can be cleared.
	clear bool

	// pending holds the bytes of a rune split across Stream chunks.
	pending []byte
}

// NewConsole creates a console writing normal output to out and errors to
// errOut.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{
		out:       out,
		errOut:    errOut,
		styles:    newConsoleStyles(lipgloss.NewRenderer(out)),
		errStyles: newConsoleStyles(lipgloss.NewRenderer(errOut)),
		clear:     isTerminal(out),
	}
}

func newConsoleStyles(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		Banner:    r.NewStyle().Foreground(lipgloss.Color("2")),
		Keyword:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		Prompt:    r.NewStyle().Foreground(lipgloss.Color("#00ff00")),
		Output:    r.NewStyle().Foreground(lipgloss.Color("7")).TabWidth(lipgloss.NoTabConversion),
		Hex:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		Stderr:    r.NewStyle().Foreground(lipgloss.Color("1")).TabWidth(lipgloss.NoTabConversion),
		Error:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		Telemetry: r.NewStyle().Foreground(lipgloss.Color("6")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("243")),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Prompt returns the styled prompt for port.
func (c *Console) Prompt(port string) string {
	return c.styles.Prompt.Render(port + "> ")
}

// Connected announces an open port.
func (c *Console) Connected(port string, baud int) {
	fmt.Fprintln(c.out, c.styles.Banner.Render(fmt.Sprintf("Connected to %s at %d baud.", port, baud)))
}

// Welcome prints the interactive-mode banner.
func (c *Console) Welcome() {
	fmt.Fprintf(c.out, "Entering interactive mode. Type %s to quit.\n\n", c.styles.Keyword.Render("exit"))
}

// Info prints a muted informational line.
func (c *Console) Info(msg string) {
	fmt.Fprintln(c.out, c.styles.Muted.Render(msg))
}

// Output prints the stdout of a shell command verbatim.
func (c *Console) Output(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(c.out, renderLines(c.styles.Output, text))
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(c.out)
	}
}

// Stderr prints the error output of a shell command in the error style.
func (c *Console) Stderr(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(c.errOut, renderLines(c.errStyles.Stderr, text))
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(c.errOut)
	}
}

// Received prints sanitized port data with hex byte literals highlighted.
func (c *Console) Received(text string) {
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = serialshell.HighlightHex(line, c.hex)
	}
	fmt.Fprintln(c.out, strings.Join(lines, "\n"))
}

// Stream prints a chunk of raw port data as it arrives, without adding
// line breaks. A rune cut off at the end of a chunk is held back until the
// next one; anything else that is not valid UTF-8 is replaced.
func (c *Console) Stream(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	data := chunk
	if len(c.pending) > 0 {
		data = append(c.pending, chunk...)
		c.pending = nil
	}
	if n := incompleteTail(data); n > 0 {
		c.pending = append([]byte(nil), data[len(data)-n:]...)
		data = data[:len(data)-n]
	}
	c.writeStream(data)
}

// FlushStream prints whatever Stream is still holding back.
func (c *Console) FlushStream() {
	data := c.pending
	c.pending = nil
	c.writeStream(data)
}

func (c *Console) writeStream(data []byte) {
	if len(data) == 0 {
		return
	}
	text := strings.ToValidUTF8(string(data), "�")
	fmt.Fprint(c.out, serialshell.HighlightHex(text, c.hex))
}

func (c *Console) hex(s string) string {
	return c.styles.Hex.Render(s)
}

// incompleteTail returns the length of a truncated rune at the end of b,
// or 0 when b ends on a rune boundary.
func incompleteTail(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return 0
		}
		return len(b) - i
	}
	return 0
}

// Telemetry prints the byte counts of a transport command.
func (c *Console) Telemetry(sent, received int) {
	fmt.Fprintln(c.out, c.styles.Telemetry.Render(fmt.Sprintf("Sent: %db, Received: %db", sent, received)))
}

// Error prints exactly one styled error line. A missing program is shown
// as a styled label followed by the plain program name.
func (c *Console) Error(err error) {
	var serr *serialshell.Error
	if errors.As(err, &serr) && serr.Kind == serialshell.ErrKindCommandNotFound {
		fmt.Fprintf(c.errOut, "%s %s\n", c.errStyles.Error.Render("Command not found:"), serr.Value)
		return
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.ReplaceAll(msg, "\n", " ")
	fmt.Fprintln(c.errOut, c.errStyles.Error.Render(msg))
}

// Clear clears the screen when output is a terminal.
func (c *Console) Clear() {
	if c.clear {
		fmt.Fprint(c.out, clearScreenSequence)
	}
}

// renderLines styles each line on its own so that multi-line text is not
// padded to a common width.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
