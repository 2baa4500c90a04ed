// =============================================================================
// lineeditor.go - Line Sources for the Serial Shell
// =============================================================================
//
// The shell reads one line at a time from a LineSource. There are two:
//
//   - LineEditor: stdin. When stdin is a terminal it uses ergochat/readline
//     for Emacs keybindings, Ctrl-R search and a persistent history file
//     (~/.serial_cli_history). When stdin is piped it falls back to
//     bufio.Scanner and prints the prompt itself. The REPL decides what is
//     worth remembering and calls Record.
//   - BatchSource (batch.go): the lines of one or more script files.
//
// Both return io.EOF when input is exhausted, which ends the session
// normally. Ctrl-C at the prompt is reported as io.EOF too.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is the name of the history file in the user's home
	// directory.
	historyFileName = ".serial_cli_history"

	// historySize is the maximum number of history entries to retain.
	historySize = 1000
)

// LineSource produces the lines fed to the interpreter.
//
// GO CONCEPT: Small Interfaces
// ----------------------------
// The REPL only needs "give me the next line" and "release resources".
// Keeping the interface to two methods lets the interactive editor, the
// script reader and the test fakes all satisfy it without adapters.
type LineSource interface {
	// GetLine returns the next line without its trailing newline, or
	// io.EOF when there is no more input.
	GetLine(prompt string) (string, error)
	Close()
}

// LineEditor reads lines from stdin. It edits with readline when rl is set
// and scans plain lines otherwise.
type LineEditor struct {
	rl *readline.Instance

	scanner *bufio.Scanner
	// prompts receives the prompt when scanning; nil suppresses it.
	prompts io.Writer
}

// NewLineEditor creates a LineEditor, choosing readline when stdin is a
// terminal. An empty historyPath selects ~/.serial_cli_history.
func NewLineEditor(historyPath string) *LineEditor {
	if !stdinIsTerminal() {
		return newScannerEditor(os.Stdin, os.Stdout)
	}
	rl, err := newReadline(historyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(os.Stdin, os.Stdout)
	}
	return &LineEditor{rl: rl}
}

// stdinIsTerminal is false for pipes and inside Emacs shells, which echo
// input themselves.
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && os.Getenv("INSIDE_EMACS") == ""
}

// newReadline opens a readline instance whose history is written only
// through Record.
func newReadline(historyPath string) (*readline.Instance, error) {
	if historyPath == "" {
		historyPath = defaultHistoryPath()
	}
	return readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
}

func newScannerEditor(in io.Reader, prompts io.Writer) *LineEditor {
	return &LineEditor{scanner: bufio.NewScanner(in), prompts: prompts}
}

// GetLine reads a line of input with the given prompt.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.rl == nil {
		return le.scan(prompt)
	}
	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

func (le *LineEditor) scan(prompt string) (string, error) {
	if le.prompts != nil {
		fmt.Fprint(le.prompts, prompt)
	}
	if le.scanner.Scan() {
		return le.scanner.Text(), nil
	}
	if err := le.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Record adds line to the readline history. Piped input has no history.
func (le *LineEditor) Record(line string) {
	if le.rl == nil {
		return
	}
	le.rl.SaveToHistory(strings.TrimSpace(line))
}

// Close releases the readline instance, flushing history. It is safe to
// call more than once.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

func defaultHistoryPath() string {
	return filepath.Join(homeDir(), historyFileName)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
