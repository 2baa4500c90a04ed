package serialshell

import (
	"bytes"
	"context"
	"strings"
	"time"
)

// fakeTransport records every call made by the interpreter.
type fakeTransport struct {
	written    [][]byte
	reads      []int
	readUntils [][]byte

	// data is returned by Read (truncated to n) and ReadUntil.
	data []byte
	err  error
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.written = append(f.written, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeTransport) Read(n int) ([]byte, error) {
	f.reads = append(f.reads, n)
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.data) {
		return f.data[:n], nil
	}
	return f.data, nil
}

func (f *fakeTransport) ReadUntil(delimiter []byte) ([]byte, error) {
	f.readUntils = append(f.readUntils, append([]byte(nil), delimiter...))
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

func (f *fakeTransport) calls() int {
	return len(f.written) + len(f.reads) + len(f.readUntils)
}

// fakeRunner answers commands from a table. Unknown commands exit with the
// "not found" status, mirroring a POSIX shell.
type fakeRunner struct {
	results map[string]Result
	err     error
	ran     []string
}

func (f *fakeRunner) Run(_ context.Context, command string) (Result, error) {
	f.ran = append(f.ran, command)
	if f.err != nil {
		return Result{}, f.err
	}
	if res, ok := f.results[command]; ok {
		return res, nil
	}
	return Result{Stderr: "sh: " + command + ": not found\n", ExitCode: CommandNotFoundExitCode}, nil
}

// fakePort is an in-memory serial port. Reads on an empty input buffer time
// out immediately, returning 0 bytes.
type fakePort struct {
	input    bytes.Buffer
	output   bytes.Buffer
	readErr  error
	writeErr error
	timeouts []time.Duration
	closed   bool

	// stream, when set, is repeated forever instead of input.
	stream string
}

func newFakePort(input string) *fakePort {
	p := &fakePort{}
	p.input.WriteString(input)
	return p
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.stream != "" {
		return copy(b, strings.Repeat(p.stream, len(b))), nil
	}
	if p.input.Len() == 0 {
		return 0, nil
	}
	return p.input.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.output.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeouts = append(p.timeouts, t)
	return nil
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}
