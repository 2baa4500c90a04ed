package main

import (
	"context"
	"io"
	"sync"

	"github.com/commonProgrammerr/serial-cli/serialshell"
)

// scriptedSource is a LineSource over a fixed list of lines. After the
// lines run out it returns err, or io.EOF when err is nil.
type scriptedSource struct {
	lines   []string
	err     error
	prompts []string
	closed  bool
}

func (s *scriptedSource) GetLine(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedSource) Close() { s.closed = true }

// recordingSource is a scriptedSource that keeps a history.
type recordingSource struct {
	scriptedSource
	recorded []string
}

func (s *recordingSource) Record(line string) { s.recorded = append(s.recorded, line) }

// memPort is an in-memory sessionPort. Reads are served from input; an
// empty input behaves like a read timeout.
type memPort struct {
	name     string
	mu       sync.Mutex
	input    []byte
	written  []byte
	writeErr error
	readErr  error
	closed   int
	reads    int
}

func (p *memPort) Name() string { return p.name }

func (p *memPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, serialshell.NewTransportError("write failed", p.writeErr)
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *memPort) take(n int) []byte {
	if n > len(p.input) {
		n = len(p.input)
	}
	out := append([]byte(nil), p.input[:n]...)
	p.input = p.input[n:]
	return out
}

func (p *memPort) Read(n int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if p.readErr != nil {
		return nil, serialshell.NewTransportError("read failed", p.readErr)
	}
	return p.take(n), nil
}

func (p *memPort) ReadUntil(delim []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if p.readErr != nil {
		return nil, serialshell.NewTransportError("read failed", p.readErr)
	}
	for i := range p.input {
		if i+len(delim) <= len(p.input) && string(p.input[i:i+len(delim)]) == string(delim) {
			return p.take(i + len(delim)), nil
		}
	}
	return p.take(len(p.input)), nil
}

func (p *memPort) Receive(max int) ([]byte, error) {
	return p.Read(max)
}

func (p *memPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *memPort) writtenString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.written)
}

// stubRunner answers shell commands from a table. Unknown commands look
// like a missing program.
type stubRunner struct {
	results map[string]serialshell.Result
	ran     []string
}

func (r *stubRunner) Run(_ context.Context, command string) (serialshell.Result, error) {
	r.ran = append(r.ran, command)
	if res, ok := r.results[command]; ok {
		return res, nil
	}
	return serialshell.Result{
		Stderr:   "sh: " + command + ": not found\n",
		ExitCode: serialshell.CommandNotFoundExitCode,
	}, nil
}
