// =============================================================================
// batch.go - Script Files as a Line Source
// =============================================================================
//
// `serial-cli start script.txt more.txt` runs the lines of each file, in
// order, through the same REPL loop used interactively. Files are opened
// lazily, one at a time, so a long script starts executing immediately.
// The name "-" reads standard input.
//
// =============================================================================

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// BatchSource yields the lines of a sequence of files.
type BatchSource struct {
	paths []string
	stdin io.Reader

	current *os.File
	scanner *bufio.Scanner
	next    int

	// line is the 1-based line number within the current file.
	line int
}

// NewBatchSource checks that every file exists and returns a source that
// reads them in order.
func NewBatchSource(paths []string) (*BatchSource, error) {
	for _, path := range paths {
		if path == "-" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("script %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("script %s: is a directory", path)
		}
	}
	return &BatchSource{paths: paths, stdin: os.Stdin}, nil
}

// GetLine returns the next script line. The prompt is ignored.
func (b *BatchSource) GetLine(_ string) (string, error) {
	for {
		if b.scanner == nil {
			if err := b.openNext(); err != nil {
				return "", err
			}
		}
		if b.scanner.Scan() {
			b.line++
			return b.scanner.Text(), nil
		}
		if err := b.scanner.Err(); err != nil {
			return "", fmt.Errorf("script %s: %w", b.Position(), err)
		}
		b.closeCurrent()
	}
}

// Position describes where the last line came from, as file:line.
func (b *BatchSource) Position() string {
	if b.next == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", b.paths[b.next-1], b.line)
}

// Close releases the file being read.
func (b *BatchSource) Close() {
	b.closeCurrent()
}

func (b *BatchSource) openNext() error {
	if b.next >= len(b.paths) {
		return io.EOF
	}
	path := b.paths[b.next]
	b.next++
	b.line = 0

	if path == "-" {
		b.scanner = bufio.NewScanner(b.stdin)
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	b.current = f
	b.scanner = bufio.NewScanner(f)
	return nil
}

func (b *BatchSource) closeCurrent() {
	if b.current != nil {
		b.current.Close()
		b.current = nil
	}
	b.scanner = nil
}
