package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readAll(t *testing.T, src LineSource) []string {
	t.Helper()
	var lines []string
	for {
		line, err := src.GetLine("ignored> ")
		if err == io.EOF {
			return lines
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
}

func TestBatchSourceReadsFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeScript(t, dir, "a.txt", "send one\nread 2\n")
	second := writeScript(t, dir, "b.txt", "exit")

	src, err := NewBatchSource([]string{first, second})
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, []string{"send one", "read 2", "exit"}, readAll(t, src))
}

func TestBatchSourcePosition(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "a.txt", "one\ntwo\n")

	src, err := NewBatchSource([]string{path})
	require.NoError(t, err)
	defer src.Close()

	assert.Empty(t, src.Position())
	_, err = src.GetLine("")
	require.NoError(t, err)
	_, err = src.GetLine("")
	require.NoError(t, err)
	assert.Equal(t, path+":2", src.Position())
}

func TestBatchSourceStdin(t *testing.T) {
	src, err := NewBatchSource([]string{"-"})
	require.NoError(t, err)
	src.stdin = strings.NewReader("send piped\n")
	defer src.Close()

	assert.Equal(t, []string{"send piped"}, readAll(t, src))
}

func TestBatchSourceMissingFile(t *testing.T) {
	_, err := NewBatchSource([]string{filepath.Join(t.TempDir(), "nope.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestBatchSourceDirectory(t *testing.T) {
	_, err := NewBatchSource([]string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestBatchSourceEmpty(t *testing.T) {
	src, err := NewBatchSource(nil)
	require.NoError(t, err)
	_, err = src.GetLine("")
	assert.Equal(t, io.EOF, err)
}
