package serialshell

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandIdentityWithoutMarkers(t *testing.T) {
	runner := &fakeRunner{}
	e := NewExpander(runner, nil)

	for _, payload := range []string{
		"",
		"AT+RST",
		"plain text with ! and ( and )",
		"!not a marker",
		"!() empty marker",
		"( !x )",
	} {
		got, err := e.Expand(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
	assert.Empty(t, runner.ran, "no command should run for marker-free payloads")
}

func TestExpandSingleMarker(t *testing.T) {
	runner := &fakeRunner{results: map[string]Result{
		"echo hi": {Stdout: "hi\n"},
	}}
	e := NewExpander(runner, nil)

	got, err := e.Expand(context.Background(), "say !(echo hi) now")
	require.NoError(t, err)
	assert.Equal(t, "say hi\n now", got)
	assert.Equal(t, []string{"echo hi"}, runner.ran)
}

func TestExpandLeftToRight(t *testing.T) {
	runner := &fakeRunner{results: map[string]Result{
		"first":  {Stdout: "1"},
		"second": {Stdout: "2"},
	}}
	e := NewExpander(runner, nil)

	got, err := e.Expand(context.Background(), "!(second)-!(first)-!(second)")
	require.NoError(t, err)
	assert.Equal(t, "2-1-2", got)
	assert.Equal(t, []string{"second", "first", "second"}, runner.ran)
}

func TestExpandDoesNotRecurse(t *testing.T) {
	runner := &fakeRunner{results: map[string]Result{
		"emit":  {Stdout: "!(inner)"},
		"inner": {Stdout: "SHOULD NOT APPEAR"},
		"tail":  {Stdout: "T"},
	}}
	e := NewExpander(runner, nil)

	got, err := e.Expand(context.Background(), "a !(emit) b !(tail)")
	require.NoError(t, err)
	assert.Equal(t, "a !(inner) b T", got)
	assert.Equal(t, []string{"emit", "tail"}, runner.ran)
}

func TestExpandStopsOnFailure(t *testing.T) {
	runner := &fakeRunner{results: map[string]Result{
		"ok":   {Stdout: "fine"},
		"fail": {Stderr: "boom", ExitCode: 2},
	}}
	e := NewExpander(runner, nil)

	got, err := e.Expand(context.Background(), "!(ok) !(fail) !(ok)")
	require.Error(t, err)
	assert.Empty(t, got, "a partially expanded payload must not be returned")
	assert.True(t, IsKind(err, ErrKindCommandFailed))
	assert.Equal(t, []string{"ok", "fail"}, runner.ran)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "fail", serr.Value)
	assert.Equal(t, 2, serr.ExitCode)
	assert.Equal(t, "boom", serr.Stderr)
}

func TestExpandCommandNotFound(t *testing.T) {
	e := NewExpander(&fakeRunner{}, nil)

	_, err := e.Expand(context.Background(), "x !(nosuchprog --flag)")
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrKindCommandNotFound))
	assert.Contains(t, err.Error(), "nosuchprog")
}

func TestHasMarkers(t *testing.T) {
	assert.True(t, HasMarkers("a !(b) c"))
	assert.False(t, HasMarkers("a !b c"))
	assert.False(t, HasMarkers("!()"))
}

func TestExpandWithShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	e := NewExpander(NewShellRunner(""), nil)

	got, err := e.Expand(context.Background(), "value=!(echo hi)")
	require.NoError(t, err)
	assert.Equal(t, "value=hi\n", got)

	got, err = e.Expand(context.Background(), "!(printf 'a|b' | tr '|' '-')")
	require.NoError(t, err)
	assert.Equal(t, "a-b", got)
}
