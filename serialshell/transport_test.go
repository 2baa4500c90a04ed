package serialshell

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortTransportWrite(t *testing.T) {
	port := newFakePort("")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	n, err := tr.Write([]byte("AT\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "AT\n", port.output.String())
}

func TestPortTransportWriteError(t *testing.T) {
	port := newFakePort("")
	port.writeErr = errors.New("device gone")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	_, err := tr.Write([]byte("x"))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestPortTransportReadFixed(t *testing.T) {
	port := newFakePort("0123456789abc")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	got, err := tr.Read(10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(got))

	rest, err := tr.Read(10)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(rest), "a short read on timeout is not an error")
}

func TestPortTransportReadZero(t *testing.T) {
	port := newFakePort("data")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	got, err := tr.Read(0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 4, port.input.Len(), "read 0 must not consume input")
}

func TestPortTransportReadUntil(t *testing.T) {
	port := newFakePort("line one\nOK\nleftover")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	got, err := tr.ReadUntil([]byte("OK"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nOK", string(got))
	assert.Equal(t, "\nleftover", port.input.String(), "bytes after the delimiter stay buffered")
}

func TestPortTransportReadUntilTimeoutReturnsPartial(t *testing.T) {
	port := newFakePort("no terminator here")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	got, err := tr.ReadUntil([]byte(ResponseTerminator))
	require.NoError(t, err)
	assert.Equal(t, "no terminator here", string(got))
}

func TestPortTransportReadUntilDeadline(t *testing.T) {
	port := &fakePort{stream: "a"}
	tr := NewPortTransport(port, "/dev/fake", 3*time.Second)
	tr.now = steppingClock(time.Second)

	got, err := tr.ReadUntil([]byte("Z"))
	require.NoError(t, err)
	assert.Equal(t, "aa", string(got))
	require.NotEmpty(t, port.timeouts)
	assert.Equal(t, 2*time.Second, port.timeouts[0])
}

func TestPortTransportReadDeadline(t *testing.T) {
	port := &fakePort{stream: "b"}
	tr := NewPortTransport(port, "/dev/fake", 2*time.Second)
	tr.now = steppingClock(time.Second)

	got, err := tr.Read(1)
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestPortTransportNoTimeoutBlocks(t *testing.T) {
	port := newFakePort("abc")
	tr := NewPortTransport(port, "/dev/fake", 0)

	got, err := tr.Read(3)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	for _, timeout := range port.timeouts {
		assert.Equal(t, serial.NoTimeout, timeout)
	}
}

func TestPortTransportReadError(t *testing.T) {
	port := newFakePort("")
	port.readErr = errors.New("unplugged")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	_, err := tr.Read(4)
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	_, err = tr.ReadUntil([]byte("OK"))
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "unplugged")
}

func TestPortTransportReceive(t *testing.T) {
	port := newFakePort("hello")
	tr := NewPortTransport(port, "/dev/fake", time.Second)

	got, err := tr.Receive(64)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = tr.Receive(64)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPortTransportClose(t *testing.T) {
	port := newFakePort("")
	tr := NewPortTransport(port, "/dev/fake", time.Second)
	require.NoError(t, tr.Close())
	assert.True(t, port.closed)
	assert.Equal(t, "/dev/fake", tr.Name())
	assert.Equal(t, time.Second, tr.Timeout())
}

func TestPortConfigMode(t *testing.T) {
	mode, err := PortConfig{Name: "/dev/ttyUSB0"}.Mode()
	require.NoError(t, err)
	assert.Equal(t, DefaultBaudRate, mode.BaudRate)
	assert.Equal(t, DefaultDataBits, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)

	mode, err = PortConfig{BaudRate: 115200, DataBits: 7, Parity: "e", StopBits: "2"}.Mode()
	require.NoError(t, err)
	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
}

func TestPortConfigModeErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  PortConfig
	}{
		{"data bits", PortConfig{DataBits: 9}},
		{"parity", PortConfig{Parity: "X"}},
		{"stop bits", PortConfig{StopBits: "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Mode()
			require.Error(t, err)
			assert.True(t, IsKind(err, ErrKindMalformedArgument))
		})
	}
}

func TestParseParity(t *testing.T) {
	tests := map[string]serial.Parity{
		"":      serial.NoParity,
		"n":     serial.NoParity,
		"odd":   serial.OddParity,
		"M":     serial.MarkParity,
		"space": serial.SpaceParity,
	}
	for in, want := range tests {
		got, err := parseParity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseStopBits(t *testing.T) {
	got, err := parseStopBits("1.5")
	require.NoError(t, err)
	assert.Equal(t, serial.OnePointFiveStopBits, got)
}
