package serialshell

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Transport is the byte-oriented connection commands are executed against.
//
// Reads are bounded by the transport's timeout. A read that times out
// returns whatever was received so far with a nil error; only a fault in
// the underlying device is reported as an error.
type Transport interface {
	Write(p []byte) (int, error)
	Read(n int) ([]byte, error)
	ReadUntil(delimiter []byte) ([]byte, error)
}

// Port is the subset of a serial port used by PortTransport.
// A Read that times out returns 0 bytes and a nil error.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// PortConfig holds the parameters used to open a serial port.
type PortConfig struct {
	Name     string
	BaudRate int
	DataBits int
	Parity   string // N, E, O, M or S
	StopBits string // 1, 1.5 or 2
	Timeout  time.Duration
}

// PortTransport implements Transport over a serial Port.
type PortTransport struct {
	port    Port
	name    string
	timeout time.Duration

	// now is replaceable for tests.
	now func() time.Time
}

// NewPortTransport wraps an open port. A timeout of zero or less makes
// reads block until the requested data arrives.
func NewPortTransport(port Port, name string, timeout time.Duration) *PortTransport {
	return &PortTransport{
		port:    port,
		name:    name,
		timeout: timeout,
		now:     time.Now,
	}
}

// OpenPort opens the serial port described by cfg.
func OpenPort(cfg PortConfig) (*PortTransport, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(cfg.Name, mode)
	if err != nil {
		return nil, NewTransportError(fmt.Sprintf("failed to open %s", cfg.Name), err)
	}
	return NewPortTransport(port, cfg.Name, cfg.Timeout), nil
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, NewTransportError("failed to list ports", err)
	}
	return ports, nil
}

// Mode converts the configuration into a serial.Mode, applying defaults for
// unset fields.
func (c PortConfig) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
	}
	if mode.BaudRate <= 0 {
		mode.BaudRate = DefaultBaudRate
	}
	if mode.DataBits == 0 {
		mode.DataBits = DefaultDataBits
	}
	if mode.DataBits < 5 || mode.DataBits > 8 {
		return nil, newMalformedArgumentError(fmt.Sprint(c.DataBits), "data bits must be between 5 and 8")
	}

	parity, err := parseParity(c.Parity)
	if err != nil {
		return nil, err
	}
	mode.Parity = parity

	stopBits, err := parseStopBits(c.StopBits)
	if err != nil {
		return nil, err
	}
	mode.StopBits = stopBits

	return mode, nil
}

func parseParity(s string) (serial.Parity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "N", "NONE":
		return serial.NoParity, nil
	case "E", "EVEN":
		return serial.EvenParity, nil
	case "O", "ODD":
		return serial.OddParity, nil
	case "M", "MARK":
		return serial.MarkParity, nil
	case "S", "SPACE":
		return serial.SpaceParity, nil
	default:
		return serial.NoParity, newMalformedArgumentError(s, "parity must be one of N, E, O, M, S")
	}
}

func parseStopBits(s string) (serial.StopBits, error) {
	switch strings.TrimSpace(s) {
	case "", "1":
		return serial.OneStopBit, nil
	case "1.5":
		return serial.OnePointFiveStopBits, nil
	case "2":
		return serial.TwoStopBits, nil
	default:
		return serial.OneStopBit, newMalformedArgumentError(s, "stop bits must be 1, 1.5 or 2")
	}
}

// Name returns the port identifier.
func (t *PortTransport) Name() string {
	return t.name
}

// Timeout returns the read timeout.
func (t *PortTransport) Timeout() time.Duration {
	return t.timeout
}

// Close releases the port.
func (t *PortTransport) Close() error {
	return t.port.Close()
}

// Write writes all of p to the port.
func (t *PortTransport) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := t.port.Write(p[written:])
		written += n
		if err != nil {
			return written, NewTransportError("write failed", err)
		}
		if n == 0 {
			return written, NewTransportError("write failed", io.ErrShortWrite)
		}
	}
	return written, nil
}

// Read reads up to n bytes, returning early if the timeout expires.
func (t *PortTransport) Read(n int) ([]byte, error) {
	if n <= 0 {
		return []byte{}, nil
	}
	deadline := t.now().Add(t.timeout)
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)

	for len(buf) < n {
		ok, err := t.arm(deadline)
		if err != nil {
			return buf, err
		}
		if !ok {
			break
		}
		k, err := t.port.Read(chunk[:n-len(buf)])
		buf = append(buf, chunk[:k]...)
		if err != nil {
			return buf, NewTransportError("read failed", err)
		}
		if k == 0 {
			break
		}
	}
	return buf, nil
}

// ReadUntil reads until delimiter has been received or the timeout expires.
// The delimiter is included in the returned bytes when it was seen.
func (t *PortTransport) ReadUntil(delimiter []byte) ([]byte, error) {
	if len(delimiter) == 0 {
		return []byte{}, nil
	}
	deadline := t.now().Add(t.timeout)
	var buf []byte
	one := make([]byte, 1)

	for {
		ok, err := t.arm(deadline)
		if err != nil {
			return buf, err
		}
		if !ok {
			return buf, nil
		}
		k, err := t.port.Read(one)
		if k > 0 {
			buf = append(buf, one[0])
		}
		if err != nil {
			return buf, NewTransportError("read failed", err)
		}
		if k == 0 {
			return buf, nil
		}
		if bytes.HasSuffix(buf, delimiter) {
			return buf, nil
		}
	}
}

// Receive performs a single read of at most max bytes, waiting no longer
// than the timeout. It is used to stream whatever the device sends.
func (t *PortTransport) Receive(max int) ([]byte, error) {
	if max <= 0 {
		return []byte{}, nil
	}
	if _, err := t.arm(t.now().Add(t.timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, max)
	k, err := t.port.Read(buf)
	if err != nil {
		return buf[:k], NewTransportError("read failed", err)
	}
	return buf[:k], nil
}

// arm sets the port read timeout to the time left before deadline. It
// returns false once the deadline has passed.
func (t *PortTransport) arm(deadline time.Time) (bool, error) {
	timeout := serial.NoTimeout
	if t.timeout > 0 {
		timeout = deadline.Sub(t.now())
		if timeout <= 0 {
			return false, nil
		}
	}
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return false, NewTransportError("failed to set read timeout", err)
	}
	return true, nil
}
