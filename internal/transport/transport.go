// internal/transport/transport.go
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/tamzrod/barrier-gateway/internal/frame"
)

// Dialer opens a connection to a board endpoint. Tests substitute one end
// of a net.Pipe here.
type Dialer func(address string, timeout time.Duration) (net.Conn, error)

// Config is minimal per-endpoint transport config.
type Config struct {
	Address string
	Timeout time.Duration
	Dial    Dialer // nil means net.DialTimeout
}

// Conn owns the single logical connection to one relay board. It is not
// safe for concurrent use; the board gate serializes callers.
type Conn struct {
	cfg  Config
	dial Dialer
	sock net.Conn
}

// ConnectError means the socket to the board could not be established.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("transport: connect %s: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TimeoutError means no complete, valid frame arrived within the deadline.
type TimeoutError struct {
	Address string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transport: timeout waiting for response from %s", e.Address)
}

// ProtocolError wraps a well-formed-but-erroneous response: a Modbus
// exception, a CRC mismatch, or a frame the codec cannot decode.
type ProtocolError struct {
	Address string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("transport: protocol error from %s: %v", e.Address, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// New creates an unconnected transport for one endpoint. The socket is
// dialed lazily on the first exchange.
func New(cfg Config) *Conn {
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	dial := cfg.Dial
	if dial == nil {
		dial = func(address string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", address, timeout)
		}
	}
	return &Conn{cfg: cfg, dial: dial}
}

// Exchange writes one request and assembles one response. parse is called
// on the accumulated bytes after every read; frame.ErrIncomplete keeps the
// loop buffering. Relay boards are observed to split a single response
// across several TCP segments, so a one-read receive is not enough.
func (c *Conn) Exchange(req []byte, parse func([]byte) ([]byte, error)) ([]byte, error) {
	pdu, err := c.exchange(req, parse)
	if err != nil {
		// One retry on a dead socket: the board side drops idle
		// connections and the first write after that fails.
		var ce *ConnectError
		if errors.As(err, &ce) || isWriteFailure(err) {
			pdu, err = c.exchange(req, parse)
		}
	}
	if err != nil {
		var we *writeError
		if errors.As(err, &we) {
			err = &ConnectError{Address: c.cfg.Address, Err: we.err}
		}
		return nil, err
	}
	return pdu, nil
}

func (c *Conn) exchange(req []byte, parse func([]byte) ([]byte, error)) ([]byte, error) {
	if c.sock == nil {
		sock, err := c.dial(c.cfg.Address, c.cfg.Timeout)
		if err != nil {
			return nil, &ConnectError{Address: c.cfg.Address, Err: err}
		}
		c.sock = sock
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if err := c.sock.SetDeadline(deadline); err != nil {
		c.drop()
		return nil, &ConnectError{Address: c.cfg.Address, Err: err}
	}

	if _, err := c.sock.Write(req); err != nil {
		c.drop()
		return nil, &writeError{err}
	}

	buf := make([]byte, 0, 64)
	chunk := make([]byte, 256)
	for {
		n, err := c.sock.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			pdu, perr := parse(buf)
			switch {
			case perr == nil:
				return pdu, nil
			case errors.Is(perr, frame.ErrIncomplete):
				// keep buffering
			default:
				c.drop()
				return nil, &ProtocolError{Address: c.cfg.Address, Err: perr}
			}
		}
		if err != nil {
			c.drop()
			if isTimeout(err) {
				return nil, &TimeoutError{Address: c.cfg.Address}
			}
			return nil, &ConnectError{Address: c.cfg.Address, Err: err}
		}
	}
}

// Close drops the connection; the next exchange redials.
func (c *Conn) Close() error {
	if c.sock == nil {
		return nil
	}
	err := c.sock.Close()
	c.sock = nil
	return err
}

func (c *Conn) drop() {
	if c.sock != nil {
		c.sock.Close()
		c.sock = nil
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

type writeError struct{ err error }

func (e *writeError) Error() string { return "transport: write: " + e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

func isWriteFailure(err error) bool {
	var we *writeError
	return errors.As(err, &we)
}
