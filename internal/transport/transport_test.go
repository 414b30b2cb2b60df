// internal/transport/transport_test.go
package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/tamzrod/barrier-gateway/internal/frame"
)

// pipeDialer hands out the client ends of pre-made pipes, one per dial.
type pipeDialer struct {
	conns []net.Conn
	calls int
}

func (d *pipeDialer) dial(address string, timeout time.Duration) (net.Conn, error) {
	d.calls++
	if len(d.conns) == 0 {
		return nil, errors.New("no more conns scripted")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

// serve reads one request off the server end, then writes the response in
// the given chunks with a short gap between them.
func serve(t *testing.T, conn net.Conn, chunks [][]byte) {
	t.Helper()
	go func() {
		buf := make([]byte, 256)
		if _, err := conn.Read(buf); err != nil {
			return
		}
		for _, chunk := range chunks {
			time.Sleep(5 * time.Millisecond)
			if _, err := conn.Write(chunk); err != nil {
				return
			}
		}
	}()
}

func split(b []byte, at ...int) [][]byte {
	var chunks [][]byte
	prev := 0
	for _, i := range at {
		chunks = append(chunks, b[prev:i])
		prev = i
	}
	return append(chunks, b[prev:])
}

func TestExchange_SplitResponse(t *testing.T) {
	client, server := net.Pipe()
	d := &pipeDialer{conns: []net.Conn{client}}
	c := New(Config{Address: "board-a:502", Timeout: time.Second, Dial: d.dial})

	resp := frame.BuildRTU(1, frame.FuncReadCoils, []byte{2, 0xA5, 0x01})
	serve(t, server, split(resp, 1, 3, 5))

	req := frame.BuildRTU(1, frame.FuncReadCoils, frame.ReadCoilsPayload(0, 9))
	pdu, err := c.Exchange(req, frame.ParseRTU)
	if err != nil {
		t.Fatalf("Exchange err=%v", err)
	}
	if pdu[0] != frame.FuncReadCoils || pdu[1] != 2 {
		t.Fatalf("pdu = % X", pdu)
	}
}

func TestExchange_Timeout(t *testing.T) {
	client, server := net.Pipe()
	d := &pipeDialer{conns: []net.Conn{client}}
	c := New(Config{Address: "board-a:502", Timeout: 50 * time.Millisecond, Dial: d.dial})

	serve(t, server, nil) // reads the request, never answers

	req := frame.BuildRTU(1, frame.FuncReadCoils, frame.ReadCoilsPayload(0, 8))
	_, err := c.Exchange(req, frame.ParseRTU)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("err=%v, want TimeoutError", err)
	}
}

func TestExchange_ProtocolError(t *testing.T) {
	client, server := net.Pipe()
	d := &pipeDialer{conns: []net.Conn{client}}
	c := New(Config{Address: "board-a:502", Timeout: time.Second, Dial: d.dial})

	bad := frame.BuildRTU(1, frame.FuncReadCoils, []byte{1, 0x01})
	bad[3] ^= 0x10 // break the CRC
	serve(t, server, [][]byte{bad})

	req := frame.BuildRTU(1, frame.FuncReadCoils, frame.ReadCoilsPayload(0, 8))
	_, err := c.Exchange(req, frame.ParseRTU)

	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%v, want ProtocolError", err)
	}
	var cks *frame.ChecksumError
	if !errors.As(err, &cks) {
		t.Fatalf("err=%v, want wrapped ChecksumError", err)
	}
}

func TestExchange_ModbusException(t *testing.T) {
	client, server := net.Pipe()
	d := &pipeDialer{conns: []net.Conn{client}}
	c := New(Config{Address: "board-a:502", Timeout: time.Second, Dial: d.dial})

	exc := frame.AppendChecksum([]byte{1, frame.FuncReadCoils | 0x80, 0x02})
	serve(t, server, [][]byte{exc})

	req := frame.BuildRTU(1, frame.FuncReadCoils, frame.ReadCoilsPayload(0, 8))
	_, err := c.Exchange(req, frame.ParseRTU)

	var ee *frame.ExceptionError
	if !errors.As(err, &ee) {
		t.Fatalf("err=%v, want wrapped ExceptionError", err)
	}
	if ee.Code != 0x02 {
		t.Fatalf("exception code = %d, want 2", ee.Code)
	}
}

func TestExchange_ConnectError(t *testing.T) {
	d := &pipeDialer{} // every dial fails
	c := New(Config{Address: "board-a:502", Timeout: time.Second, Dial: d.dial})

	req := frame.BuildRTU(1, frame.FuncReadCoils, frame.ReadCoilsPayload(0, 8))
	_, err := c.Exchange(req, frame.ParseRTU)

	var ce *ConnectError
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v, want ConnectError", err)
	}
	if d.calls != 2 {
		t.Fatalf("dial calls = %d, want 2 (one retry)", d.calls)
	}
}

// A connection the board side dropped must be redialed transparently
// within one Exchange call.
func TestExchange_RedialAfterPeerClose(t *testing.T) {
	client1, server1 := net.Pipe()
	client2, server2 := net.Pipe()
	d := &pipeDialer{conns: []net.Conn{client1, client2}}
	c := New(Config{Address: "board-a:502", Timeout: time.Second, Dial: d.dial})

	resp := frame.BuildRTU(1, frame.FuncWriteSingleCoil, []byte{0x00, 0x02, 0xFF, 0x00})
	serve(t, server1, [][]byte{resp})

	req := frame.BuildRTU(1, frame.FuncWriteSingleCoil, frame.WriteCoilPayload(2, true))
	if _, err := c.Exchange(req, frame.ParseRTU); err != nil {
		t.Fatalf("first Exchange err=%v", err)
	}

	server1.Close()
	serve(t, server2, [][]byte{resp})

	if _, err := c.Exchange(req, frame.ParseRTU); err != nil {
		t.Fatalf("second Exchange err=%v", err)
	}
	if d.calls != 2 {
		t.Fatalf("dial calls = %d, want 2", d.calls)
	}
}
