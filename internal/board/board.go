// internal/board/board.go
package board

import (
	"fmt"
	"sync"

	"github.com/tamzrod/barrier-gateway/internal/frame"
)

// Dialect is the wire framing a board accepts. Boards in the field silently
// drop frames of the wrong dialect instead of answering with an error, so
// the dialect is learned by live probing, never assumed.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectTCP
	DialectRTU
)

func (d Dialect) String() string {
	switch d {
	case DialectTCP:
		return "tcp"
	case DialectRTU:
		return "rtu"
	default:
		return "undetected"
	}
}

// Exchanger runs one raw request/response round trip. Implemented by
// *transport.Conn; tests substitute scripted fakes.
type Exchanger interface {
	Exchange(req []byte, parse func([]byte) ([]byte, error)) ([]byte, error)
	Close() error
}

// Config is the static identity of one relay board.
type Config struct {
	Key      string
	Host     string
	Port     int
	UnitID   uint8
	Channels int
}

// Board owns all runtime state for one relay board: the negotiated dialect,
// the reachability flag, the last coil snapshot and the TCP transaction
// counter. Runtime fields are mutated only under the command gate (monitor
// cycles and actuation sequences); the snapshot accessors are safe anywhere.
type Board struct {
	cfg Config
	ex  Exchanger

	gate sync.Mutex // command gate: serializes all coil I/O on this board

	mu        sync.Mutex // guards the fields below
	dialect   Dialect
	reachable bool
	coils     []bool
	txn       uint16
}

// Snapshot is the last-known state of a board, served without live I/O.
type Snapshot struct {
	Reachable bool
	Dialect   Dialect
	Coils     []bool
}

func New(cfg Config, ex Exchanger) *Board {
	return &Board{
		cfg:   cfg,
		ex:    ex,
		coils: make([]bool, cfg.Channels),
	}
}

func (b *Board) Key() string   { return b.cfg.Key }
func (b *Board) Host() string  { return b.cfg.Host }
func (b *Board) Port() int     { return b.cfg.Port }
func (b *Board) UnitID() uint8 { return b.cfg.UnitID }
func (b *Board) Channels() int { return b.cfg.Channels }

// WithGate runs fn while holding the board's exclusive command gate.
// Callers for the same board queue; different boards never block each
// other. Every coil read or write sequence must run inside the gate.
func (b *Board) WithGate(fn func() error) error {
	b.gate.Lock()
	defer b.gate.Unlock()
	return fn()
}

// tryWithGate runs fn only if the gate is free right now. The monitor uses
// it so a heartbeat never queues behind an in-flight actuation.
func (b *Board) tryWithGate(fn func()) bool {
	if !b.gate.TryLock() {
		return false
	}
	defer b.gate.Unlock()
	fn()
	return true
}

func (b *Board) Dialect() Dialect {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dialect
}

func (b *Board) setDialect(d Dialect) {
	b.mu.Lock()
	b.dialect = d
	b.mu.Unlock()
}

// invalidateDialect forgets the negotiated dialect after any communication
// failure so the next cycle re-probes. A board reconfigured to the other
// framing must be rediscoverable without a restart.
func (b *Board) invalidateDialect() {
	b.setDialect(DialectUnknown)
}

// setReachable flips the reachability flag and reports whether this call
// was an edge transition.
func (b *Board) setReachable(v bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reachable == v {
		return false
	}
	b.reachable = v
	return true
}

func (b *Board) setCoils(coils []bool) {
	b.mu.Lock()
	b.coils = coils
	b.mu.Unlock()
}

// Snapshot returns the cached board state. It never blocks on live I/O.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	coils := make([]bool, len(b.coils))
	copy(coils, b.coils)
	return Snapshot{Reachable: b.reachable, Dialect: b.dialect, Coils: coils}
}

func (b *Board) nextTxn() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txn++
	return b.txn
}

// exchangeAs frames one PDU in the given dialect and runs the exchange.
func (b *Board) exchangeAs(d Dialect, fc byte, payload []byte) ([]byte, error) {
	switch d {
	case DialectTCP:
		req := frame.BuildTCP(b.nextTxn(), b.cfg.UnitID, fc, payload)
		return b.ex.Exchange(req, frame.ParseTCP)
	case DialectRTU:
		req := frame.BuildRTU(b.cfg.UnitID, fc, payload)
		return b.ex.Exchange(req, frame.ParseRTU)
	default:
		return nil, fmt.Errorf("board %s: no dialect negotiated", b.cfg.Key)
	}
}

// roundTrip resolves the dialect (probing if necessary), runs the exchange
// and invalidates the dialect on any failure. Callers must hold the gate.
func (b *Board) roundTrip(fc byte, payload []byte) ([]byte, error) {
	d := b.Dialect()
	if d == DialectUnknown {
		var err error
		d, err = b.DetectDialect()
		if err != nil {
			return nil, err
		}
	}
	pdu, err := b.exchangeAs(d, fc, payload)
	if err != nil {
		b.invalidateDialect()
		return nil, err
	}
	return pdu, nil
}

// ReadCoils reads quantity coil states starting at start. Callers must
// hold the board gate.
func (b *Board) ReadCoils(start, quantity uint16) ([]bool, error) {
	pdu, err := b.roundTrip(frame.FuncReadCoils, frame.ReadCoilsPayload(start, quantity))
	if err != nil {
		return nil, err
	}
	if err := checkReadCoilsPDU(pdu); err != nil {
		b.invalidateDialect()
		return nil, fmt.Errorf("board %s: %w", b.cfg.Key, err)
	}
	return frame.UnpackBits(pdu[2:2+int(pdu[1])], int(quantity)), nil
}

// WriteCoil forces a single coil on or off. Callers must hold the board
// gate.
func (b *Board) WriteCoil(addr uint16, on bool) error {
	pdu, err := b.roundTrip(frame.FuncWriteSingleCoil, frame.WriteCoilPayload(addr, on))
	if err != nil {
		return err
	}
	if len(pdu) < 1 || pdu[0] != frame.FuncWriteSingleCoil {
		b.invalidateDialect()
		return fmt.Errorf("board %s: unexpected write-coil echo", b.cfg.Key)
	}
	return nil
}

func checkReadCoilsPDU(pdu []byte) error {
	if len(pdu) < 2 || pdu[0] != frame.FuncReadCoils {
		return fmt.Errorf("unexpected read-coils response shape")
	}
	if len(pdu)-2 < int(pdu[1]) {
		return fmt.Errorf("read-coils payload shorter than byte count")
	}
	return nil
}

// Close drops the underlying connection.
func (b *Board) Close() error {
	return b.ex.Close()
}
