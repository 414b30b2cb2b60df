// internal/board/negotiate.go
package board

import (
	"errors"
	"fmt"

	"github.com/tamzrod/barrier-gateway/internal/frame"
)

// ErrUnavailable means neither dialect produced a valid response; the board
// is unreachable or speaking something unsupported.
var ErrUnavailable = errors.New("board: unavailable in both dialects")

// DetectDialect probes the board with a real read of all its coils, first
// framed as Modbus TCP, then as RTU-over-TCP. Header inspection is useless
// here: wrong-dialect frames are dropped silently, so only a completed
// round trip proves anything. On success the dialect is cached; on double
// failure it stays unknown so the next cycle re-probes from scratch.
// Callers must hold the board gate.
func (b *Board) DetectDialect() (Dialect, error) {
	payload := frame.ReadCoilsPayload(0, uint16(b.cfg.Channels))

	tcpErr := b.probe(DialectTCP, payload)
	if tcpErr == nil {
		b.setDialect(DialectTCP)
		return DialectTCP, nil
	}

	rtuErr := b.probe(DialectRTU, payload)
	if rtuErr == nil {
		b.setDialect(DialectRTU)
		return DialectRTU, nil
	}

	b.setDialect(DialectUnknown)
	return DialectUnknown, fmt.Errorf("%w (key=%s): tcp: %v; rtu: %v",
		ErrUnavailable, b.cfg.Key, tcpErr, rtuErr)
}

func (b *Board) probe(d Dialect, payload []byte) error {
	pdu, err := b.exchangeAs(d, frame.FuncReadCoils, payload)
	if err != nil {
		return err
	}
	return checkReadCoilsPDU(pdu)
}
