// internal/board/monitor.go
package board

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Monitor is the per-board heartbeat. Each cycle refreshes the coil
// snapshot and the reachability flag; transitions are reported once, on
// the edge, not on every poll.
type Monitor struct {
	board    *Board
	interval time.Duration
	log      zerolog.Logger

	// OnChange, when set, is invoked on every reachability edge.
	OnChange func(b *Board, reachable bool)
}

func NewMonitor(b *Board, interval time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		board:    b,
		interval: interval,
		log:      log.With().Str("board", b.Key()).Logger(),
	}
}

// Run drives PollOnce on a fixed ticker until ctx is done. One goroutine
// per board.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.PollOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.PollOnce()
		}
	}
}

// PollOnce performs one heartbeat cycle. If the command gate is held by an
// in-flight actuation the cycle is skipped outright: a heartbeat must never
// interleave with a write sequence.
func (m *Monitor) PollOnce() {
	if !m.board.tryWithGate(m.poll) {
		m.log.Debug().Msg("gate held, heartbeat skipped")
	}
}

func (m *Monitor) poll() {
	b := m.board

	if b.Dialect() == DialectUnknown {
		if _, err := b.DetectDialect(); err != nil {
			// Not a verdict on reachability: the cycle just ends
			// and the next one re-probes.
			m.log.Debug().Err(err).Msg("dialect probe failed")
			return
		}
		m.log.Info().Stringer("dialect", b.Dialect()).Msg("dialect negotiated")
	}

	coils, err := b.ReadCoils(0, uint16(b.Channels()))
	if err != nil {
		m.fail(err)
		return
	}

	b.setCoils(coils)
	if b.setReachable(true) {
		m.log.Info().Msg("board reachable")
		if m.OnChange != nil {
			m.OnChange(b, true)
		}
	}
}

func (m *Monitor) fail(err error) {
	b := m.board
	b.invalidateDialect()
	if b.setReachable(false) {
		m.log.Warn().Err(err).Msg("board unreachable")
		if m.OnChange != nil {
			m.OnChange(b, false)
		}
	}
}
