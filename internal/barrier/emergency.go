// internal/barrier/emergency.go
package barrier

import "fmt"

// EmergencyOff forces every coil on every board off and cancels every
// pending auto-release timer. The sweep is best-effort: an individual write
// failure is logged and the remaining channels are still written. Lock
// checks do not apply here.
func (s *Service) EmergencyOff(source string) int {
	swept := 0
	for _, bd := range s.boards.All() {
		bd.WithGate(func() error {
			// Timers first, while we own the gate: nothing may fire
			// into a board we are sweeping.
			for _, br := range s.barriers {
				if br.board == bd {
					br.cancelRelease()
				}
			}
			for ch := 0; ch < bd.Channels(); ch++ {
				if err := bd.WriteCoil(uint16(ch), false); err != nil {
					s.log.Error().Err(err).
						Str("board", bd.Key()).
						Int("channel", ch).
						Msg("emergency sweep write failed")
				}
			}
			return nil
		})
		swept++
	}

	s.emit("emergency-off", source, fmt.Sprintf("boards=%d", swept))
	return swept
}
