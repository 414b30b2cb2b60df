// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	// ------------------------------------------------------------
	// BOARD VALIDATION
	// ------------------------------------------------------------

	boards := make(map[string]BoardConfig)

	if len(cfg.Gateway.Boards) == 0 {
		return fmt.Errorf("at least one board is required")
	}

	for _, b := range cfg.Gateway.Boards {
		if b.Key == "" {
			return fmt.Errorf("board with empty key")
		}
		if _, exists := boards[b.Key]; exists {
			return fmt.Errorf("duplicate board key %q", b.Key)
		}
		if b.Host == "" {
			return fmt.Errorf("board %q: host is required", b.Key)
		}
		if b.Port <= 0 || b.Port > 65535 {
			return fmt.Errorf("board %q: port %d out of range", b.Key, b.Port)
		}
		if b.Channels <= 0 || b.Channels > 2000 {
			return fmt.Errorf("board %q: channels %d out of range", b.Key, b.Channels)
		}
		boards[b.Key] = b
	}

	// ------------------------------------------------------------
	// BARRIER VALIDATION
	// ------------------------------------------------------------

	byID := make(map[int]string)
	byStringID := make(map[string]string)

	for _, br := range cfg.Gateway.Barriers {
		if br.Name == "" {
			return fmt.Errorf("barrier id=%d: name is required", br.ID)
		}
		if br.StringID == "" {
			return fmt.Errorf("barrier %q: string_id is required", br.Name)
		}
		if prev, exists := byID[br.ID]; exists {
			return fmt.Errorf("duplicate barrier id %d used by %q and %q", br.ID, prev, br.Name)
		}
		byID[br.ID] = br.Name

		// Compared lowercased: Normalize folds string ids to lower case,
		// so ids differing only in case would collide after it.
		sid := strings.ToLower(br.StringID)
		if prev, exists := byStringID[sid]; exists {
			return fmt.Errorf("duplicate barrier string_id %q used by %q and %q", br.StringID, prev, br.Name)
		}
		byStringID[sid] = br.Name

		bd, ok := boards[br.Board]
		if !ok {
			return fmt.Errorf("barrier %q: unknown board %q", br.Name, br.Board)
		}

		coils := map[string]uint16{
			"lift_coil":  br.LiftCoil,
			"close_coil": br.CloseCoil,
			"stop_coil":  br.StopCoil,
		}
		for field, coil := range coils {
			if int(coil) >= bd.Channels {
				return fmt.Errorf(
					"barrier %q: %s %d outside board %q channel count %d",
					br.Name, field, coil, bd.Key, bd.Channels,
				)
			}
		}
		if br.LiftCoil == br.CloseCoil || br.LiftCoil == br.StopCoil || br.CloseCoil == br.StopCoil {
			return fmt.Errorf("barrier %q: lift/close/stop coils must be distinct", br.Name)
		}
	}

	// ------------------------------------------------------------
	// TIMING VALIDATION
	// ------------------------------------------------------------

	t := cfg.Gateway.Timing
	for name, v := range map[string]int{
		"settle_ms":     t.SettleMs,
		"lift_pulse_ms": t.LiftPulseMs,
		"stop_pulse_ms": t.StopPulseMs,
		"close_hold_ms": t.CloseHoldMs,
	} {
		if v < 0 {
			return fmt.Errorf("timing: %s must not be negative", name)
		}
	}

	return nil
}
