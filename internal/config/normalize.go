// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultTimeoutMs   = 1000
	DefaultPollMs      = 2000
	DefaultSettleMs    = 100
	DefaultStopPulseMs = 500
	DefaultCloseHoldMs = 5000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for i := range cfg.Gateway.Boards {
		b := &cfg.Gateway.Boards[i]
		if b.TimeoutMs <= 0 {
			b.TimeoutMs = DefaultTimeoutMs
		}
		if b.PollMs <= 0 {
			b.PollMs = DefaultPollMs
		}
	}

	for i := range cfg.Gateway.Barriers {
		br := &cfg.Gateway.Barriers[i]
		br.StringID = strings.ToLower(br.StringID)
	}

	t := &cfg.Gateway.Timing
	if t.SettleMs == 0 {
		t.SettleMs = DefaultSettleMs
	}
	if t.StopPulseMs == 0 {
		t.StopPulseMs = DefaultStopPulseMs
	}
	if t.CloseHoldMs == 0 {
		t.CloseHoldMs = DefaultCloseHoldMs
	}
	// LiftPulseMs deliberately keeps its zero: zero means lift holds.
}
