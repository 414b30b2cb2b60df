// internal/config/validate_test.go
package config

import "testing"

// helpers to build a config quickly

func boardCfg(key string, channels int) BoardConfig {
	return BoardConfig{
		Key:      key,
		Host:     "10.0.0.7",
		Port:     502,
		UnitID:   1,
		Channels: channels,
	}
}

func barrierCfg(id int, stringID, boardKey string, lift, close, stop uint16) BarrierConfig {
	return BarrierConfig{
		ID:        id,
		StringID:  stringID,
		Name:      stringID,
		Board:     boardKey,
		LiftCoil:  lift,
		CloseCoil: close,
		StopCoil:  stop,
	}
}

func gateway(boards []BoardConfig, barriers []BarrierConfig) *Config {
	return &Config{
		Gateway: GatewayConfig{
			Boards:   boards,
			Barriers: barriers,
		},
	}
}

// ---- tests ----

func TestValidate_OK(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8), boardCfg("b2", 4)},
		[]BarrierConfig{
			barrierCfg(1, "north", "b1", 0, 1, 2),
			barrierCfg(2, "south", "b2", 0, 1, 2),
		},
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NoBoards(t *testing.T) {
	cfg := gateway(nil, nil)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidate_DuplicateBoardKey(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8), boardCfg("b1", 8)},
		nil,
	)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidate_UnknownBoardReference(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8)},
		[]BarrierConfig{barrierCfg(1, "north", "nope", 0, 1, 2)},
	)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidate_CoilOutsideChannelCount(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 4)},
		[]BarrierConfig{barrierCfg(1, "north", "b1", 0, 1, 4)},
	)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidate_CoilsNotDistinct(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8)},
		[]BarrierConfig{barrierCfg(1, "north", "b1", 0, 0, 2)},
	)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidate_DuplicateBarrierIDs(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8)},
		[]BarrierConfig{
			barrierCfg(1, "north", "b1", 0, 1, 2),
			barrierCfg(1, "south", "b1", 3, 4, 5),
		},
	)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Normalize lowercases string ids, so ids differing only in case would
// collide in the resolver. Validate must reject them up front.
func TestValidate_DuplicateStringIDsByCase(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8)},
		[]BarrierConfig{
			barrierCfg(1, "Main", "b1", 0, 1, 2),
			barrierCfg(2, "main", "b1", 3, 4, 5),
		},
	)

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestValidate_NegativeTiming(t *testing.T) {
	cfg := gateway([]BoardConfig{boardCfg("b1", 8)}, nil)
	cfg.Gateway.Timing.CloseHoldMs = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := gateway(
		[]BoardConfig{boardCfg("b1", 8)},
		[]BarrierConfig{barrierCfg(1, "North", "b1", 0, 1, 2)},
	)

	Normalize(cfg)

	b := cfg.Gateway.Boards[0]
	if b.TimeoutMs != DefaultTimeoutMs || b.PollMs != DefaultPollMs {
		t.Fatalf("board defaults: timeout=%d poll=%d", b.TimeoutMs, b.PollMs)
	}

	if got := cfg.Gateway.Barriers[0].StringID; got != "north" {
		t.Fatalf("string_id = %q, want lowercased", got)
	}

	tm := cfg.Gateway.Timing
	if tm.SettleMs != DefaultSettleMs || tm.StopPulseMs != DefaultStopPulseMs || tm.CloseHoldMs != DefaultCloseHoldMs {
		t.Fatalf("timing defaults: %+v", tm)
	}
	if tm.LiftPulseMs != 0 {
		t.Fatalf("lift_pulse_ms = %d, zero means hold", tm.LiftPulseMs)
	}
}
