// internal/config/config.go
package config

type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
}

type GatewayConfig struct {
	Boards   []BoardConfig   `yaml:"boards"`
	Barriers []BarrierConfig `yaml:"barriers"`
	Timing   TimingConfig    `yaml:"timing"`
}

// ---- BOARD ----

type BoardConfig struct {
	Key      string `yaml:"key"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	UnitID   uint8  `yaml:"unit_id"`
	Channels int    `yaml:"channels"`

	TimeoutMs int `yaml:"timeout_ms"`
	PollMs    int `yaml:"poll_ms"`
}

// ---- BARRIER ----

type BarrierConfig struct {
	ID       int    `yaml:"id"`
	StringID string `yaml:"string_id"`
	Name     string `yaml:"name"`
	Board    string `yaml:"board"`

	LiftCoil  uint16 `yaml:"lift_coil"`
	CloseCoil uint16 `yaml:"close_coil"`
	StopCoil  uint16 `yaml:"stop_coil"`
}

// ---- TIMING ----

type TimingConfig struct {
	SettleMs    int `yaml:"settle_ms"`
	LiftPulseMs int `yaml:"lift_pulse_ms"` // 0 = lift holds until released
	StopPulseMs int `yaml:"stop_pulse_ms"`
	CloseHoldMs int `yaml:"close_hold_ms"`
}
