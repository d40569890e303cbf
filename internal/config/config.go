// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Name     string         `yaml:"name"`
	Memory   MemoryConfig   `yaml:"memory"`
	Bus      BusConfig      `yaml:"bus"`
	Operator OperatorConfig `yaml:"operator"`
	IO       *IOConfig      `yaml:"io"`
	Timing   TimingConfig   `yaml:"timing"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	Status   *StatusConfig  `yaml:"status"`
	Journal  JournalConfig  `yaml:"journal"`
}

// ---- CREDENTIAL MEMORY ----

type MemoryConfig struct {
	Backend string `yaml:"backend"` // ram | file | sqlite
	Path    string `yaml:"path"`
	Size    int    `yaml:"size"`
}

// ---- TOKEN BUS ----

type BusConfig struct {
	Device    string `yaml:"device"` // DS2480B serial adapter
	TimeoutMs int    `yaml:"timeout_ms"`
	Page      uint16 `yaml:"page"` // authenticated page; only 0 is supported
}

// ---- OPERATOR LINK ----

type OperatorConfig struct {
	Device string `yaml:"device"` // empty = stdio
	Baud   int    `yaml:"baud"`
}

// ---- REMOTE I/O (optional) ----

type IOConfig struct {
	// Exactly one of Endpoint (Modbus TCP) or Serial (Modbus RTU).
	Endpoint  string        `yaml:"endpoint"`
	Serial    *SerialConfig `yaml:"serial"`
	UnitID    uint8         `yaml:"unit_id"`
	TimeoutMs int           `yaml:"timeout_ms"`

	Coils  CoilConfig  `yaml:"coils"`
	Inputs InputConfig `yaml:"inputs"`
	LEDs   *LEDConfig  `yaml:"leds"`
}

type SerialConfig struct {
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"` // N | E | O
	StopBits int    `yaml:"stop_bits"`
}

// CoilConfig maps each actuator to a coil address. Unset actuators are not driven.
type CoilConfig struct {
	DoorPower *uint16 `yaml:"door_power"`
	Open      *uint16 `yaml:"open"`
	Close     *uint16 `yaml:"close"`
	Solenoid  *uint16 `yaml:"solenoid"`
	Horn      *uint16 `yaml:"horn"`
	Backlight *uint16 `yaml:"backlight"`
}

// InputConfig maps auxiliary inputs to bit addresses read with FC (1 or 2).
type InputConfig struct {
	FC        uint8   `yaml:"fc"`
	Release   *uint16 `yaml:"release"`
	Horn      *uint16 `yaml:"horn"`
	Mains     *uint16 `yaml:"mains"`
	ActiveLow bool    `yaml:"active_low"` // release and horn assert low; mains is active high
	PollMs    int     `yaml:"poll_ms"`    // 0 = sample inline every cycle
}

// LEDConfig maps the two indicator channels to holding registers (0..255).
type LEDConfig struct {
	Green uint16 `yaml:"green"`
	Red   uint16 `yaml:"red"`
}

// ---- TIMING ----

type TimingConfig struct {
	CommandTimeoutMs int `yaml:"command_timeout_ms"`
	ButtonMs         int `yaml:"button_ms"`
	ToggleMs         int `yaml:"toggle_ms"`
	HoldMs           int `yaml:"hold_ms"`
	SolenoidMs       int `yaml:"solenoid_ms"`
	AlarmMs          int `yaml:"alarm_ms"`
	CycleMs          int `yaml:"cycle_ms"`
	FrameMs          int `yaml:"frame_ms"`
	JitterMinUs      int `yaml:"jitter_min_us"`
	JitterMaxUs      int `yaml:"jitter_max_us"`
}

// ---- LOCKOUT ----

type LockoutConfig struct {
	Threshold int  `yaml:"threshold"`
	Horn      bool `yaml:"horn"` // sound the horn during the lockout alarm
}

// ---- DOOR STATUS BLOCK (optional, opt-in) ----

type StatusConfig struct {
	Transport  string `yaml:"transport"` // modbus | ingest
	Endpoint   string `yaml:"endpoint"`  // empty with modbus = reuse io link
	UnitID     uint8  `yaml:"unit_id"`
	Slot       uint16 `yaml:"slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- EVENT JOURNAL ----

type JournalConfig struct {
	Path string `yaml:"path"` // empty = disabled
}

// Load reads and decodes a YAML file. Unknown keys are rejected.
// It does not validate.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes.
func Parse(raw []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}
