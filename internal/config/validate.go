// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/tamzrod/doorlock/internal/status"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}

	// ------------------------------------------------------------
	// CREDENTIAL MEMORY
	// ------------------------------------------------------------

	switch cfg.Memory.Backend {
	case "", "file", "sqlite":
		if cfg.Memory.Path == "" {
			return errors.New("memory: path is required for file and sqlite backends")
		}
	case "ram":
	default:
		return fmt.Errorf("memory: unknown backend %q", cfg.Memory.Backend)
	}
	if cfg.Memory.Size < 0 || (cfg.Memory.Size > 0 && cfg.Memory.Size < 16) {
		return fmt.Errorf("memory: size %d cannot hold one 16-byte slot", cfg.Memory.Size)
	}

	// ------------------------------------------------------------
	// TOKEN BUS / OPERATOR
	// ------------------------------------------------------------

	if cfg.Bus.Device == "" {
		return errors.New("bus: device is required")
	}
	if cfg.Bus.Page != 0 {
		return fmt.Errorf("bus: page %d unsupported, authentication uses page 0", cfg.Bus.Page)
	}
	if cfg.Bus.TimeoutMs < 0 {
		return errors.New("bus: timeout_ms must be >= 0")
	}
	if cfg.Operator.Baud < 0 {
		return errors.New("operator: baud must be >= 0")
	}

	// ------------------------------------------------------------
	// TIMING / LOCKOUT
	// ------------------------------------------------------------

	if err := validateTiming(cfg.Timing); err != nil {
		return err
	}
	if cfg.Lockout.Threshold < 0 {
		return errors.New("lockout: threshold must be >= 0")
	}

	// ------------------------------------------------------------
	// REMOTE I/O
	// ------------------------------------------------------------

	if cfg.IO != nil {
		if err := validateIO(cfg.IO); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// DOOR STATUS BLOCK VALIDATION (OPT-IN)
	// ------------------------------------------------------------

	// device name sanity (ASCII only) also covers the fallback to name
	if err := asciiOnly("name", cfg.Name); err != nil {
		return err
	}

	if cfg.Status != nil {
		if err := validateStatus(cfg.Status, cfg.IO); err != nil {
			return err
		}
	}

	return nil
}

func validateTiming(t TimingConfig) error {
	fields := []struct {
		name string
		v    int
	}{
		{"command_timeout_ms", t.CommandTimeoutMs},
		{"button_ms", t.ButtonMs},
		{"toggle_ms", t.ToggleMs},
		{"hold_ms", t.HoldMs},
		{"solenoid_ms", t.SolenoidMs},
		{"alarm_ms", t.AlarmMs},
		{"cycle_ms", t.CycleMs},
		{"frame_ms", t.FrameMs},
		{"jitter_min_us", t.JitterMinUs},
		{"jitter_max_us", t.JitterMaxUs},
	}
	for _, f := range fields {
		if f.v < 0 {
			return fmt.Errorf("timing: %s must be >= 0", f.name)
		}
	}

	eff := effectiveTiming(t)
	if eff.ButtonMs > eff.ToggleMs {
		return fmt.Errorf("timing: button_ms %d exceeds toggle_ms %d", eff.ButtonMs, eff.ToggleMs)
	}
	if eff.JitterMinUs > eff.JitterMaxUs {
		return fmt.Errorf("timing: jitter_min_us %d exceeds jitter_max_us %d", eff.JitterMinUs, eff.JitterMaxUs)
	}
	return nil
}

func validateIO(io *IOConfig) error {
	switch {
	case io.Endpoint == "" && io.Serial == nil:
		return errors.New("io: endpoint or serial is required")
	case io.Endpoint != "" && io.Serial != nil:
		return errors.New("io: endpoint and serial are mutually exclusive")
	}
	if s := io.Serial; s != nil {
		if s.Device == "" {
			return errors.New("io: serial.device is required")
		}
		switch s.Parity {
		case "", "N", "E", "O":
		default:
			return fmt.Errorf("io: serial.parity %q must be N, E or O", s.Parity)
		}
	}
	if io.TimeoutMs < 0 {
		return errors.New("io: timeout_ms must be >= 0")
	}

	// one coil per actuator
	coils := map[uint16]string{}
	for _, c := range []struct {
		name string
		addr *uint16
	}{
		{"door_power", io.Coils.DoorPower},
		{"open", io.Coils.Open},
		{"close", io.Coils.Close},
		{"solenoid", io.Coils.Solenoid},
		{"horn", io.Coils.Horn},
		{"backlight", io.Coils.Backlight},
	} {
		if c.addr == nil {
			continue
		}
		if prev, exists := coils[*c.addr]; exists {
			return fmt.Errorf("io: coil %d used by %s and %s", *c.addr, prev, c.name)
		}
		coils[*c.addr] = c.name
	}

	switch io.Inputs.FC {
	case 0, 1, 2:
	default:
		return fmt.Errorf("io: inputs.fc %d must be 1 or 2", io.Inputs.FC)
	}
	if io.Inputs.PollMs < 0 {
		return errors.New("io: inputs.poll_ms must be >= 0")
	}

	if io.LEDs != nil && io.LEDs.Green == io.LEDs.Red {
		return fmt.Errorf("io: leds.green and leds.red share register %d", io.LEDs.Green)
	}
	return nil
}

func validateStatus(st *StatusConfig, io *IOConfig) error {
	if err := asciiOnly("status: device_name", st.DeviceName); err != nil {
		return err
	}
	if st.TimeoutMs < 0 {
		return errors.New("status: timeout_ms must be >= 0")
	}
	if (uint32(st.Slot)+1)*status.SlotsPerDevice > 0x10000 {
		return fmt.Errorf("status: slot %d is beyond the register space", st.Slot)
	}

	switch st.Transport {
	case "", "modbus":
		if st.Endpoint == "" && io == nil {
			return errors.New("status: endpoint is required when no io link is configured")
		}
	case "ingest":
		if st.Endpoint == "" {
			return errors.New("status: endpoint is required for ingest transport")
		}
		return nil
	default:
		return fmt.Errorf("status: unknown transport %q", st.Transport)
	}

	// The block must not collide with the indicator registers when it
	// shares the io link and unit.
	if io == nil || io.LEDs == nil || st.UnitID != io.UnitID {
		return nil
	}
	if st.Endpoint != "" && st.Endpoint != io.Endpoint {
		return nil
	}

	start := uint32(st.Slot) * status.SlotsPerDevice
	end := start + status.SlotsPerDevice - 1
	for _, led := range []uint16{io.LEDs.Green, io.LEDs.Red} {
		if uint32(led) >= start && uint32(led) <= end {
			return fmt.Errorf(
				"status slot collision: unit_id=%d slot=%d range=%d-%d overlaps led register %d",
				st.UnitID, st.Slot, start, end, led,
			)
		}
	}
	return nil
}

func asciiOnly(field, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return fmt.Errorf("%s must contain ASCII characters only", field)
		}
	}
	return nil
}
