// internal/config/defaults.go
package config

// Defaults for zero-valued settings. Normalize applies them; Validate
// checks the effective values without writing them back.
const (
	DefaultMemoryBackend = "file"
	DefaultMemorySize    = 1024

	DefaultBusTimeoutMs = 500
	DefaultOperatorBaud = 115200
	DefaultIOTimeoutMs  = 1000
	DefaultSerialBaud   = 9600

	DefaultCommandTimeoutMs = 10000
	DefaultButtonMs         = 250
	DefaultToggleMs         = 2500
	DefaultHoldMs           = 4000
	DefaultSolenoidMs       = 10000
	DefaultAlarmMs          = 500
	DefaultCycleMs          = 20
	DefaultFrameMs          = 10
	DefaultJitterMinUs      = 50
	DefaultJitterMaxUs      = 200

	DefaultLockoutThreshold = 3

	DefaultStatusTransport = "modbus"
)

func orDefault(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}

// effectiveTiming returns t with defaults filled in.
func effectiveTiming(t TimingConfig) TimingConfig {
	t.CommandTimeoutMs = orDefault(t.CommandTimeoutMs, DefaultCommandTimeoutMs)
	t.ButtonMs = orDefault(t.ButtonMs, DefaultButtonMs)
	t.ToggleMs = orDefault(t.ToggleMs, DefaultToggleMs)
	t.HoldMs = orDefault(t.HoldMs, DefaultHoldMs)
	t.SolenoidMs = orDefault(t.SolenoidMs, DefaultSolenoidMs)
	t.AlarmMs = orDefault(t.AlarmMs, DefaultAlarmMs)
	t.CycleMs = orDefault(t.CycleMs, DefaultCycleMs)
	t.FrameMs = orDefault(t.FrameMs, DefaultFrameMs)
	t.JitterMinUs = orDefault(t.JitterMinUs, DefaultJitterMinUs)
	t.JitterMaxUs = orDefault(t.JitterMaxUs, DefaultJitterMaxUs)
	return t
}
