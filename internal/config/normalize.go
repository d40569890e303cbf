// internal/config/normalize.go
package config

import "github.com/tamzrod/doorlock/internal/status"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = DefaultMemoryBackend
	}
	cfg.Memory.Size = orDefault(cfg.Memory.Size, DefaultMemorySize)

	cfg.Bus.TimeoutMs = orDefault(cfg.Bus.TimeoutMs, DefaultBusTimeoutMs)
	cfg.Operator.Baud = orDefault(cfg.Operator.Baud, DefaultOperatorBaud)

	cfg.Timing = effectiveTiming(cfg.Timing)
	cfg.Lockout.Threshold = orDefault(cfg.Lockout.Threshold, DefaultLockoutThreshold)

	if io := cfg.IO; io != nil {
		io.TimeoutMs = orDefault(io.TimeoutMs, DefaultIOTimeoutMs)
		if io.Serial != nil {
			io.Serial.Baud = orDefault(io.Serial.Baud, DefaultSerialBaud)
			io.Serial.DataBits = orDefault(io.Serial.DataBits, 8)
			io.Serial.StopBits = orDefault(io.Serial.StopBits, 1)
			if io.Serial.Parity == "" {
				io.Serial.Parity = "N"
			}
		}
		if io.Inputs.FC == 0 {
			io.Inputs.FC = 2
		}
	}

	// ------------------------------------------------------------
	// DOOR STATUS BLOCK NORMALIZATION (OPT-IN)
	// ------------------------------------------------------------

	if st := cfg.Status; st != nil {
		if st.Transport == "" {
			st.Transport = DefaultStatusTransport
		}
		if st.DeviceName == "" {
			st.DeviceName = cfg.Name
		}
		// ASCII already validated; truncate to the register budget
		if len(st.DeviceName) > status.DeviceNameMaxChars {
			st.DeviceName = st.DeviceName[:status.DeviceNameMaxChars]
		}
		st.TimeoutMs = orDefault(st.TimeoutMs, DefaultIOTimeoutMs)
	}
}
