// internal/status/snapshot.go
package status

// Snapshot represents exactly what the writer is allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health       uint16
	Mode         uint16
	LockOpen     bool
	DeniedStreak uint16
	MainsPower   bool
	Solenoid     bool
	Horn         bool

	GrantedTotal uint16
	DeniedTotal  uint16
	LockoutTotal uint16

	Credentials uint16
}

// Saturate clamps a counter to the register range. Counters MUST NOT wrap.
func Saturate(n uint64) uint16 {
	if n > 0xFFFF {
		return 0xFFFF
	}
	return uint16(n)
}
