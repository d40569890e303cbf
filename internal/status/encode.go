// internal/status/encode.go
package status

// Encode converts a Snapshot into a full door status block.
// Device name slots are left zero; see EncodeDeviceName.
// Layout is protocol-locked.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotMode] = s.Mode
	regs[SlotLockOpen] = flag(s.LockOpen)
	regs[SlotDeniedStreak] = s.DeniedStreak
	regs[SlotMainsPower] = flag(s.MainsPower)
	regs[SlotSolenoid] = flag(s.Solenoid)
	regs[SlotHorn] = flag(s.Horn)
	regs[SlotGrantedTotal] = s.GrantedTotal
	regs[SlotDeniedTotal] = s.DeniedTotal
	regs[SlotLockoutTotal] = s.LockoutTotal
	regs[SlotCredentials] = s.Credentials

	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

func flag(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}
