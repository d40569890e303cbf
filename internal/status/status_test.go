// internal/status/status_test.go
package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode_Layout(t *testing.T) {
	regs := Encode(Snapshot{
		Health:       HealthOK,
		Mode:         ModeAuthorized,
		LockOpen:     true,
		DeniedStreak: 2,
		MainsPower:   true,
		Solenoid:     true,
		GrantedTotal: 7,
		DeniedTotal:  9,
		LockoutTotal: 1,
		Credentials:  12,
	})

	assert.Len(t, regs, SlotsPerDevice)
	assert.Equal(t, []uint16{1, 2, 1, 2, 1, 1, 0, 7, 9, 1, 12}, regs[:SlotDeviceNameStart])
	for i := SlotDeviceNameStart; i < SlotsPerDevice; i++ {
		assert.Zero(t, regs[i], "slot %d", i)
	}
}

func TestEncodeDeviceName(t *testing.T) {
	regs := EncodeDeviceName("FRONT\x01DOOR-AND-MORE-TEXT")
	assert.Len(t, regs, SlotDeviceNameSlots)
	assert.Equal(t, uint16('F')<<8|uint16('R'), regs[0])
	assert.Equal(t, uint16('T')<<8|uint16('?'), regs[2])
	assert.Equal(t, uint16('-')<<8|uint16('M'), regs[7])

	short := EncodeDeviceName("A")
	assert.Equal(t, uint16('A')<<8, short[0])
	assert.Zero(t, short[1])
}

func TestSaturate(t *testing.T) {
	assert.Equal(t, uint16(5), Saturate(5))
	assert.Equal(t, uint16(0xFFFF), Saturate(1<<20))
}
