// internal/onewire/ds1961/ds1961.go
package ds1961

import (
	"errors"
	"fmt"
	"time"

	"github.com/tamzrod/doorlock/internal/onewire"
)

// FamilyCode is the ROM family of DS1961S / DS2432 SHA-1 EEPROM tokens.
const FamilyCode byte = 0x33

// Sizes on the wire.
const (
	PageSize      = 32
	Pages         = 4 // 128-byte data memory
	MACSize       = 20
	ChallengeSize = 3
	scratchSize   = 8
)

// Memory function commands.
const (
	cmdWriteScratchpad  byte = 0x0F
	cmdReadAuthPage     byte = 0xA5
	readAuthDoneMarker  byte = 0xAA
	challengeScratchOff      = 4
)

var (
	// ErrStatus is returned when the token does not confirm the MAC transfer.
	ErrStatus = errors.New("ds1961: bad completion status")
	// ErrPage is returned for pages outside the data memory.
	ErrPage   = errors.New("ds1961: page out of range")
)

// Device speaks the DS1961S memory function protocol on a bus master.
type Device struct {
	m onewire.Master

	// ComputeDelay is how long the token needs for its SHA-1 engine
	// after the page has been read.
	ComputeDelay time.Duration
}

// New returns a driver on m.
func New(m onewire.Master) *Device {
	return &Device{m: m, ComputeDelay: 2 * time.Millisecond}
}

// ReadAuthWithChallenge loads challenge into the scratchpad and reads the
// given page with a MAC computed by the token over its secret, the page,
// its ROM id and the challenge.
func (d *Device) ReadAuthWithChallenge(
	addr onewire.Address,
	page uint16,
	challenge [ChallengeSize]byte,
) (data [PageSize]byte, mac [MACSize]byte, err error) {
	if page >= Pages {
		return data, mac, fmt.Errorf("%w: %d", ErrPage, page)
	}
	target := page * PageSize

	var scratch [scratchSize]byte
	copy(scratch[challengeScratchOff:], challenge[:])

	if err := d.writeScratchpad(addr, target, scratch); err != nil {
		return data, mac, err
	}
	return d.readAuthPage(addr, target)
}

func (d *Device) writeScratchpad(addr onewire.Address, target uint16, scratch [scratchSize]byte) error {
	if err := onewire.Select(d.m, addr); err != nil {
		return fmt.Errorf("ds1961: write scratchpad: %w", err)
	}

	frame := make([]byte, 0, 3+scratchSize)
	frame = append(frame, cmdWriteScratchpad, byte(target), byte(target>>8))
	frame = append(frame, scratch[:]...)
	if err := onewire.WriteBytes(d.m, frame); err != nil {
		return fmt.Errorf("ds1961: write scratchpad: %w", err)
	}

	var crc [2]byte
	if err := onewire.ReadBytes(d.m, crc[:]); err != nil {
		return fmt.Errorf("ds1961: write scratchpad crc: %w", err)
	}
	if !onewire.CheckCRC16(frame, crc[0], crc[1]) {
		return fmt.Errorf("ds1961: write scratchpad: %w", onewire.ErrCRC)
	}
	return nil
}

func (d *Device) readAuthPage(addr onewire.Address, target uint16) (data [PageSize]byte, mac [MACSize]byte, err error) {
	if err = onewire.Select(d.m, addr); err != nil {
		return data, mac, fmt.Errorf("ds1961: read auth page: %w", err)
	}

	hdr := []byte{cmdReadAuthPage, byte(target), byte(target >> 8)}
	if err = onewire.WriteBytes(d.m, hdr); err != nil {
		return data, mac, fmt.Errorf("ds1961: read auth page: %w", err)
	}

	// page data, one 0xFF filler, inverted CRC-16 over command..filler
	var tail [3]byte
	if err = onewire.ReadBytes(d.m, data[:]); err != nil {
		return data, mac, fmt.Errorf("ds1961: read page data: %w", err)
	}
	if err = onewire.ReadBytes(d.m, tail[:]); err != nil {
		return data, mac, fmt.Errorf("ds1961: read page crc: %w", err)
	}
	covered := make([]byte, 0, len(hdr)+PageSize+1)
	covered = append(covered, hdr...)
	covered = append(covered, data[:]...)
	covered = append(covered, tail[0])
	if !onewire.CheckCRC16(covered, tail[1], tail[2]) {
		return data, mac, fmt.Errorf("ds1961: page: %w", onewire.ErrCRC)
	}

	if d.ComputeDelay > 0 {
		time.Sleep(d.ComputeDelay)
	}

	var crc [2]byte
	if err = onewire.ReadBytes(d.m, mac[:]); err != nil {
		return data, mac, fmt.Errorf("ds1961: read mac: %w", err)
	}
	if err = onewire.ReadBytes(d.m, crc[:]); err != nil {
		return data, mac, fmt.Errorf("ds1961: read mac crc: %w", err)
	}
	if !onewire.CheckCRC16(mac[:], crc[0], crc[1]) {
		return data, mac, fmt.Errorf("ds1961: mac: %w", onewire.ErrCRC)
	}

	status, err := d.m.ReadByte()
	if err != nil {
		return data, mac, fmt.Errorf("ds1961: read status: %w", err)
	}
	if status != readAuthDoneMarker {
		return data, mac, fmt.Errorf("%w: 0x%02x", ErrStatus, status)
	}

	return data, mac, nil
}
