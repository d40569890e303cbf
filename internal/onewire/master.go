// internal/onewire/master.go
package onewire

import "errors"

// ROM and bus-level errors. Anything returned by a Master is a device I/O
// failure from the caller's point of view.
var (
	ErrNoPresence = errors.New("onewire: no presence pulse")
	ErrShorted    = errors.New("onewire: bus shorted")
	ErrCRC        = errors.New("onewire: crc mismatch")
)

// ROM commands.
const (
	CmdSearchROM byte = 0xF0
	CmdMatchROM  byte = 0x55
	CmdSkipROM   byte = 0xCC
)

// Master is the minimal bus-master contract.
// Implementations are not safe for concurrent use.
type Master interface {
	// Reset issues a reset pulse. It returns ErrNoPresence when no
	// device answered.
	Reset() error

	WriteByte(b byte) error
	ReadByte() (byte, error)

	// TouchBit writes one time slot and returns the sampled bit.
	// Writing 1 is a read slot.
	TouchBit(bit bool) (bool, error)
}

// Select resets the bus and addresses a single device.
func Select(m Master, addr Address) error {
	if err := m.Reset(); err != nil {
		return err
	}
	if err := m.WriteByte(CmdMatchROM); err != nil {
		return err
	}
	return WriteBytes(m, addr[:])
}

// WriteBytes writes p in order.
func WriteBytes(m Master, p []byte) error {
	for _, b := range p {
		if err := m.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes fills p from the bus.
func ReadBytes(m Master, p []byte) error {
	for i := range p {
		b, err := m.ReadByte()
		if err != nil {
			return err
		}
		p[i] = b
	}
	return nil
}
