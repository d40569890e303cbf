// internal/store/types.go
package store

import (
	"encoding/hex"
	"fmt"

	"github.com/tamzrod/doorlock/internal/onewire"
)

// SecretSize is the length of a token secret in bytes.
const SecretSize = 8

// SlotSize is the on-media size of one credential record.
const SlotSize = onewire.AddressSize + SecretSize

// Secret is the key shared with one token. It never leaves the device.
type Secret [SecretSize]byte

// ParseSecret decodes exactly 16 hex characters.
func ParseSecret(s string) (Secret, error) {
	var sec Secret
	if len(s) != 2*SecretSize {
		return sec, fmt.Errorf("store: secret: want %d hex chars, got %d", 2*SecretSize, len(s))
	}
	if _, err := hex.Decode(sec[:], []byte(s)); err != nil {
		return sec, fmt.Errorf("store: secret: %w", err)
	}
	return sec, nil
}

// String returns the secret as hex. Only for operator diagnostics.
func (s Secret) String() string { return hex.EncodeToString(s[:]) }

// SlotState tells whether a slot holds a credential.
type SlotState uint8

const (
	SlotEmpty SlotState = iota
	SlotOccupied
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotOccupied:
		return "occupied"
	default:
		return "unknown"
	}
}

// Slot is one decoded record. The raw address bytes are kept even for an
// empty slot because slot selection on Add compares byte by byte.
type Slot struct {
	Address onewire.Address
	Secret  Secret
}

// State reports Empty when the address part is all 0xFF.
func (s Slot) State() SlotState {
	if s.Address.IsBlank() {
		return SlotEmpty
	}
	return SlotOccupied
}

func decodeSlot(raw []byte) Slot {
	var s Slot
	copy(s.Address[:], raw[:onewire.AddressSize])
	copy(s.Secret[:], raw[onewire.AddressSize:SlotSize])
	return s
}

func (s Slot) encode() []byte {
	out := make([]byte, 0, SlotSize)
	out = append(out, s.Address[:]...)
	return append(out, s.Secret[:]...)
}

func emptySlot() []byte {
	out := make([]byte, SlotSize)
	for i := range out {
		out[i] = 0xFF
	}
	return out
}
