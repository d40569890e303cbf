// internal/onewire/address.go
package onewire

import (
	"encoding/hex"
	"fmt"
)

// AddressSize is the length of a ROM address in bytes.
const AddressSize = 8

// Address is a 64-bit ROM id as read from the bus:
// byte 0 family code, bytes 1..6 serial number, byte 7 CRC-8 over 0..6.
type Address [AddressSize]byte

// Blank is the all-0xFF pattern of erased memory. It is never a legal id.
var Blank = Address{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// Family returns the device family code.
func (a Address) Family() byte { return a[0] }

// IsBlank reports whether every byte is 0xFF.
func (a Address) IsBlank() bool {
	for _, b := range a {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// CRCValid reports whether byte 7 matches the CRC-8 of bytes 0..6.
func (a Address) CRCValid() bool {
	return CRC8(a[:AddressSize-1]) == a[AddressSize-1]
}

// Valid reports whether a is usable as a token id.
func (a Address) Valid() bool {
	return !a.IsBlank() && a.CRCValid()
}

// String returns the address as 16 lower-case hex characters.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// ParseAddress decodes exactly 16 hex characters.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != 2*AddressSize {
		return a, fmt.Errorf("onewire: address %q: want %d hex chars, got %d", s, 2*AddressSize, len(s))
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("onewire: address %q: %w", s, err)
	}
	return a, nil
}

// NewAddress builds an address from a family code and a 6-byte serial,
// appending the CRC.
func NewAddress(family byte, serial [6]byte) Address {
	var a Address
	a[0] = family
	copy(a[1:7], serial[:])
	a[7] = CRC8(a[:7])
	return a
}
