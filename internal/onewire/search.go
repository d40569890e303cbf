// internal/onewire/search.go
package onewire

import "errors"

// Searcher enumerates ROM ids present on the bus using the binary tree
// search (SEARCH ROM, 0xF0). State carries over between calls to Next,
// so one Searcher walks the whole bus once before reporting done.
type Searcher struct {
	m Master

	rom             Address
	lastDiscrepancy int
	lastDevice      bool
}

// NewSearcher returns a searcher positioned at the start of the bus.
func NewSearcher(m Master) *Searcher {
	return &Searcher{m: m}
}

// Reset restarts enumeration from the first device.
func (s *Searcher) Reset() {
	s.rom = Address{}
	s.lastDiscrepancy = 0
	s.lastDevice = false
}

// Next returns the next ROM id. ok is false when the walk is complete
// or nobody is on the bus; the searcher is then reset.
// The returned address has a verified CRC.
func (s *Searcher) Next() (addr Address, ok bool, err error) {
	if s.lastDevice {
		s.Reset()
		return Address{}, false, nil
	}

	if err := s.m.Reset(); err != nil {
		s.Reset()
		if errors.Is(err, ErrNoPresence) {
			return Address{}, false, nil
		}
		return Address{}, false, err
	}
	if err := s.m.WriteByte(CmdSearchROM); err != nil {
		s.Reset()
		return Address{}, false, err
	}

	lastZero := 0
	for bitNum := 1; bitNum <= 64; bitNum++ {
		idx := (bitNum - 1) / 8
		mask := byte(1) << uint((bitNum-1)%8)

		idBit, err := s.m.TouchBit(true)
		if err != nil {
			s.Reset()
			return Address{}, false, err
		}
		cmpBit, err := s.m.TouchBit(true)
		if err != nil {
			s.Reset()
			return Address{}, false, err
		}

		// both 1: nobody participating any more
		if idBit && cmpBit {
			s.Reset()
			return Address{}, false, nil
		}

		var dir bool
		if idBit != cmpBit {
			dir = idBit
		} else {
			// discrepancy: both 0 and 1 present at this position
			if bitNum < s.lastDiscrepancy {
				dir = s.rom[idx]&mask != 0
			} else {
				dir = bitNum == s.lastDiscrepancy
			}
			if !dir {
				lastZero = bitNum
			}
		}

		if dir {
			s.rom[idx] |= mask
		} else {
			s.rom[idx] &^= mask
		}

		if _, err := s.m.TouchBit(dir); err != nil {
			s.Reset()
			return Address{}, false, err
		}
	}

	s.lastDiscrepancy = lastZero
	if lastZero == 0 {
		s.lastDevice = true
	}

	if !s.rom.CRCValid() {
		s.Reset()
		return Address{}, false, ErrCRC
	}

	return s.rom, true, nil
}

// First resets the walk and returns the first device found.
func (s *Searcher) First() (Address, bool, error) {
	s.Reset()
	return s.Next()
}
