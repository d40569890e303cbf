// internal/store/table.go
package store

import "github.com/tamzrod/doorlock/internal/onewire"

// Table is the decoded slot array in index order.
// All scan rules live here as pure functions.
type Table []Slot

// AddTarget returns the first slot whose address bytes are each either
// 0xFF or equal to addr, or -1. This picks an empty slot or the slot that
// already holds addr, whichever comes first.
func (t Table) AddTarget(addr onewire.Address) int {
	for i, s := range t {
		ok := true
		for j, b := range s.Address {
			if b != 0xFF && b != addr[j] {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

// Matches returns every slot index whose address equals addr.
func (t Table) Matches(addr onewire.Address) []int {
	var out []int
	for i, s := range t {
		if s.Address == addr {
			out = append(out, i)
		}
	}
	return out
}

// Find returns the first occupied slot holding addr, or -1.
func (t Table) Find(addr onewire.Address) int {
	for i, s := range t {
		if s.State() == SlotEmpty {
			continue
		}
		if s.Address == addr {
			return i
		}
	}
	return -1
}

// Addresses lists occupied slots in index order.
func (t Table) Addresses() []onewire.Address {
	var out []onewire.Address
	for _, s := range t {
		if s.State() == SlotOccupied {
			out = append(out, s.Address)
		}
	}
	return out
}

// Occupied counts occupied slots.
func (t Table) Occupied() int {
	n := 0
	for _, s := range t {
		if s.State() == SlotOccupied {
			n++
		}
	}
	return n
}
