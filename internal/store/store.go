// internal/store/store.go
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tamzrod/doorlock/internal/nvm"
	"github.com/tamzrod/doorlock/internal/onewire"
)

var (
	ErrStoreFull = errors.New("store: no free slot")
	ErrNotFound  = errors.New("store: address not found")
	ErrBlank     = errors.New("store: blank address is reserved")
)

// Store is the credential table laid over non-volatile memory as
// consecutive 16-byte slots. One mutex serializes all access.
type Store struct {
	mu    sync.Mutex
	mem   nvm.Memory
	slots int
}

// New lays a table over mem. Trailing bytes that do not fill a slot are unused.
func New(mem nvm.Memory) (*Store, error) {
	if mem == nil {
		return nil, errors.New("store: memory required")
	}
	n := mem.Size() / SlotSize
	if n == 0 {
		return nil, fmt.Errorf("store: memory of %d bytes holds no slot", mem.Size())
	}
	return &Store{mem: mem, slots: n}, nil
}

// Capacity is the number of slots.
func (s *Store) Capacity() int { return s.slots }

// Add writes (addr, secret) into the first empty slot or the slot already
// holding addr, and returns that slot index.
func (s *Store) Add(addr onewire.Address, secret Secret) (int, error) {
	if addr.IsBlank() {
		return -1, ErrBlank
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readLocked()
	if err != nil {
		return -1, err
	}

	i := t.AddTarget(addr)
	if i < 0 {
		return -1, ErrStoreFull
	}

	rec := Slot{Address: addr, Secret: secret}
	if err := nvm.StoreRange(s.mem, i*SlotSize, rec.encode()); err != nil {
		return -1, fmt.Errorf("store: write slot %d: %w", i, err)
	}
	return i, nil
}

// Remove erases every slot holding addr and returns the cleared indices.
// Clearing nothing is not an error.
func (s *Store) Remove(addr onewire.Address) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	matches := t.Matches(addr)
	for _, i := range matches {
		if err := nvm.StoreRange(s.mem, i*SlotSize, emptySlot()); err != nil {
			return nil, fmt.Errorf("store: erase slot %d: %w", i, err)
		}
	}
	return matches, nil
}

// Lookup returns the secret of the first occupied slot holding addr and
// its index, or ErrNotFound.
func (s *Store) Lookup(addr onewire.Address) (Secret, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readLocked()
	if err != nil {
		return Secret{}, -1, err
	}

	i := t.Find(addr)
	if i < 0 {
		return Secret{}, -1, ErrNotFound
	}
	return t[i].Secret, i, nil
}

// Enumerate lists occupied addresses in slot order.
func (s *Store) Enumerate() ([]onewire.Address, error) {
	t, err := s.Table()
	if err != nil {
		return nil, err
	}
	return t.Addresses(), nil
}

// Occupied counts stored credentials.
func (s *Store) Occupied() (int, error) {
	t, err := s.Table()
	if err != nil {
		return 0, err
	}
	return t.Occupied(), nil
}

// Table returns a decoded snapshot of all slots.
func (s *Store) Table() (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Store) readLocked() (Table, error) {
	raw, err := nvm.LoadRange(s.mem, 0, s.slots*SlotSize)
	if err != nil {
		return nil, fmt.Errorf("store: read: %w", err)
	}
	t := make(Table, s.slots)
	for i := range t {
		t[i] = decodeSlot(raw[i*SlotSize : (i+1)*SlotSize])
	}
	return t, nil
}
