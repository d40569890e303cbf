// internal/nvm/nvm.go
package nvm

import (
	"errors"
	"fmt"
)

// Erased is the value of a byte that has never been written.
const Erased byte = 0xFF

// ErrOutOfRange is returned for offsets outside [0, Size()).
var ErrOutOfRange = errors.New("nvm: offset out of range")

// Memory is byte-addressable persistent storage.
// Every Store is individually durable; nothing larger is atomic.
type Memory interface {
	Size() int
	Load(off int) (byte, error)
	Store(off int, b byte) error
	Close() error
}

// Erase sets every byte of m to Erased.
func Erase(m Memory) error {
	for off := 0; off < m.Size(); off++ {
		if err := m.Store(off, Erased); err != nil {
			return fmt.Errorf("nvm: erase at %d: %w", off, err)
		}
	}
	return nil
}

// LoadRange reads n bytes starting at off.
func LoadRange(m Memory, off, n int) ([]byte, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, err := m.Load(off + i)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// StoreRange writes p starting at off, one byte at a time.
func StoreRange(m Memory, off int, p []byte) error {
	for i, b := range p {
		if err := m.Store(off+i, b); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(size, off int) error {
	if off < 0 || off >= size {
		return fmt.Errorf("%w: %d (size %d)", ErrOutOfRange, off, size)
	}
	return nil
}
