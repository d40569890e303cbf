// internal/nvm/file.go
package nvm

import (
	"fmt"
	"os"
	"path/filepath"
)

// File keeps the memory image in a regular file of exactly Size bytes.
// Each Store is followed by fsync.
type File struct {
	f    *os.File
	size int
}

// OpenFile opens or creates an image at path. A new or short image is
// extended with erased bytes.
func OpenFile(path string, size int) (*File, error) {
	if size <= 0 {
		return nil, fmt.Errorf("nvm file: invalid size %d", size)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("nvm file: create directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("nvm file: open: %w", err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("nvm file: stat: %w", err)
	}

	if have := int(st.Size()); have < size {
		pad := make([]byte, size-have)
		for i := range pad {
			pad[i] = Erased
		}
		if _, err := f.WriteAt(pad, int64(have)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("nvm file: extend: %w", err)
		}
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("nvm file: sync: %w", err)
		}
	}

	return &File{f: f, size: size}, nil
}

func (m *File) Size() int { return m.size }

func (m *File) Load(off int) (byte, error) {
	if err := checkRange(m.size, off); err != nil {
		return 0, err
	}
	var b [1]byte
	if _, err := m.f.ReadAt(b[:], int64(off)); err != nil {
		return 0, fmt.Errorf("nvm file: read %d: %w", off, err)
	}
	return b[0], nil
}

func (m *File) Store(off int, b byte) error {
	if err := checkRange(m.size, off); err != nil {
		return err
	}
	if _, err := m.f.WriteAt([]byte{b}, int64(off)); err != nil {
		return fmt.Errorf("nvm file: write %d: %w", off, err)
	}
	if err := m.f.Sync(); err != nil {
		return fmt.Errorf("nvm file: sync: %w", err)
	}
	return nil
}

func (m *File) Close() error {
	if m == nil || m.f == nil {
		return nil
	}
	return m.f.Close()
}
