// internal/nvm/ram.go
package nvm

// RAM is a volatile Memory, erased on creation. Used for tests and dry runs.
type RAM struct {
	buf []byte
}

// NewRAM returns size erased bytes.
func NewRAM(size int) *RAM {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = Erased
	}
	return &RAM{buf: buf}
}

func (r *RAM) Size() int { return len(r.buf) }

func (r *RAM) Load(off int) (byte, error) {
	if err := checkRange(len(r.buf), off); err != nil {
		return 0, err
	}
	return r.buf[off], nil
}

func (r *RAM) Store(off int, b byte) error {
	if err := checkRange(len(r.buf), off); err != nil {
		return err
	}
	r.buf[off] = b
	return nil
}

func (r *RAM) Close() error { return nil }
