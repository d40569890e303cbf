// internal/onewire/ds2480.go
package onewire

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"
)

// DS2480B serial 1-Wire line driver commands.
const (
	ds2480DataMode    byte = 0xE1
	ds2480CommandMode byte = 0xE3

	ds2480Reset     byte = 0xC1 // reset, regular speed
	ds2480SingleBit byte = 0x81 // single bit, regular speed; bit 4 = value

	ds2480ResetMask     byte = 0x03
	ds2480ResetShorted  byte = 0x00
	ds2480ResetNoDevice byte = 0x03
)

// SerialConfig describes the port a DS2480B adapter is attached to.
type SerialConfig struct {
	Device  string
	Timeout time.Duration
}

// DS2480 drives a 1-Wire bus through a DS2480B serial adapter (DS9097U and
// similar). The adapter toggles between command mode (resets, single bits)
// and data mode (byte transfers, each echoed with the sampled value).
type DS2480 struct {
	port     io.ReadWriter
	closer   io.Closer
	dataMode bool
}

// OpenDS2480 opens the serial port at 9600 8N1 and calibrates the adapter.
func OpenDS2480(cfg SerialConfig) (*DS2480, error) {
	if cfg.Device == "" {
		return nil, errors.New("onewire ds2480: device required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 500 * time.Millisecond
	}

	p, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("onewire ds2480: open %s: %w", cfg.Device, err)
	}

	d := NewDS2480(p)
	d.closer = p

	// The first byte after power-up is a timing calibration byte and
	// produces no reply.
	if _, err := p.Write([]byte{ds2480Reset}); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("onewire ds2480: calibrate: %w", err)
	}
	time.Sleep(5 * time.Millisecond)

	return d, nil
}

// NewDS2480 wraps an already open port. The adapter is assumed to be in
// command mode.
func NewDS2480(port io.ReadWriter) *DS2480 {
	return &DS2480{port: port}
}

// Close releases the serial port if OpenDS2480 opened it.
func (d *DS2480) Close() error {
	if d == nil || d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// ---- onewire.Master ----

func (d *DS2480) Reset() error {
	if err := d.commandMode(); err != nil {
		return err
	}
	resp, err := d.exchange(ds2480Reset)
	if err != nil {
		return err
	}
	switch resp & ds2480ResetMask {
	case ds2480ResetShorted:
		return ErrShorted
	case ds2480ResetNoDevice:
		return ErrNoPresence
	default:
		return nil
	}
}

func (d *DS2480) WriteByte(b byte) error {
	echo, err := d.touchByte(b)
	if err != nil {
		return err
	}
	if echo != b {
		return fmt.Errorf("onewire ds2480: write echo mismatch: sent 0x%02x got 0x%02x", b, echo)
	}
	return nil
}

func (d *DS2480) ReadByte() (byte, error) {
	return d.touchByte(0xFF)
}

func (d *DS2480) TouchBit(bit bool) (bool, error) {
	if err := d.commandMode(); err != nil {
		return false, err
	}
	cmd := ds2480SingleBit
	if bit {
		cmd |= 0x10
	}
	resp, err := d.exchange(cmd)
	if err != nil {
		return false, err
	}
	return resp&0x01 != 0, nil
}

// ---- internal helpers ----

func (d *DS2480) touchByte(b byte) (byte, error) {
	if err := d.dataModeOn(); err != nil {
		return 0, err
	}
	out := []byte{b}
	// in data mode a literal 0xE3 must be doubled
	if b == ds2480CommandMode {
		out = append(out, b)
	}
	if err := writeAll(d.port, out); err != nil {
		return 0, err
	}
	var echo [1]byte
	if _, err := io.ReadFull(d.port, echo[:]); err != nil {
		return 0, fmt.Errorf("onewire ds2480: read echo: %w", err)
	}
	return echo[0], nil
}

func (d *DS2480) exchange(cmd byte) (byte, error) {
	if err := writeAll(d.port, []byte{cmd}); err != nil {
		return 0, err
	}
	var resp [1]byte
	if _, err := io.ReadFull(d.port, resp[:]); err != nil {
		return 0, fmt.Errorf("onewire ds2480: read response to 0x%02x: %w", cmd, err)
	}
	return resp[0], nil
}

func (d *DS2480) commandMode() error {
	if !d.dataMode {
		return nil
	}
	if err := writeAll(d.port, []byte{ds2480CommandMode}); err != nil {
		return err
	}
	d.dataMode = false
	return nil
}

func (d *DS2480) dataModeOn() error {
	if d.dataMode {
		return nil
	}
	if err := writeAll(d.port, []byte{ds2480DataMode}); err != nil {
		return err
	}
	d.dataMode = true
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return fmt.Errorf("onewire ds2480: write: %w", err)
		}
		b = b[n:]
	}
	return nil
}
