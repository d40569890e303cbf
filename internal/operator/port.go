// internal/operator/port.go
package operator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goburrow/serial"
)

// DefaultBaud matches the management tools shipped with the door controller.
const DefaultBaud = 115200

// PortConfig selects the operator link. An empty Device means stdio.
type PortConfig struct {
	Device  string
	Baud    int
	Timeout time.Duration
}

// OpenPort opens the operator link described by cfg.
func OpenPort(cfg PortConfig) (io.ReadWriteCloser, error) {
	if cfg.Device == "" {
		return Stdio{}, nil
	}
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}

	p, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.Baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("operator: open %s: %w", cfg.Device, err)
	}
	return p, nil
}

// Stdio is the process's own stdin/stdout as an operator link.
type Stdio struct{}

func (Stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (Stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (Stdio) Close() error                { return nil }

// isTimeout reports a read that returned because the port's inter-byte
// timeout elapsed with nothing received.
func isTimeout(err error) bool {
	return errors.Is(err, serial.ErrTimeout)
}
