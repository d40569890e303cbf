// internal/operator/channel.go
package operator

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// LineBufSize bounds a command line. Longer lines are truncated to
// LineBufSize-1 bytes.
const LineBufSize = 64

// ErrTimeout is returned when no complete line arrived in time.
var ErrTimeout = errors.New("operator: timeout receiving command")

// Channel is the daemon side of the operator link. A single goroutine
// drains the port so the control cycle can poll without blocking.
type Channel struct {
	port io.ReadWriter

	in   chan byte
	done chan struct{}

	wmu  sync.Mutex
	once sync.Once

	emu sync.Mutex
	err error
}

// NewChannel starts draining port.
func NewChannel(port io.ReadWriter) *Channel {
	c := &Channel{
		port: port,
		in:   make(chan byte, 256),
		done: make(chan struct{}),
	}
	go c.pump()
	return c
}

func (c *Channel) pump() {
	defer close(c.in)

	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		for _, b := range buf[:n] {
			select {
			case c.in <- b:
			case <-c.done:
				return
			}
		}
		if err == nil || isTimeout(err) {
			select {
			case <-c.done:
				return
			default:
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			c.emu.Lock()
			c.err = err
			c.emu.Unlock()
		}
		return
	}
}

// Err returns the read error that stopped the channel, if any.
func (c *Channel) Err() error {
	c.emu.Lock()
	defer c.emu.Unlock()
	return c.err
}

// Poll returns the next received byte without waiting.
func (c *Channel) Poll() (byte, bool) {
	select {
	case b, ok := <-c.in:
		return b, ok
	default:
		return 0, false
	}
}

// ReadLine collects bytes up to '\n' within timeout. The newline is not
// included and bytes past the buffer are dropped.
func (c *Channel) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	in := c.in
	line := make([]byte, 0, LineBufSize)
	for {
		select {
		case b, ok := <-in:
			if !ok {
				// link closed, wait out the timeout like a silent operator
				in = nil
				continue
			}
			if b == '\n' {
				return string(line), nil
			}
			if len(line) < LineBufSize-1 {
				line = append(line, b)
			}
		case <-timer.C:
			return "", ErrTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// Write sends operator output. Safe for concurrent use.
func (c *Channel) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.port.Write(p)
}

// Close stops the drain goroutine. It does not close the port.
func (c *Channel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
