// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/doorlock/internal/control"
)

// Client abstracts the Modbus read the poller needs.
// *writer/modbus.EndpointClient implements it.
type Client interface {
	ReadBits(area byte, unitID uint8, addr, qty uint16) ([]bool, error) // FC 1, 2
}

// ErrStale is returned by Sample when the background loop has not
// produced a fresh result.
var ErrStale = errors.New("poller: no fresh sample")

// Config is the minimal runtime config the poller needs.
type Config struct {
	UnitID uint8
	FC     uint8 // 1 coils, 2 discrete inputs
	Inputs InputMap

	// Interval > 0 lets Run sample in the background; Sample then serves
	// the latest result if it is younger than MaxAge.
	Interval time.Duration
	MaxAge   time.Duration
}

// Poller is a dumb reader of the auxiliary inputs. It reads one block
// spanning every wired input.
type Poller struct {
	cfg    Config
	block  ReadBlock
	client Client

	mu      sync.Mutex
	last    PollResult
	running bool
}

// New creates a poller with immutable config.
func New(cfg Config, client Client) (*Poller, error) {
	if client == nil {
		return nil, errors.New("poller: client required")
	}
	if cfg.FC != 1 && cfg.FC != 2 {
		return nil, fmt.Errorf("poller: unsupported function code %d", cfg.FC)
	}
	block, ok := spanOf(cfg.FC, cfg.Inputs)
	if !ok {
		return nil, errors.New("poller: at least one input must be wired")
	}
	if cfg.Interval > 0 && cfg.MaxAge <= 0 {
		cfg.MaxAge = 3 * cfg.Interval
	}
	return &Poller{cfg: cfg, block: block, client: client}, nil
}

// Block returns the read geometry.
func (p *Poller) Block() ReadBlock { return p.block }

// PollOnce performs exactly one poll cycle.
// All-or-nothing: a failed read yields no inputs.
func (p *Poller) PollOnce() PollResult {
	res := PollResult{At: time.Now()}

	bits, err := p.client.ReadBits(p.block.FC, p.cfg.UnitID, p.block.Address, p.block.Quantity)
	if err != nil {
		res.Err = err
		return res
	}
	if len(bits) < int(p.block.Quantity) {
		res.Err = fmt.Errorf("poller: short read: got %d bits, want %d", len(bits), p.block.Quantity)
		return res
	}

	m := p.cfg.Inputs
	res.Inputs.Release = p.asserted(bits, m.Release, m.ActiveLow)
	res.Inputs.Horn = p.asserted(bits, m.Horn, m.ActiveLow)
	res.Inputs.Mains = true
	if m.Mains != nil {
		res.Inputs.Mains = p.asserted(bits, m.Mains, false)
	}
	return res
}

// Sample implements control.InputSource.
func (p *Poller) Sample(ctx context.Context) (control.Inputs, error) {
	if err := ctx.Err(); err != nil {
		return control.Inputs{}, err
	}

	p.mu.Lock()
	running, last := p.running, p.last
	p.mu.Unlock()

	if !running {
		res := p.PollOnce()
		return res.Inputs, res.Err
	}

	if last.At.IsZero() || time.Since(last.At) > p.cfg.MaxAge {
		return control.Inputs{}, ErrStale
	}
	return last.Inputs, last.Err
}

func (p *Poller) asserted(bits []bool, addr *uint16, activeLow bool) bool {
	if addr == nil {
		return false
	}
	v := bits[*addr-p.block.Address]
	if activeLow {
		return !v
	}
	return v
}

func spanOf(fc uint8, m InputMap) (ReadBlock, bool) {
	var lo, hi uint16
	found := false
	for _, a := range []*uint16{m.Release, m.Horn, m.Mains} {
		if a == nil {
			continue
		}
		if !found || *a < lo {
			lo = *a
		}
		if !found || *a > hi {
			hi = *a
		}
		found = true
	}
	if !found {
		return ReadBlock{}, false
	}
	return ReadBlock{FC: fc, Address: lo, Quantity: hi - lo + 1}, true
}
