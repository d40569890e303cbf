// internal/poller/runner.go
package poller

import (
	"context"
	"time"
)

// Run samples on a ticker until ctx is done, keeping the latest result for
// Sample. One goroutine per poller. No overlap. No retries.
func (p *Poller) Run(ctx context.Context) {
	if p.cfg.Interval <= 0 {
		return
	}

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.store(p.PollOnce())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.store(p.PollOnce())
		}
	}
}

func (p *Poller) store(res PollResult) {
	p.mu.Lock()
	p.last = res
	p.mu.Unlock()
}
