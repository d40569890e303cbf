// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/doorlock/internal/config"
)

// Build constructs a Poller over an already open client.
// It returns nil when no input is wired.
// No retries, no loops, no semantics.
func Build(io *cfg.IOConfig, client Client) (*Poller, error) {
	if io == nil {
		return nil, nil
	}
	in := io.Inputs
	if in.Release == nil && in.Horn == nil && in.Mains == nil {
		return nil, nil
	}

	return New(
		Config{
			UnitID: io.UnitID,
			FC:     in.FC,
			Inputs: InputMap{
				Release:   in.Release,
				Horn:      in.Horn,
				Mains:     in.Mains,
				ActiveLow: in.ActiveLow,
			},
			Interval: time.Duration(in.PollMs) * time.Millisecond,
		},
		client,
	)
}
