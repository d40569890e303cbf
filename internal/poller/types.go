// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/doorlock/internal/control"
)

// ReadBlock describes one Modbus read geometry.
// Geometry only: no semantics.
type ReadBlock struct {
	FC       uint8
	Address  uint16
	Quantity uint16
}

// InputMap locates each auxiliary input by bit address. Nil entries are
// not wired.
type InputMap struct {
	Release *uint16
	Horn    *uint16
	Mains   *uint16

	// ActiveLow inverts Release and Horn. Mains is always active high.
	ActiveLow bool
}

// PollResult is a snapshot produced by one poll cycle.
type PollResult struct {
	At     time.Time
	Inputs control.Inputs
	Err    error // non-nil means the poll cycle failed
}
