// internal/writer/status_writer.go
package writer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamzrod/doorlock/internal/status"
)

// StatusWriter is the delivery-only contract for door status.
// It receives a snapshot and writes it verbatim.
// No logic, no interpretation.
type StatusWriter interface {
	WriteStatus(s status.Snapshot) error
}

// deviceStatusWriter is the concrete implementation used by the controller.
type deviceStatusWriter struct {
	plan *StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16
	nameRegs []uint16
}

// NewDeviceStatusWriter builds a status writer if status is enabled.
// If plan is nil, status is disabled.
func NewDeviceStatusWriter(plan *StatusPlan, cli endpointClient) (StatusWriter, bool) {
	if plan == nil {
		return nil, false
	}

	return &deviceStatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		nameRegs: status.EncodeDeviceName(plan.DeviceName),
	}, true
}

// WriteStatus delivers a door status snapshot into status memory.
// Only changed registers are written, grouped into contiguous runs.
// On any write failure, the next successful call will re-assert the full block.
func (sw *deviceStatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.plan == nil {
		return errors.New("status writer: disabled")
	}
	if sw.cli == nil {
		return fmt.Errorf("status writer: missing client for endpoint %s", sw.plan.Endpoint)
	}

	regs := sw.fullBlockRegs(s)
	baseAddr := sw.baseAddr()
	unitID := sw.plan.UnitID

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		if err := sw.cli.WriteRegisters(
			areaHoldingRegisters,
			unitID,
			baseAddr,
			regs,
		); err != nil {
			sw.needFull = true
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}

		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs []string

	for _, r := range changedRuns(sw.last, regs) {
		if err := sw.cli.WriteRegisters(
			areaHoldingRegisters,
			unitID,
			baseAddr+uint16(r.start),
			regs[r.start:r.end],
		); err != nil {
			errs = append(errs, fmt.Sprintf("slots %d-%d write failed: %v", r.start, r.end-1, err))
			continue
		}
		copy(sw.last[r.start:r.end], regs[r.start:r.end])
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next success.
		sw.needFull = true
		return errors.New("status writer: " + strings.Join(errs, " | "))
	}

	return nil
}

func (sw *deviceStatusWriter) baseAddr() uint16 {
	// Each controller owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}

func (sw *deviceStatusWriter) fullBlockRegs(s status.Snapshot) []uint16 {
	regs := status.Encode(s)

	// Device name always lives at the end of the block
	copy(regs[status.SlotDeviceNameStart:status.SlotDeviceNameEnd+1], sw.nameRegs)

	return regs
}

type run struct{ start, end int } // [start, end)

// changedRuns returns the maximal runs of indices where prev and next differ.
func changedRuns(prev, next []uint16) []run {
	var out []run
	for i := 0; i < len(next); i++ {
		if i < len(prev) && prev[i] == next[i] {
			continue
		}
		j := i + 1
		for j < len(next) && (j >= len(prev) || prev[j] != next[j]) {
			j++
		}
		out = append(out, run{start: i, end: j})
		i = j
	}
	return out
}
