// internal/writer/writer.go
package writer

import (
	"context"
	"fmt"

	"github.com/tamzrod/doorlock/internal/control"
)

// endpointClient is the exact contract the writer uses.
// IMPORTANT: There must be NO other version of this interface anywhere.
type endpointClient interface {
	WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error
	WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error
}

const (
	areaCoils            byte = 1
	areaHoldingRegisters byte = 3
)

// DoorWriter drives actuator coils and indicator registers.
// It implements control.Outputs.
type DoorWriter struct {
	plan OutputPlan
	cli  endpointClient

	// last indicator levels written; nil forces the next write
	levels *control.Levels
}

// NewDoorWriter binds a plan to a client.
func NewDoorWriter(plan OutputPlan, cli endpointClient) (*DoorWriter, error) {
	if cli == nil {
		return nil, fmt.Errorf("writer: missing client for unit %d", plan.UnitID)
	}
	return &DoorWriter{plan: plan, cli: cli}, nil
}

// Set drives one actuator. Unwired actuators are ignored.
func (w *DoorWriter) Set(ctx context.Context, o control.Output, on bool) error {
	addr, ok := w.plan.Coils[o]
	if !ok {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.cli.WriteBits(areaCoils, w.plan.UnitID, addr, []bool{on}); err != nil {
		return fmt.Errorf("writer: unit=%d coil=%d output=%s err=%w", w.plan.UnitID, addr, o, err)
	}
	return nil
}

// ShowLevels writes indicator intensities when they changed since the
// last successful write.
func (w *DoorWriter) ShowLevels(ctx context.Context, l control.Levels) error {
	lp := w.plan.LEDs
	if lp == nil {
		return nil
	}
	if w.levels != nil && *w.levels == l {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch {
	case lp.Red == lp.Green+1:
		err = w.cli.WriteRegisters(areaHoldingRegisters, w.plan.UnitID, lp.Green, []uint16{uint16(l.Green), uint16(l.Red)})
	case lp.Green == lp.Red+1:
		err = w.cli.WriteRegisters(areaHoldingRegisters, w.plan.UnitID, lp.Red, []uint16{uint16(l.Red), uint16(l.Green)})
	default:
		err = w.cli.WriteRegisters(areaHoldingRegisters, w.plan.UnitID, lp.Green, []uint16{uint16(l.Green)})
		if err == nil {
			err = w.cli.WriteRegisters(areaHoldingRegisters, w.plan.UnitID, lp.Red, []uint16{uint16(l.Red)})
		}
	}
	if err != nil {
		// doubt about what the station shows: rewrite next time
		w.levels = nil
		return fmt.Errorf("writer: unit=%d indicator write failed: %w", w.plan.UnitID, err)
	}

	w.levels = &l
	return nil
}
