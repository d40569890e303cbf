// internal/writer/writer_test.go
package writer

import (
	"context"
	"errors"
	"testing"

	cfg "github.com/tamzrod/doorlock/internal/config"
	"github.com/tamzrod/doorlock/internal/control"
)

// ---- fake endpoint client ----

type fakeEndpointClient struct {
	writes []writeCall
	failAt int // 1-based write number that fails; 0 = never

	lastRegs     []uint16
	lastRegsAddr uint16
}

type writeCall struct {
	area   byte
	unitID uint8
	addr   uint16
	bits   []bool
	regs   []uint16
}

func (f *fakeEndpointClient) fail() error {
	if f.failAt != 0 && len(f.writes) == f.failAt {
		return errors.New("station unreachable")
	}
	return nil
}

func (f *fakeEndpointClient) WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error {
	f.writes = append(f.writes, writeCall{area: area, unitID: unitID, addr: addr, bits: append([]bool(nil), bits...)})
	return f.fail()
}

func (f *fakeEndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	f.writes = append(f.writes, writeCall{area: area, unitID: unitID, addr: addr, regs: append([]uint16(nil), regs...)})
	if err := f.fail(); err != nil {
		return err
	}
	f.lastRegs = append([]uint16(nil), regs...)
	f.lastRegsAddr = addr
	return nil
}

func doorPlan() OutputPlan {
	return OutputPlan{
		UnitID: 4,
		Coils: map[control.Output]uint16{
			control.OutputOpen:     10,
			control.OutputClose:    11,
			control.OutputSolenoid: 12,
		},
		LEDs: &LEDPlan{Green: 100, Red: 101},
	}
}

// ---- tests ----

func TestDoorWriter_SetDrivesMappedCoil(t *testing.T) {
	fake := &fakeEndpointClient{}
	w, err := NewDoorWriter(doorPlan(), fake)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := w.Set(context.Background(), control.OutputClose, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.Set(context.Background(), control.OutputHorn, true); err != nil {
		t.Fatalf("unwired output should be ignored, got %v", err)
	}

	if len(fake.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(fake.writes))
	}
	got := fake.writes[0]
	if got.area != 1 || got.unitID != 4 || got.addr != 11 || len(got.bits) != 1 || !got.bits[0] {
		t.Fatalf("unexpected coil write: %+v", got)
	}
}

func TestDoorWriter_LevelsWrittenOnChangeOnly(t *testing.T) {
	fake := &fakeEndpointClient{}
	w, _ := NewDoorWriter(doorPlan(), fake)
	ctx := context.Background()

	_ = w.ShowLevels(ctx, control.Levels{Red: 200})
	_ = w.ShowLevels(ctx, control.Levels{Red: 200})
	_ = w.ShowLevels(ctx, control.Levels{Green: 255, Red: 255})

	if len(fake.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(fake.writes))
	}
	first := fake.writes[0]
	if first.area != 3 || first.addr != 100 || len(first.regs) != 2 || first.regs[0] != 0 || first.regs[1] != 200 {
		t.Fatalf("unexpected indicator write: %+v", first)
	}
}

func TestDoorWriter_SplitLEDRegisters(t *testing.T) {
	fake := &fakeEndpointClient{}
	plan := doorPlan()
	plan.LEDs = &LEDPlan{Green: 7, Red: 3}
	w, _ := NewDoorWriter(plan, fake)

	if err := w.ShowLevels(context.Background(), control.Levels{Green: 1, Red: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 2 || fake.writes[0].addr != 7 || fake.writes[1].addr != 3 {
		t.Fatalf("unexpected writes: %+v", fake.writes)
	}
}

func TestDoorWriter_FailedLevelsRetried(t *testing.T) {
	fake := &fakeEndpointClient{failAt: 1}
	w, _ := NewDoorWriter(doorPlan(), fake)
	ctx := context.Background()

	if err := w.ShowLevels(ctx, control.Levels{Red: 9}); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if err := w.ShowLevels(ctx, control.Levels{Red: 9}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.writes) != 2 {
		t.Fatalf("expected retry write, got %d writes", len(fake.writes))
	}
}

func TestDoorWriter_RequiresClient(t *testing.T) {
	if _, err := NewDoorWriter(doorPlan(), nil); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestBuildOutputPlan(t *testing.T) {
	open, horn := uint16(2), uint16(5)
	plan := BuildOutputPlan(&cfg.IOConfig{
		UnitID: 9,
		Coils:  cfg.CoilConfig{Open: &open, Horn: &horn},
		LEDs:   &cfg.LEDConfig{Green: 40, Red: 41},
	})

	if plan.UnitID != 9 || len(plan.Coils) != 2 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Coils[control.OutputOpen] != 2 || plan.Coils[control.OutputHorn] != 5 {
		t.Fatalf("unexpected coil map: %+v", plan.Coils)
	}
	if _, ok := plan.Coils[control.OutputClose]; ok {
		t.Fatalf("unset coil must not be mapped")
	}
	if plan.LEDs == nil || plan.LEDs.Red != 41 {
		t.Fatalf("unexpected led plan: %+v", plan.LEDs)
	}
}

func TestBuildStatusWriter_SharedLinkMustBeOpen(t *testing.T) {
	io := &cfg.IOConfig{Endpoint: "10.0.0.5:502"}

	if _, _, err := BuildStatusWriter(&cfg.StatusConfig{Transport: "modbus"}, io, nil); err == nil {
		t.Fatalf("expected error, got nil")
	}

	sw, closer, err := BuildStatusWriter(nil, io, nil)
	if err != nil || sw != nil || closer == nil {
		t.Fatalf("disabled status: sw=%v err=%v", sw, err)
	}
}
