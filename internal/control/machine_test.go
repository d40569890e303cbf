// internal/control/machine_test.go
package control

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/doorlock/internal/auth"
	"github.com/tamzrod/doorlock/internal/journal"
	"github.com/tamzrod/doorlock/internal/onewire"
	"github.com/tamzrod/doorlock/internal/operator"
	"github.com/tamzrod/doorlock/internal/status"
)

// ---- fakes ----

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time        { return c.now }
func (c *fakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

type fakeBus struct {
	addr    onewire.Address
	present bool
	err     error
}

func (b *fakeBus) First() (onewire.Address, bool, error) { return b.addr, b.present, b.err }

type fakeAuth struct {
	results []auth.Result
	calls   int
}

func (a *fakeAuth) Authenticate(onewire.Address) auth.Result {
	r := a.results[a.calls%len(a.results)]
	a.calls++
	return r
}

type fakeOperator struct {
	bytes.Buffer
	pending []byte
	line    string
	lineErr error
}

func (o *fakeOperator) Poll() (byte, bool) {
	if len(o.pending) == 0 {
		return 0, false
	}
	b := o.pending[0]
	o.pending = o.pending[1:]
	return b, true
}

func (o *fakeOperator) ReadLine(context.Context, time.Duration) (string, error) {
	return o.line, o.lineErr
}

type fakeInterpreter struct{ lines []string }

func (i *fakeInterpreter) Execute(line string) error {
	i.lines = append(i.lines, line)
	return nil
}

type setCall struct {
	at  time.Time
	out Output
	on  bool
}

type fakeOutputs struct {
	clock  *fakeClock
	sets   []setCall
	levels []Levels
}

func (o *fakeOutputs) Set(_ context.Context, out Output, on bool) error {
	o.sets = append(o.sets, setCall{at: o.clock.now, out: out, on: on})
	return nil
}

func (o *fakeOutputs) ShowLevels(_ context.Context, l Levels) error {
	o.levels = append(o.levels, l)
	return nil
}

func (o *fakeOutputs) find(out Output, on bool) (setCall, bool) {
	for _, s := range o.sets {
		if s.out == out && s.on == on {
			return s, true
		}
	}
	return setCall{}, false
}

type fakeInputs struct {
	in  Inputs
	err error
}

func (f *fakeInputs) Sample(context.Context) (Inputs, error) { return f.in, f.err }

type fakeStatus struct{ last status.Snapshot }

func (f *fakeStatus) WriteStatus(s status.Snapshot) error {
	f.last = s
	return nil
}

type recordingJournal struct{ events []journal.Event }

func (r *recordingJournal) Record(e journal.Event) { r.events = append(r.events, e) }

func (r *recordingJournal) kinds() []journal.Kind {
	var out []journal.Kind
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeCredentials int

func (c fakeCredentials) Occupied() (int, error) { return int(c), nil }

type rig struct {
	m      *Machine
	clock  *fakeClock
	bus    *fakeBus
	auth   *fakeAuth
	op     *fakeOperator
	interp *fakeInterpreter
	out    *fakeOutputs
	in     *fakeInputs
	status *fakeStatus
	j      *recordingJournal
}

var token = onewire.NewAddress(0x33, [6]byte{1, 2, 3, 4, 5, 6})

func newRig(t *testing.T, results ...auth.Result) *rig {
	t.Helper()
	clock := &fakeClock{now: t0}
	r := &rig{
		clock:  clock,
		bus:    &fakeBus{addr: token},
		auth:   &fakeAuth{results: results},
		op:     &fakeOperator{},
		interp: &fakeInterpreter{},
		out:    &fakeOutputs{clock: clock},
		in:     &fakeInputs{in: Inputs{Mains: true}},
		status: &fakeStatus{},
		j:      &recordingJournal{},
	}
	if len(results) == 0 {
		r.auth.results = []auth.Result{{Reason: auth.ReasonUnknownToken, Slot: -1}}
	}

	m, err := New(DefaultConfig(), Deps{
		Bus:         r.bus,
		Auth:        r.auth,
		Operator:    r.op,
		Interpreter: r.interp,
		Credentials: fakeCredentials(4),
		Inputs:      r.in,
		Outputs:     r.out,
		Status:      r.status,
		Journal:     r.j,
		Clock:       clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	r.m = m
	return r
}

var (
	granted = auth.Result{OK: true, Reason: auth.ReasonGranted, Slot: 2}
	denied  = auth.Result{Reason: auth.ReasonMismatch, Slot: 2}
)

// ---- construction ----

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.LockoutThreshold = 0
	_, err = New(cfg, Deps{Bus: &fakeBus{}, Auth: &fakeAuth{}, Operator: &fakeOperator{}, Interpreter: &fakeInterpreter{}})
	assert.Error(t, err)
}

// ---- token path ----

func TestCycle_GrantOpensLockAndReleasesDoor(t *testing.T) {
	r := newRig(t, granted)
	r.bus.present = true

	r.m.Cycle(context.Background())

	st := r.m.State()
	assert.True(t, st.LockOpen)
	assert.Equal(t, ModeAuthorized, st.Mode)
	assert.True(t, st.Solenoid)

	on, ok := r.out.find(OutputOpen, true)
	require.True(t, ok)
	off, ok := r.out.find(OutputOpen, false)
	require.True(t, ok)
	assert.Equal(t, 6500*time.Millisecond, off.at.Sub(on.at))

	_, ok = r.out.find(OutputClose, true)
	assert.False(t, ok)
	_, ok = r.out.find(OutputSolenoid, true)
	assert.True(t, ok)

	log := r.op.String()
	assert.Contains(t, log, "DEBUG: Found iButton with address: "+token.String()+"\n")
	assert.Contains(t, log, "iButton authenticated\n")
	assert.Contains(t, log, "opening lock\n")
	assert.Contains(t, log, "finished lock action\n")
	assert.Contains(t, log, "Solenoid activated\n")

	assert.Equal(t, []journal.Kind{journal.KindGranted, journal.KindLockOpened, journal.KindSolenoid}, r.j.kinds())
	assert.Contains(t, r.out.levels, Levels{Green: 255})
	assert.Equal(t, uint16(1), r.status.last.GrantedTotal)
	assert.True(t, r.status.last.LockOpen)
}

func TestCycle_SecondGrantClosesLock(t *testing.T) {
	r := newRig(t, granted)
	r.bus.present = true

	r.m.Cycle(context.Background())
	r.m.Cycle(context.Background())

	assert.False(t, r.m.State().LockOpen)
	_, ok := r.out.find(OutputClose, true)
	assert.True(t, ok)
	assert.Contains(t, r.op.String(), "closing lock\n")
	assert.Equal(t, 1, strings.Count(r.op.String(), "Solenoid activated"))
}

func TestCycle_ThreeDenialsTriggerOneLockout(t *testing.T) {
	r := newRig(t, denied)
	r.bus.present = true

	for i := 0; i < 3; i++ {
		r.m.Cycle(context.Background())
	}

	assert.Equal(t, 1, strings.Count(r.op.String(), "iButton not authenticated"))
	assert.Zero(t, r.m.State().Denied)
	assert.Contains(t, r.out.levels, Levels{Green: 255, Red: 255})
	assert.Equal(t, uint16(3), r.status.last.DeniedTotal)
	assert.Equal(t, uint16(1), r.status.last.LockoutTotal)
	lockout := r.j.events[len(r.j.events)-1]
	assert.Equal(t, journal.KindLockout, lockout.Kind)
	assert.Equal(t, 2, lockout.Slot)

	_, ok := r.out.find(OutputHorn, true)
	assert.False(t, ok, "horn stays quiet unless configured")

	for i := 0; i < 2; i++ {
		r.m.Cycle(context.Background())
	}
	assert.Equal(t, 1, strings.Count(r.op.String(), "iButton not authenticated"))
	assert.Equal(t, 2, r.m.State().Denied)
	assert.Equal(t, uint16(2), r.status.last.DeniedStreak)
}

func TestCycle_UnknownTokenLockoutHasNoSlot(t *testing.T) {
	r := newRig(t)
	r.bus.present = true

	for i := 0; i < 3; i++ {
		r.m.Cycle(context.Background())
	}

	lockout := r.j.events[len(r.j.events)-1]
	require.Equal(t, journal.KindLockout, lockout.Kind)
	assert.Equal(t, -1, lockout.Slot)
}

func TestCycle_GrantResetsDenials(t *testing.T) {
	r := newRig(t, denied, denied, granted, denied, denied)
	r.bus.present = true

	for i := 0; i < 5; i++ {
		r.m.Cycle(context.Background())
	}

	assert.NotContains(t, r.op.String(), "iButton not authenticated")
	assert.Equal(t, 2, r.m.State().Denied)
}

func TestCycle_AbsentTokenResetsDenials(t *testing.T) {
	r := newRig(t, denied)

	r.bus.present = true
	r.m.Cycle(context.Background())
	r.m.Cycle(context.Background())
	r.bus.present = false
	r.m.Cycle(context.Background())
	r.bus.present = true
	r.m.Cycle(context.Background())

	assert.NotContains(t, r.op.String(), "iButton not authenticated")
	assert.Equal(t, 1, r.m.State().Denied)
	assert.Equal(t, 3, r.auth.calls)
}

func TestCycle_UnknownTokenDiagnostic(t *testing.T) {
	r := newRig(t)
	r.bus.present = true

	r.m.Cycle(context.Background())

	assert.Contains(t, r.op.String(), "DEBUG: can't find secret for button\n")
	assert.Equal(t, 1, r.m.State().Denied)
}

func TestCycle_BusFaultReportedInHealth(t *testing.T) {
	r := newRig(t)
	r.bus.err = errors.New("onewire ds2480: read: i/o timeout")

	r.m.Cycle(context.Background())

	assert.Equal(t, status.HealthIOFault, r.status.last.Health)
	assert.Zero(t, r.auth.calls)

	r.bus.err = onewire.ErrCRC
	r.m.Cycle(context.Background())
	assert.Equal(t, status.HealthOK, r.status.last.Health)
}

// ---- operator path ----

func TestCycle_CommandLine(t *testing.T) {
	r := newRig(t)
	r.op.pending = []byte("\n")
	r.op.line = "list_buttons"

	r.m.Cycle(context.Background())

	assert.Equal(t, []string{"list_buttons"}, r.interp.lines)
	assert.True(t, strings.HasPrefix(r.op.String(), "ready\n"))
	assert.Equal(t, Levels{Green: 255, Red: 255}, r.out.levels[0])
	assert.Equal(t, ModeReading, r.m.State().Mode)
	assert.Equal(t, uint16(4), r.status.last.Credentials)
}

func TestCycle_OtherBytesIgnored(t *testing.T) {
	r := newRig(t)
	r.op.pending = []byte("x")

	r.m.Cycle(context.Background())

	assert.Empty(t, r.interp.lines)
	assert.NotContains(t, r.op.String(), "ready")
}

func TestCycle_CommandTimeout(t *testing.T) {
	r := newRig(t)
	r.op.pending = []byte("\n")
	r.op.lineErr = operator.ErrTimeout

	r.m.Cycle(context.Background())

	assert.Empty(t, r.interp.lines)
	assert.Contains(t, r.op.String(), "ERROR: timeout receiving command\n")
}

// ---- auxiliary inputs ----

func TestCycle_ReleaseInputHoldsSolenoid(t *testing.T) {
	r := newRig(t)
	r.in.in = Inputs{Release: true, Mains: true}

	r.m.Cycle(context.Background())
	assert.True(t, r.m.State().Solenoid)
	assert.Contains(t, r.op.String(), "Solenoid activated\n")

	r.in.in = Inputs{Mains: true}
	r.clock.Sleep(10 * time.Second)
	r.m.Cycle(context.Background())
	assert.True(t, r.m.State().Solenoid)

	r.clock.Sleep(time.Millisecond)
	r.m.Cycle(context.Background())
	assert.False(t, r.m.State().Solenoid)

	off, ok := r.out.find(OutputSolenoid, false)
	require.True(t, ok)
	assert.Equal(t, t0.Add(10*time.Second+time.Millisecond), off.at)
}

func TestCycle_GrantRestartsRunningReleaseHold(t *testing.T) {
	r := newRig(t, granted)
	r.in.in = Inputs{Release: true, Mains: true}

	r.m.Cycle(context.Background())
	require.True(t, r.m.State().Solenoid)
	require.Equal(t, t0, r.m.State().SolenoidSince)

	r.in.in = Inputs{Mains: true}
	r.clock.Sleep(2 * time.Second)
	r.bus.present = true
	r.m.Cycle(context.Background())

	opened, ok := r.out.find(OutputOpen, false)
	require.True(t, ok)
	st := r.m.State()
	assert.True(t, st.LockOpen)
	assert.True(t, st.Solenoid)
	assert.Equal(t, opened.at, st.SolenoidSince)
	assert.Equal(t, 2, strings.Count(r.op.String(), "Solenoid activated\n"))

	// the door stays released for the full hold after the lock opened
	r.bus.present = false
	r.clock.now = opened.at.Add(10 * time.Second)
	r.m.Cycle(context.Background())
	assert.True(t, r.m.State().Solenoid)

	r.clock.now = opened.at.Add(10*time.Second + time.Millisecond)
	r.m.Cycle(context.Background())
	assert.False(t, r.m.State().Solenoid)
}

func TestCycle_HornMirrored(t *testing.T) {
	r := newRig(t)

	r.in.in = Inputs{Horn: true, Mains: true}
	r.m.Cycle(context.Background())
	r.m.Cycle(context.Background())
	assert.Equal(t, 1, strings.Count(r.op.String(), "Horn activated"))
	assert.True(t, r.status.last.Horn)

	r.in.in = Inputs{Mains: true}
	r.m.Cycle(context.Background())
	_, ok := r.out.find(OutputHorn, false)
	assert.True(t, ok)
	assert.False(t, r.status.last.Horn)
}

func TestCycle_InputFaultKeepsLastMains(t *testing.T) {
	r := newRig(t)
	r.in.in = Inputs{Mains: false}
	r.m.Cycle(context.Background())
	assert.False(t, r.m.State().Mains)

	r.in.err = errors.New("modbus: timeout")
	r.m.Cycle(context.Background())
	assert.False(t, r.m.State().Mains)
	assert.Equal(t, status.HealthIOFault, r.status.last.Health)
}

// ---- run ----

func TestRun_CancelledReleasesOutputs(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.m.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, strings.HasPrefix(r.op.String(), "DEBUG: Board started\n"))

	last := r.out.sets[len(r.out.sets)-1]
	assert.Equal(t, OutputBacklight, last.out)
	assert.False(t, last.on)
	assert.Equal(t, Levels{}, r.out.levels[len(r.out.levels)-1])
}
