// internal/control/machine.go
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tamzrod/doorlock/internal/auth"
	"github.com/tamzrod/doorlock/internal/journal"
	"github.com/tamzrod/doorlock/internal/onewire"
	"github.com/tamzrod/doorlock/internal/operator"
	"github.com/tamzrod/doorlock/internal/status"
)

// ---- COLLABORATORS ----

// Bus finds the first token present. *onewire.Searcher implements it.
type Bus interface {
	First() (onewire.Address, bool, error)
}

// Authenticator verifies a present token. *auth.Authenticator implements it.
type Authenticator interface {
	Authenticate(addr onewire.Address) auth.Result
}

// Operator is the management link. *operator.Channel implements it.
type Operator interface {
	io.Writer
	Poll() (byte, bool)
	ReadLine(ctx context.Context, timeout time.Duration) (string, error)
}

// Interpreter executes one management line. *command.Interpreter implements it.
type Interpreter interface {
	Execute(line string) error
}

// Credentials reports how many credentials are stored. *store.Store implements it.
type Credentials interface {
	Occupied() (int, error)
}

// InputSource samples the auxiliary inputs.
type InputSource interface {
	Sample(ctx context.Context) (Inputs, error)
}

// Output names one level-driven actuator.
type Output uint8

const (
	OutputDoorPower Output = iota
	OutputOpen
	OutputClose
	OutputSolenoid
	OutputHorn
	OutputBacklight
)

func (o Output) String() string {
	switch o {
	case OutputDoorPower:
		return "door_power"
	case OutputOpen:
		return "open"
	case OutputClose:
		return "close"
	case OutputSolenoid:
		return "solenoid"
	case OutputHorn:
		return "horn"
	case OutputBacklight:
		return "backlight"
	default:
		return "unknown"
	}
}

// Outputs drives actuators and the indicator.
type Outputs interface {
	Set(ctx context.Context, o Output, on bool) error
	ShowLevels(ctx context.Context, l Levels) error
}

// StatusSink receives a snapshot at the end of every cycle.
type StatusSink interface {
	WriteStatus(s status.Snapshot) error
}

// Clock is the time source for waits and timers.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// ---- CONFIG ----

// Timing holds every wait the machine performs.
type Timing struct {
	CommandTimeout time.Duration
	Button         time.Duration // lock button press
	Toggle         time.Duration // whole lock actuation, including Button
	Hold           time.Duration // extra drive after the toggle
	Solenoid       time.Duration // door release hold
	Alarm          time.Duration // Busy display after a lockout
	Cycle          time.Duration // pause between cycles
	Frame          time.Duration // indicator refresh during waits
}

// Config tunes the machine.
type Config struct {
	Timing           Timing
	LockoutThreshold int
	LockoutHorn      bool
}

// DefaultConfig matches the reference door hardware.
func DefaultConfig() Config {
	return Config{
		Timing: Timing{
			CommandTimeout: 10 * time.Second,
			Button:         250 * time.Millisecond,
			Toggle:         2500 * time.Millisecond,
			Hold:           4000 * time.Millisecond,
			Solenoid:       10 * time.Second,
			Alarm:          500 * time.Millisecond,
			Cycle:          20 * time.Millisecond,
			Frame:          10 * time.Millisecond,
		},
		LockoutThreshold: 3,
	}
}

// Deps wires the machine. Bus, Auth, Operator and Interpreter are required.
type Deps struct {
	Bus         Bus
	Auth        Authenticator
	Operator    Operator
	Interpreter Interpreter

	Credentials Credentials
	Inputs      InputSource
	Outputs     Outputs
	Status      StatusSink
	Journal     journal.Recorder
	Clock       Clock
	Logger      *slog.Logger
}

// ---- MACHINE ----

// Machine is the control cycle. It is single-threaded: Run owns it.
type Machine struct {
	cfg Config
	d   Deps

	st State

	granted  uint64
	denied   uint64
	lockouts uint64
	creds    int
	ioFault  bool
}

// New validates deps and fills defaults for the optional ones.
func New(cfg Config, d Deps) (*Machine, error) {
	switch {
	case d.Bus == nil:
		return nil, errors.New("control: bus required")
	case d.Auth == nil:
		return nil, errors.New("control: authenticator required")
	case d.Operator == nil:
		return nil, errors.New("control: operator required")
	case d.Interpreter == nil:
		return nil, errors.New("control: interpreter required")
	}
	if cfg.LockoutThreshold < 1 {
		return nil, fmt.Errorf("control: lockout threshold %d must be >= 1", cfg.LockoutThreshold)
	}
	if cfg.Timing.Button > cfg.Timing.Toggle {
		return nil, fmt.Errorf("control: button time %s exceeds toggle time %s", cfg.Timing.Button, cfg.Timing.Toggle)
	}
	if cfg.Timing.Frame <= 0 {
		return nil, errors.New("control: frame interval must be > 0")
	}

	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	return &Machine{cfg: cfg, d: d, st: State{Mains: true}}, nil
}

// State returns a copy of the current control state.
func (m *Machine) State() State { return m.st }

// Run cycles until ctx is cancelled. Waits already started run to
// completion first. Actuators are released on return.
func (m *Machine) Run(ctx context.Context) error {
	m.println("DEBUG: Board started")
	m.releaseAll(ctx)
	m.set(ctx, OutputBacklight, true)
	m.refreshCredentials()

	for ctx.Err() == nil {
		m.Cycle(ctx)
		m.d.Clock.Sleep(m.cfg.Timing.Cycle)
	}

	m.releaseAll(context.Background())
	m.set(context.Background(), OutputBacklight, false)
	m.show(context.Background(), Levels{})
	return ctx.Err()
}

// Cycle runs one pass: operator command, token poll, auxiliary inputs,
// status publication.
func (m *Machine) Cycle(ctx context.Context) {
	m.ioFault = false

	if b, ok := m.d.Operator.Poll(); ok && b == '\n' {
		m.handleCommand(ctx)
	}

	m.enter(ModeReading)
	m.render(ctx)

	m.pollToken(ctx)
	m.render(ctx)

	m.sampleAux(ctx)
	m.publish()
}

// ---- COMMAND ----

func (m *Machine) handleCommand(ctx context.Context) {
	m.enter(ModeBusy)
	m.render(ctx)
	m.println("ready")

	line, err := m.d.Operator.ReadLine(ctx, m.cfg.Timing.CommandTimeout)
	switch {
	case errors.Is(err, operator.ErrTimeout):
		m.println("ERROR: timeout receiving command")
		return
	case err != nil:
		return
	}

	if err := m.d.Interpreter.Execute(line); err != nil {
		m.d.Logger.Debug("operator command rejected", "err", err)
	}
	m.refreshCredentials()
}

func (m *Machine) refreshCredentials() {
	if m.d.Credentials == nil {
		return
	}
	n, err := m.d.Credentials.Occupied()
	if err != nil {
		m.d.Logger.Warn("credential count failed", "err", err)
		return
	}
	m.creds = n
}

// ---- TOKEN ----

func (m *Machine) pollToken(ctx context.Context) {
	addr, found, err := m.d.Bus.First()
	if err != nil && !errors.Is(err, onewire.ErrCRC) {
		m.ioFault = true
		m.d.Logger.Debug("bus search failed", "err", err)
	}
	if !found || err != nil || !addr.CRCValid() {
		m.step(ctx, VerdictNoToken, addr, -1)
		return
	}

	m.printf("DEBUG: Found iButton with address: %s\n", addr)

	res := m.d.Auth.Authenticate(addr)
	switch {
	case res.Reason == auth.ReasonUnknownToken:
		m.println("DEBUG: can't find secret for button")
	case res.Slot >= 0:
		m.printf("DEBUG: got secret from slot %d\n", res.Slot)
	}

	if res.OK {
		m.granted++
		m.println("iButton authenticated")
		m.record(journal.KindGranted, addr.String(), res.Slot, "")
		m.step(ctx, VerdictGranted, addr, res.Slot)
		return
	}

	if res.Err != nil {
		m.d.Logger.Debug("authentication failed", "address", addr.String(), "reason", res.Reason.String(), "err", res.Err)
	}
	if res.Reason != auth.ReasonUnknownToken {
		m.printf("DEBUG: authentication failed: %s\n", res.Reason)
	}
	m.denied++
	m.record(journal.KindDenied, addr.String(), res.Slot, res.Reason.String())
	m.step(ctx, VerdictDenied, addr, res.Slot)
}

// step applies a verdict. slot is the credential slot behind the verdict,
// -1 if none.
func (m *Machine) step(ctx context.Context, v Verdict, addr onewire.Address, slot int) {
	var fx Effect
	m.st, fx = Step(m.st, v, m.cfg.LockoutThreshold, m.d.Clock.Now())

	switch fx {
	case EffectToggleLock:
		m.toggleLock(ctx)
		if m.st.LockOpen {
			m.st = m.st.RestartSolenoid(m.d.Clock.Now())
			m.solenoidOn(ctx)
		}

	case EffectLockout:
		m.lockouts++
		m.println("iButton not authenticated")
		m.record(journal.KindLockout, addr.String(), slot, fmt.Sprintf("%d consecutive denials", m.cfg.LockoutThreshold))
		m.render(ctx)
		if m.cfg.LockoutHorn {
			m.set(ctx, OutputHorn, true)
		}
		m.runFor(ctx, m.cfg.Timing.Alarm)
		if m.cfg.LockoutHorn {
			m.set(ctx, OutputHorn, m.st.Horn)
		}
	}
}

func (m *Machine) toggleLock(ctx context.Context) {
	t := m.cfg.Timing

	m.st = m.st.Toggle()
	drive := OutputOpen
	kind := journal.KindLockOpened
	if m.st.LockOpen {
		m.println("opening lock")
	} else {
		drive = OutputClose
		kind = journal.KindLockClosed
		m.println("closing lock")
	}

	m.set(ctx, OutputDoorPower, true)
	m.set(ctx, drive, true)
	m.runFor(ctx, t.Button)
	m.runFor(ctx, t.Toggle-t.Button)
	m.runFor(ctx, t.Hold)
	m.set(ctx, OutputOpen, false)
	m.set(ctx, OutputClose, false)
	m.set(ctx, OutputDoorPower, false)

	m.println("finished lock action")
	m.record(kind, "", 0, "")
}

// ---- AUXILIARY ----

func (m *Machine) solenoidOn(ctx context.Context) {
	m.println("Solenoid activated")
	m.set(ctx, OutputSolenoid, true)
	m.record(journal.KindSolenoid, "", 0, "")
}

func (m *Machine) sampleAux(ctx context.Context) {
	in := Inputs{Mains: m.st.Mains}
	if m.d.Inputs != nil {
		var err error
		in, err = m.d.Inputs.Sample(ctx)
		if err != nil {
			m.ioFault = true
			m.d.Logger.Debug("input sample failed", "err", err)
			// keep timers running on a failed sample
			in = Inputs{Mains: m.st.Mains, Horn: m.st.Horn}
		}
	}

	var fx AuxEffect
	m.st, fx = StepAux(m.st, in, m.d.Clock.Now(), m.cfg.Timing.Solenoid)

	if fx.SolenoidOn {
		m.solenoidOn(ctx)
	}
	if fx.SolenoidOff {
		m.set(ctx, OutputSolenoid, false)
	}
	if fx.HornOn {
		m.println("Horn activated")
		m.set(ctx, OutputHorn, true)
		m.record(journal.KindHorn, "", 0, "")
	}
	if fx.HornOff {
		m.set(ctx, OutputHorn, false)
	}
}

// ---- WAITS & RENDERING ----

// runFor keeps the indicator animated until d has elapsed.
func (m *Machine) runFor(ctx context.Context, d time.Duration) {
	start := m.d.Clock.Now()
	for m.d.Clock.Now().Sub(start) < d {
		m.render(ctx)
		m.d.Clock.Sleep(m.cfg.Timing.Frame)
	}
}

func (m *Machine) enter(mode Mode) {
	m.st = m.st.Enter(mode, m.d.Clock.Now())
}

func (m *Machine) render(ctx context.Context) {
	m.show(ctx, Render(m.st, m.d.Clock.Now()))
}

func (m *Machine) show(ctx context.Context, l Levels) {
	if m.d.Outputs == nil {
		return
	}
	if err := m.d.Outputs.ShowLevels(ctx, l); err != nil {
		m.ioFault = true
		m.d.Logger.Debug("indicator write failed", "err", err)
	}
}

func (m *Machine) set(ctx context.Context, o Output, on bool) {
	if m.d.Outputs == nil {
		return
	}
	if err := m.d.Outputs.Set(ctx, o, on); err != nil {
		m.ioFault = true
		m.d.Logger.Warn("output write failed", "output", o.String(), "on", on, "err", err)
	}
}

func (m *Machine) releaseAll(ctx context.Context) {
	for _, o := range []Output{OutputOpen, OutputClose, OutputDoorPower, OutputSolenoid, OutputHorn} {
		m.set(ctx, o, false)
	}
}

// ---- REPORTING ----

func (m *Machine) publish() {
	if m.d.Status == nil {
		return
	}
	if err := m.d.Status.WriteStatus(m.Snapshot()); err != nil {
		m.d.Logger.Debug("status write failed", "err", err)
	}
}

// Snapshot reports the current state for the status block.
func (m *Machine) Snapshot() status.Snapshot {
	health := status.HealthOK
	if m.ioFault {
		health = status.HealthIOFault
	}
	return status.Snapshot{
		Health:       health,
		Mode:         statusMode(m.st.Mode),
		LockOpen:     m.st.LockOpen,
		DeniedStreak: status.Saturate(uint64(m.st.Denied)),
		MainsPower:   m.st.Mains,
		Solenoid:     m.st.Solenoid,
		Horn:         m.st.Horn,
		GrantedTotal: status.Saturate(m.granted),
		DeniedTotal:  status.Saturate(m.denied),
		LockoutTotal: status.Saturate(m.lockouts),
		Credentials:  status.Saturate(uint64(m.creds)),
	}
}

func statusMode(md Mode) uint16 {
	switch md {
	case ModeReading:
		return status.ModeReading
	case ModeAuthorized:
		return status.ModeAuthorized
	case ModeBusy:
		return status.ModeBusy
	default:
		return status.ModeIdle
	}
}

func (m *Machine) record(kind journal.Kind, addr string, slot int, detail string) {
	e := journal.NewEvent(kind, addr, detail)
	e.Time = m.d.Clock.Now()
	e.Slot = slot
	m.d.Journal.Record(e)
}

func (m *Machine) println(s string) {
	_, _ = io.WriteString(m.d.Operator, s+"\n")
}

func (m *Machine) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(m.d.Operator, format, args...)
}
