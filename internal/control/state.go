// internal/control/state.go
package control

import "time"

// Mode is the feedback mode shown on the indicator.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeReading
	ModeAuthorized
	ModeBusy
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeReading:
		return "reading"
	case ModeAuthorized:
		return "authorized"
	case ModeBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// State is the whole mutable control state. It is owned by the Machine
// and passed through the transition functions by value.
type State struct {
	Mode      Mode
	ModeSince time.Time // when Reading was last entered; pulse phase origin

	LockOpen bool
	Denied   int // consecutive denials
	Mains    bool

	Solenoid      bool
	SolenoidSince time.Time
	Horn          bool
}

// Enter switches mode. Re-entering Reading from another mode restarts
// the pulse animation.
func (s State) Enter(m Mode, now time.Time) State {
	if m == ModeReading && s.Mode != ModeReading {
		s.ModeSince = now
	}
	s.Mode = m
	return s
}

// Verdict is what one bus poll produced.
type Verdict uint8

const (
	VerdictNoToken Verdict = iota
	VerdictGranted
	VerdictDenied
)

// Effect is the actuation a transition asks for.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectToggleLock
	EffectLockout
)

// Step applies one poll verdict. threshold is the consecutive-denial count
// that raises a lockout.
func Step(s State, v Verdict, threshold int, now time.Time) (State, Effect) {
	switch v {
	case VerdictGranted:
		s = s.Enter(ModeAuthorized, now)
		s.Denied = 0
		return s, EffectToggleLock

	case VerdictDenied:
		s.Denied++
		if s.Denied >= threshold {
			s.Denied = 0
			s = s.Enter(ModeBusy, now)
			return s, EffectLockout
		}
		return s, EffectNone

	default:
		s.Denied = 0
		return s, EffectNone
	}
}

// Toggle flips the recorded lock position.
func (s State) Toggle() State {
	s.LockOpen = !s.LockOpen
	return s
}

// StartSolenoid begins a release hold unless one is running.
// It reports whether the output must be driven.
func (s State) StartSolenoid(now time.Time) (State, bool) {
	if s.Solenoid {
		return s, false
	}
	return s.RestartSolenoid(now), true
}

// RestartSolenoid begins a full release hold at now, replacing any hold
// already running.
func (s State) RestartSolenoid(now time.Time) State {
	s.Solenoid = true
	s.SolenoidSince = now
	return s
}

// Inputs is one sample of the auxiliary inputs, already polarity corrected.
type Inputs struct {
	Release bool // request door release
	Horn    bool
	Mains   bool
}

// AuxEffect lists output edges produced by StepAux.
type AuxEffect struct {
	SolenoidOn  bool
	SolenoidOff bool
	HornOn      bool
	HornOff     bool
}

// StepAux handles the release trigger, the release hold timer and the
// horn mirror for one sample.
func StepAux(s State, in Inputs, now time.Time, hold time.Duration) (State, AuxEffect) {
	var fx AuxEffect

	s.Mains = in.Mains

	if in.Release {
		s, fx.SolenoidOn = s.StartSolenoid(now)
	}
	if s.Solenoid && now.Sub(s.SolenoidSince) > hold {
		s.Solenoid = false
		fx.SolenoidOn = false
		fx.SolenoidOff = true
	}

	switch {
	case in.Horn && !s.Horn:
		s.Horn = true
		fx.HornOn = true
	case !in.Horn && s.Horn:
		s.Horn = false
		fx.HornOff = true
	}

	return s, fx
}
