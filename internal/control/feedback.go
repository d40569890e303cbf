// internal/control/feedback.go
package control

import "time"

// Levels is the intensity of the two indicator colors.
type Levels struct {
	Green uint8
	Red   uint8
}

// pulsePeriod is one full bright-dark-bright cycle of the Reading pulse.
const pulsePeriod = 1024 * time.Millisecond

// Render maps state to indicator levels. Green shows an open lock, red a
// closed one. Without mains power the pulse is dimmed to a tenth.
func Render(s State, now time.Time) Levels {
	switch s.Mode {
	case ModeReading:
		v := pulse(now.Sub(s.ModeSince))
		if !s.Mains {
			v = (v + 5) / 10
		}
		return lockColor(s.LockOpen, uint8(v))

	case ModeAuthorized:
		return lockColor(s.LockOpen, 255)

	case ModeBusy:
		return Levels{Green: 255, Red: 255}

	default:
		return Levels{}
	}
}

// pulse returns 0..255 along a squared triangle wave. The phase starts at
// the bright peak.
func pulse(elapsed time.Duration) uint32 {
	if elapsed < 0 {
		elapsed = 0
	}
	period := uint32(pulsePeriod / time.Millisecond)
	t := (uint32(elapsed/time.Millisecond) + period/2) % period

	v := t
	if t >= period/2 {
		v = period - 1 - t
	}
	return v * v / period
}

func lockColor(open bool, v uint8) Levels {
	if open {
		return Levels{Green: v}
	}
	return Levels{Red: v}
}
