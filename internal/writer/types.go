// internal/writer/types.go
package writer

import "github.com/tamzrod/doorlock/internal/control"

// OutputPlan maps door actuators and the indicator onto one I/O station.
type OutputPlan struct {
	UnitID uint8

	// Coils holds the coil address of every wired actuator. Actuators
	// missing from the map are not driven.
	Coils map[control.Output]uint16

	// LEDs is nil when the indicator is not wired.
	LEDs *LEDPlan
}

// LEDPlan holds the holding registers taking 0..255 intensities.
type LEDPlan struct {
	Green uint16
	Red   uint16
}

// StatusPlan places the door status block on an endpoint.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}
