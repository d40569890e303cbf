// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/doorlock/internal/config"
	"github.com/tamzrod/doorlock/internal/control"
	"github.com/tamzrod/doorlock/internal/writer/ingest"
	wmodbus "github.com/tamzrod/doorlock/internal/writer/modbus"
)

// BuildEndpointClient opens the I/O station link described by io.
// Assumes config has already passed validation.
func BuildEndpointClient(io *cfg.IOConfig) (*wmodbus.EndpointClient, error) {
	if io == nil {
		return nil, errors.New("writer: io config required")
	}

	c := wmodbus.Config{
		Endpoint: io.Endpoint,
		Timeout:  time.Duration(io.TimeoutMs) * time.Millisecond,
	}
	if s := io.Serial; s != nil {
		c.Serial = &wmodbus.SerialConfig{
			Device:   s.Device,
			Baud:     s.Baud,
			DataBits: s.DataBits,
			Parity:   s.Parity,
			StopBits: s.StopBits,
		}
	}
	return wmodbus.NewEndpointClient(c)
}

// BuildOutputPlan converts the io coil and indicator map into a plan.
func BuildOutputPlan(io *cfg.IOConfig) OutputPlan {
	plan := OutputPlan{
		UnitID: io.UnitID,
		Coils:  map[control.Output]uint16{},
	}

	for _, c := range []struct {
		out  control.Output
		addr *uint16
	}{
		{control.OutputDoorPower, io.Coils.DoorPower},
		{control.OutputOpen, io.Coils.Open},
		{control.OutputClose, io.Coils.Close},
		{control.OutputSolenoid, io.Coils.Solenoid},
		{control.OutputHorn, io.Coils.Horn},
		{control.OutputBacklight, io.Coils.Backlight},
	} {
		if c.addr != nil {
			plan.Coils[c.out] = *c.addr
		}
	}

	if io.LEDs != nil {
		plan.LEDs = &LEDPlan{Green: io.LEDs.Green, Red: io.LEDs.Red}
	}
	return plan
}

// BuildStatusWriter builds the door status writer and its transport.
// A modbus status block without its own endpoint, or on the io endpoint,
// shares ioClient. The returned closer releases only what was opened here.
func BuildStatusWriter(st *cfg.StatusConfig, io *cfg.IOConfig, ioClient *wmodbus.EndpointClient) (StatusWriter, func() error, error) {
	noop := func() error { return nil }
	if st == nil {
		return nil, noop, nil
	}

	plan := &StatusPlan{
		Endpoint:   st.Endpoint,
		UnitID:     st.UnitID,
		BaseSlot:   st.Slot,
		DeviceName: st.DeviceName,
	}
	timeout := time.Duration(st.TimeoutMs) * time.Millisecond

	var (
		cli    endpointClient
		closer = noop
	)

	switch st.Transport {
	case "ingest":
		c, err := ingest.NewEndpointClient(ingest.Config{Endpoint: st.Endpoint, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		cli, closer = c, c.Close

	default:
		shared := st.Endpoint == "" || (io != nil && io.Endpoint == st.Endpoint)
		if shared {
			if ioClient == nil {
				return nil, nil, errors.New("writer: status shares the io link but it is not open")
			}
			cli = ioClient
			if plan.Endpoint == "" && io != nil {
				plan.Endpoint = io.Endpoint
			}
			break
		}
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{Endpoint: st.Endpoint, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		cli, closer = c, c.Close
	}

	sw, _ := NewDeviceStatusWriter(plan, cli)
	return sw, closer, nil
}
