// internal/writer/modbus/client.go
package modbus

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// Register areas, numbered after the read function codes.
const (
	AreaCoils            byte = 1
	AreaDiscreteInputs   byte = 2
	AreaHoldingRegisters byte = 3
	AreaInputRegisters   byte = 4
)

// EndpointClient is a single link to one Modbus I/O station, over TCP or
// RTU. It serializes requests because it mutates SlaveId per request and
// an RTU line carries one transaction at a time.
type EndpointClient struct {
	mu      sync.Mutex
	handler handler
	client  modbus.Client
	setUnit func(uint8)
}

type handler interface {
	modbus.ClientHandler
	Connect() error
	Close() error
}

// Config selects the link. Exactly one of Endpoint or Serial is used.
type Config struct {
	Endpoint string
	Serial   *SerialConfig
	Timeout  time.Duration
}

// SerialConfig describes an RTU line.
type SerialConfig struct {
	Device   string
	Baud     int
	DataBits int
	Parity   string
	StopBits int
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	c := &EndpointClient{}

	switch {
	case cfg.Endpoint != "":
		h := modbus.NewTCPClientHandler(cfg.Endpoint)
		h.Timeout = cfg.Timeout
		c.handler = h
		c.setUnit = func(id uint8) { h.SlaveId = id }

	case cfg.Serial != nil && cfg.Serial.Device != "":
		h := modbus.NewRTUClientHandler(cfg.Serial.Device)
		h.BaudRate = cfg.Serial.Baud
		h.DataBits = cfg.Serial.DataBits
		h.Parity = cfg.Serial.Parity
		h.StopBits = cfg.Serial.StopBits
		h.Timeout = cfg.Timeout
		c.handler = h
		c.setUnit = func(id uint8) { h.SlaveId = id }

	default:
		return nil, errors.New("writer modbus: endpoint or serial device required")
	}

	if err := c.handler.Connect(); err != nil {
		return nil, fmt.Errorf("writer modbus: connect: %w", err)
	}
	c.client = modbus.NewClient(c.handler)
	return c, nil
}

func (c *EndpointClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteBits writes coils. Discrete inputs are read-only on a real station.
func (c *EndpointClient) WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error {
	if area != AreaCoils {
		return fmt.Errorf("writer modbus: area %d is not writable as bits", area)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unitID)

	if len(bits) == 1 {
		v := uint16(0x0000)
		if bits[0] {
			v = 0xFF00
		}
		_, err := c.client.WriteSingleCoil(addr, v)
		return err
	}

	_, err := c.client.WriteMultipleCoils(addr, uint16(len(bits)), packBits(bits))
	return err
}

// WriteRegisters writes holding registers.
func (c *EndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if area != AreaHoldingRegisters {
		return fmt.Errorf("writer modbus: area %d is not writable as registers", area)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unitID)

	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

// ReadBits reads coils (area 1) or discrete inputs (area 2).
func (c *EndpointClient) ReadBits(area byte, unitID uint8, addr, qty uint16) ([]bool, error) {
	if qty == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.setUnit(unitID)

	var (
		raw []byte
		err error
	)
	switch area {
	case AreaCoils:
		raw, err = c.client.ReadCoils(addr, qty)
	case AreaDiscreteInputs:
		raw, err = c.client.ReadDiscreteInputs(addr, qty)
	default:
		return nil, fmt.Errorf("writer modbus: area %d is not readable as bits", area)
	}
	if err != nil {
		return nil, err
	}
	if len(raw) < (int(qty)+7)/8 {
		return nil, errors.New("writer modbus: read-bits payload shorter than quantity")
	}
	return unpackBits(raw, int(qty)), nil
}

// ---- helpers (pure geometry) ----

func packBits(bits []bool) []byte {
	n := (len(bits) + 7) / 8
	out := make([]byte, n)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func unpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
