// internal/writer/ingest/client.go
package ingest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

const (
	magic     = "RI"
	versionV1 = 0x01
	headerLen = 10

	respOK       byte = 0x00
	respRejected byte = 0x01
)

// ErrRejected is returned when the receiver refuses a packet.
var ErrRejected = errors.New("writer ingest: rejected")

// EndpointClient pushes register blocks with the Raw Ingest v1 protocol.
// It is stateless: one packet per connection.
type EndpointClient struct {
	endpoint string
	timeout  time.Duration

	// Dial opens the connection. Defaults to net.DialTimeout over TCP.
	Dial func(endpoint string, timeout time.Duration) (net.Conn, error)
}

type Config struct {
	Endpoint string
	Timeout  time.Duration
}

func NewEndpointClient(cfg Config) (*EndpointClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("writer ingest: endpoint required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	return &EndpointClient{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		Dial: func(endpoint string, timeout time.Duration) (net.Conn, error) {
			return net.DialTimeout("tcp", endpoint, timeout)
		},
	}, nil
}

func (c *EndpointClient) Close() error { return nil }

// WriteBits sends a coil or discrete-input image (areas 1 and 2).
func (c *EndpointClient) WriteBits(area byte, unitID uint8, addr uint16, bits []bool) error {
	if area != 1 && area != 2 {
		return fmt.Errorf("writer ingest: area %d does not carry bits", area)
	}
	return c.send(BuildPacketV1(area, unitID, addr, uint16(len(bits)), packBits(bits)))
}

// WriteRegisters sends a register image (areas 3 and 4).
func (c *EndpointClient) WriteRegisters(area byte, unitID uint8, addr uint16, regs []uint16) error {
	if area != 3 && area != 4 {
		return fmt.Errorf("writer ingest: area %d does not carry registers", area)
	}
	return c.send(BuildPacketV1(area, unitID, addr, uint16(len(regs)), packRegisters(regs)))
}

func (c *EndpointClient) send(pkt []byte) error {
	conn, err := c.Dial(c.endpoint, c.timeout)
	if err != nil {
		return fmt.Errorf("writer ingest: dial: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(pkt); err != nil {
		return fmt.Errorf("writer ingest: write: %w", err)
	}

	var resp [1]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return fmt.Errorf("writer ingest: read status: %w", err)
	}

	switch resp[0] {
	case respOK:
		return nil
	case respRejected:
		return ErrRejected
	default:
		return fmt.Errorf("writer ingest: unknown status 0x%02x", resp[0])
	}
}

// BuildPacketV1 lays out one packet. The layout is LOCKED:
//
//	0-1  magic "RI"
//	2    version 0x01
//	3    area
//	4-5  unit id
//	6-7  address
//	8-9  count (bits or registers)
//	10+  payload
//
// All fields are big-endian.
func BuildPacketV1(area byte, unitID uint8, addr, count uint16, payload []byte) []byte {
	pkt := make([]byte, headerLen, headerLen+len(payload))
	copy(pkt[0:2], magic)
	pkt[2] = versionV1
	pkt[3] = area
	binary.BigEndian.PutUint16(pkt[4:6], uint16(unitID))
	binary.BigEndian.PutUint16(pkt[6:8], addr)
	binary.BigEndian.PutUint16(pkt[8:10], count)
	return append(pkt, payload...)
}

// ---- helpers ----

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// Modbus register memory order (BIG-ENDIAN)
func packRegisters(regs []uint16) []byte {
	out := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[2*i:], r)
	}
	return out
}
