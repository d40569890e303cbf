// internal/onewire/ds1961/ds1961_test.go
package ds1961

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/doorlock/internal/onewire"
)

// fakeMaster records writes and serves queued reads.
type fakeMaster struct {
	resets  int
	written []byte
	reads   []byte
	noDev   bool
}

func (f *fakeMaster) Reset() error {
	if f.noDev {
		return onewire.ErrNoPresence
	}
	f.resets++
	return nil
}

func (f *fakeMaster) WriteByte(b byte) error {
	f.written = append(f.written, b)
	return nil
}

func (f *fakeMaster) ReadByte() (byte, error) {
	if len(f.reads) == 0 {
		return 0, errors.New("no more reads")
	}
	b := f.reads[0]
	f.reads = f.reads[1:]
	return b, nil
}

func (f *fakeMaster) TouchBit(bit bool) (bool, error) { return bit, nil }

func invCRC(data []byte) []byte {
	c := ^onewire.CRC16(data)
	return []byte{byte(c), byte(c >> 8)}
}

func script(challenge [3]byte, data [PageSize]byte, mac [MACSize]byte, status byte) []byte {
	var reads []byte

	// write scratchpad CRC
	ws := []byte{cmdWriteScratchpad, 0x00, 0x00, 0, 0, 0, 0, challenge[0], challenge[1], challenge[2], 0}
	reads = append(reads, invCRC(ws)...)

	// read auth page: data, filler, CRC
	cov := append([]byte{cmdReadAuthPage, 0x00, 0x00}, data[:]...)
	cov = append(cov, 0xFF)
	reads = append(reads, data[:]...)
	reads = append(reads, 0xFF)
	reads = append(reads, invCRC(cov)...)

	reads = append(reads, mac[:]...)
	reads = append(reads, invCRC(mac[:])...)
	reads = append(reads, status)
	return reads
}

func TestReadAuthWithChallenge_Success(t *testing.T) {
	addr := onewire.NewAddress(FamilyCode, [6]byte{1, 2, 3, 4, 5, 6})
	challenge := [3]byte{0xAB, 0xCD, 0xEF}

	var data [PageSize]byte
	var mac [MACSize]byte
	for i := range data {
		data[i] = byte(i)
	}
	for i := range mac {
		mac[i] = byte(0xF0 - i)
	}

	m := &fakeMaster{reads: script(challenge, data, mac, readAuthDoneMarker)}
	d := New(m)
	d.ComputeDelay = 0

	gotData, gotMAC, err := d.ReadAuthWithChallenge(addr, 0, challenge)
	require.NoError(t, err)
	assert.Equal(t, data, gotData)
	assert.Equal(t, mac, gotMAC)
	assert.Equal(t, 2, m.resets)

	// match rom + addr + write scratchpad frame
	want := []byte{onewire.CmdMatchROM}
	want = append(want, addr[:]...)
	want = append(want, cmdWriteScratchpad, 0, 0, 0, 0, 0, 0, 0xAB, 0xCD, 0xEF, 0)
	want = append(want, onewire.CmdMatchROM)
	want = append(want, addr[:]...)
	want = append(want, cmdReadAuthPage, 0, 0)
	assert.Equal(t, want, m.written)
}

func TestReadAuthWithChallenge_MACCRCError(t *testing.T) {
	addr := onewire.NewAddress(FamilyCode, [6]byte{1, 2, 3, 4, 5, 6})
	challenge := [3]byte{1, 2, 3}
	var data [PageSize]byte
	var mac [MACSize]byte

	reads := script(challenge, data, mac, readAuthDoneMarker)
	// corrupt first MAC byte
	reads[2+PageSize+3] ^= 0x01

	d := New(&fakeMaster{reads: reads})
	d.ComputeDelay = 0

	_, _, err := d.ReadAuthWithChallenge(addr, 0, challenge)
	assert.ErrorIs(t, err, onewire.ErrCRC)
}

func TestReadAuthWithChallenge_BadStatus(t *testing.T) {
	addr := onewire.NewAddress(FamilyCode, [6]byte{1, 2, 3, 4, 5, 6})
	challenge := [3]byte{1, 2, 3}
	var data [PageSize]byte
	var mac [MACSize]byte

	d := New(&fakeMaster{reads: script(challenge, data, mac, 0x00)})
	d.ComputeDelay = 0

	_, _, err := d.ReadAuthWithChallenge(addr, 0, challenge)
	assert.ErrorIs(t, err, ErrStatus)
}

func TestReadAuthWithChallenge_NoDevice(t *testing.T) {
	addr := onewire.NewAddress(FamilyCode, [6]byte{1, 2, 3, 4, 5, 6})
	d := New(&fakeMaster{noDev: true})

	_, _, err := d.ReadAuthWithChallenge(addr, 0, [3]byte{})
	assert.ErrorIs(t, err, onewire.ErrNoPresence)
}

func TestReadAuthWithChallenge_PageOutOfRange(t *testing.T) {
	addr := onewire.NewAddress(FamilyCode, [6]byte{1, 2, 3, 4, 5, 6})

	for _, page := range []uint16{Pages, 2048} {
		m := &fakeMaster{}
		_, _, err := New(m).ReadAuthWithChallenge(addr, page, [3]byte{})
		assert.ErrorIs(t, err, ErrPage, "page %d", page)
		assert.Empty(t, m.written, "page %d", page)
		assert.Zero(t, m.resets, "page %d", page)
	}
}
