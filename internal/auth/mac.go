// internal/auth/mac.go
package auth

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"

	"github.com/tamzrod/doorlock/internal/onewire"
	"github.com/tamzrod/doorlock/internal/onewire/ds1961"
	"github.com/tamzrod/doorlock/internal/store"
)

// ResponseSize is the length of a token MAC.
const ResponseSize = ds1961.MACSize

// NonceSize is the length of the challenge sent to the token.
const NonceSize = ds1961.ChallengeSize

// Response is a MAC in the byte order the token transmits it.
type Response [ResponseSize]byte

// Nonce is the per-attempt challenge.
type Nonce [NonceSize]byte

// SHA-1 initial chaining values H0..H4. The token starts its engine from
// these and returns the raw registers without the final feed-forward.
var sha1Init = [5]uint32{
	0x67452301,
	0xEFCDAB89,
	0x98BADCFE,
	0x10325476,
	0xC3D2E1F0,
}

// Message-block constants of the read-authenticated-page computation.
const (
	macFiller  byte = 0xFF
	macPageTag byte = 0x40 // page 0
	macMsgSize      = 4 + ds1961.PageSize + 4 + 1 + (onewire.AddressSize - 1) + 4 + NonceSize
)

// Message lays out the 55-byte input the token hashes:
// secret[0:4] | page | FF FF FF FF | 0x40 | rom[0:7] | secret[4:8] | nonce.
func Message(secret store.Secret, page [ds1961.PageSize]byte, addr onewire.Address, nonce Nonce) []byte {
	msg := make([]byte, 0, macMsgSize)
	msg = append(msg, secret[:4]...)
	msg = append(msg, page[:]...)
	msg = append(msg, macFiller, macFiller, macFiller, macFiller)
	msg = append(msg, macPageTag)
	msg = append(msg, addr[:onewire.AddressSize-1]...)
	msg = append(msg, secret[4:]...)
	msg = append(msg, nonce[:]...)
	return msg
}

// DigestToResponse converts a standard SHA-1 digest of Message into the
// token's response form. Digest word i (big-endian) minus H_i, mod 2^32,
// gives the raw register; the token sends the 20 register bytes in
// reverse order (E first, least significant byte first).
func DigestToResponse(digest [sha1.Size]byte) Response {
	var be [sha1.Size]byte
	for i, h := range sha1Init {
		w := binary.BigEndian.Uint32(digest[4*i:])
		binary.BigEndian.PutUint32(be[4*i:], w-h)
	}

	var out Response
	for i := range out {
		out[i] = be[ResponseSize-1-i]
	}
	return out
}

// ExpectedResponse computes the MAC a genuine token holding secret returns.
func ExpectedResponse(secret store.Secret, page [ds1961.PageSize]byte, addr onewire.Address, nonce Nonce) Response {
	return DigestToResponse(sha1.Sum(Message(secret, page, addr, nonce)))
}

// Equal compares two responses over all bytes in constant time.
func Equal(a, b Response) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
