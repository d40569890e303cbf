// internal/auth/authenticator.go
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/tamzrod/doorlock/internal/onewire"
	"github.com/tamzrod/doorlock/internal/onewire/ds1961"
	"github.com/tamzrod/doorlock/internal/store"
)

// Token performs the challenge-response read on a physical token.
// *ds1961.Device implements it.
type Token interface {
	ReadAuthWithChallenge(addr onewire.Address, page uint16, challenge [ds1961.ChallengeSize]byte) ([ds1961.PageSize]byte, [ds1961.MACSize]byte, error)
}

// Secrets resolves a token address to its stored secret.
// *store.Store implements it.
type Secrets interface {
	Lookup(addr onewire.Address) (store.Secret, int, error)
}

// Reason says why a verdict was reached. It is for local diagnostics only
// and never reaches the presenting party.
type Reason uint8

const (
	ReasonGranted Reason = iota
	ReasonUnknownToken
	ReasonEntropy
	ReasonDeviceIO
	ReasonMismatch
)

func (r Reason) String() string {
	switch r {
	case ReasonGranted:
		return "granted"
	case ReasonUnknownToken:
		return "unknown token"
	case ReasonEntropy:
		return "entropy failure"
	case ReasonDeviceIO:
		return "device i/o error"
	case ReasonMismatch:
		return "mac mismatch"
	default:
		return "unknown"
	}
}

// Result is the outcome of one attempt.
type Result struct {
	OK     bool
	Reason Reason
	Slot   int   // slot the secret came from, -1 if none
	Err    error // underlying error for ReasonEntropy / ReasonDeviceIO
}

// Config tunes the engine.
type Config struct {
	Page      uint16
	JitterMin time.Duration
	JitterMax time.Duration
}

// DefaultConfig matches the timing of the reference hardware.
func DefaultConfig() Config {
	return Config{
		Page:      0,
		JitterMin: 50 * time.Microsecond,
		JitterMax: 200 * time.Microsecond,
	}
}

// Authenticator verifies token possession without the secret crossing the bus.
type Authenticator struct {
	cfg     Config
	secrets Secrets
	token   Token

	// Entropy supplies nonce and jitter randomness. Defaults to crypto/rand.
	Entropy io.Reader
	// Sleep is used for the jitter delay. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// New builds an engine.
func New(cfg Config, secrets Secrets, token Token) (*Authenticator, error) {
	if secrets == nil {
		return nil, errors.New("auth: secrets required")
	}
	if token == nil {
		return nil, errors.New("auth: token required")
	}
	if cfg.Page != 0 {
		return nil, fmt.Errorf("auth: page %d unsupported, responses are verified for page 0 only", cfg.Page)
	}
	if cfg.JitterMin < 0 || cfg.JitterMax < cfg.JitterMin {
		return nil, fmt.Errorf("auth: invalid jitter range %s..%s", cfg.JitterMin, cfg.JitterMax)
	}
	return &Authenticator{
		cfg:     cfg,
		secrets: secrets,
		token:   token,
		Entropy: rand.Reader,
		Sleep:   time.Sleep,
	}, nil
}

// Authenticate runs one challenge-response exchange with the token at addr.
// addr must already be known present with a valid CRC.
func (a *Authenticator) Authenticate(addr onewire.Address) Result {
	secret, slot, err := a.secrets.Lookup(addr)
	if err != nil {
		return Result{Reason: ReasonUnknownToken, Slot: -1, Err: err}
	}

	var nonce Nonce
	if _, err := io.ReadFull(a.Entropy, nonce[:]); err != nil {
		return Result{Reason: ReasonEntropy, Slot: slot, Err: err}
	}

	res := a.verify(addr, secret, nonce)
	res.Slot = slot

	a.jitter()
	return res
}

func (a *Authenticator) verify(addr onewire.Address, secret store.Secret, nonce Nonce) Result {
	page, mac, err := a.token.ReadAuthWithChallenge(addr, a.cfg.Page, nonce)
	if err != nil {
		return Result{Reason: ReasonDeviceIO, Err: err}
	}

	if !Equal(ExpectedResponse(secret, page, addr, nonce), Response(mac)) {
		return Result{Reason: ReasonMismatch}
	}
	return Result{OK: true, Reason: ReasonGranted}
}

func (a *Authenticator) jitter() {
	d := a.cfg.JitterMin
	if span := int64(a.cfg.JitterMax - a.cfg.JitterMin); span > 0 {
		n, err := rand.Int(a.Entropy, big.NewInt(span))
		if err == nil {
			d += time.Duration(n.Int64())
		}
	}
	if d > 0 {
		a.Sleep(d)
	}
}
