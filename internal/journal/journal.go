// internal/journal/journal.go
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Kind classifies an access event.
type Kind uint8

const (
	KindGranted Kind = iota + 1
	KindDenied
	KindLockout
	KindLockOpened
	KindLockClosed
	KindSolenoid
	KindHorn
	KindCredentialAdded
	KindCredentialRemoved
)

func (k Kind) String() string {
	switch k {
	case KindGranted:
		return "granted"
	case KindDenied:
		return "denied"
	case KindLockout:
		return "lockout"
	case KindLockOpened:
		return "lock_opened"
	case KindLockClosed:
		return "lock_closed"
	case KindSolenoid:
		return "solenoid"
	case KindHorn:
		return "horn"
	case KindCredentialAdded:
		return "credential_added"
	case KindCredentialRemoved:
		return "credential_removed"
	default:
		return "unknown"
	}
}

// Event is one journal record. Integer keys keep records compact.
type Event struct {
	ID      string    `cbor:"1,keyasint"`
	Time    time.Time `cbor:"2,keyasint"`
	Kind    Kind      `cbor:"3,keyasint"`
	Address string    `cbor:"4,keyasint,omitempty"`
	Slot    int       `cbor:"5,keyasint,omitempty"`
	Detail  string    `cbor:"6,keyasint,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(kind Kind, address, detail string) Event {
	return Event{
		ID:      uuid.NewString(),
		Time:    time.Now(),
		Kind:    kind,
		Address: address,
		Detail:  detail,
	}
}

// Recorder accepts events. Implementations must not block the caller for long.
type Recorder interface {
	Record(e Event)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(Event) {}

var encMode cbor.EncMode
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor decoder mode: %v", err))
	}
}

// File appends CBOR-encoded events to a file. Safe for concurrent use.
type File struct {
	mu     sync.Mutex
	f      *os.File
	enc    *cbor.Encoder
	closed bool

	// OnError receives encode failures; journaling never stops the door.
	OnError func(error)
}

// OpenFile opens path for appending, creating it if needed.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	return &File{f: f, enc: encMode.NewEncoder(f)}, nil
}

func (j *File) Record(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return
	}
	if err := j.enc.Encode(e); err != nil && j.OnError != nil {
		j.OnError(err)
	}
}

// Close is idempotent; later Record calls are dropped.
func (j *File) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.f.Close()
}

// ReadAll decodes every event in r until EOF.
func ReadAll(r io.Reader) ([]Event, error) {
	dec := decMode.NewDecoder(r)
	var out []Event
	for {
		var e Event
		err := dec.Decode(&e)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("journal: decode event %d: %w", len(out), err)
		}
		out = append(out, e)
	}
}
