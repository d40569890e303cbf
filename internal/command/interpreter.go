// internal/command/interpreter.go
package command

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tamzrod/doorlock/internal/journal"
	"github.com/tamzrod/doorlock/internal/onewire"
	"github.com/tamzrod/doorlock/internal/store"
)

// Command keywords, matched as line prefixes.
const (
	CmdAddButton    = "add_button"
	CmdRemoveButton = "remove_button"
	CmdListButtons  = "list_buttons"
)

// Operator-visible markers.
const (
	ListHeader = "button list start"
	ListPrefix = "button: "
)

// ErrUnknownCommand is returned for lines that match no keyword.
var ErrUnknownCommand = errors.New("command: unknown command")

// ErrBlankAddress is returned when the all-0xFF address is given.
var ErrBlankAddress = errors.New("command: address FFFFFFFFFFFFFFFF is invalid")

// Store is what the interpreter needs from the credential table.
type Store interface {
	Add(addr onewire.Address, secret store.Secret) (int, error)
	Remove(addr onewire.Address) ([]int, error)
	Enumerate() ([]onewire.Address, error)
}

// Interpreter executes one operator line at a time and writes free-text
// diagnostics to out.
type Interpreter struct {
	store   Store
	out     io.Writer
	journal journal.Recorder
}

// NewInterpreter wires an interpreter. rec may be nil.
func NewInterpreter(s Store, out io.Writer, rec journal.Recorder) *Interpreter {
	if rec == nil {
		rec = journal.Nop{}
	}
	return &Interpreter{store: s, out: out, journal: rec}
}

// Execute parses and applies line. The returned error mirrors what was
// printed; callers only log it. A line is fully parsed before the store
// is touched.
func (in *Interpreter) Execute(line string) error {
	line = strings.TrimRight(line, "\r")
	in.printf("DEBUG: Received cmd: %s\n", line)

	isAdd := strings.HasPrefix(line, CmdAddButton)
	isRemove := strings.HasPrefix(line, CmdRemoveButton)
	isList := strings.HasPrefix(line, CmdListButtons)

	switch {
	case isAdd || isRemove:
		return in.addOrRemove(line, isAdd)
	case isList:
		return in.list()
	default:
		in.printf("Unknown command\n")
		return ErrUnknownCommand
	}
}

func (in *Interpreter) addOrRemove(line string, isAdd bool) error {
	var addr onewire.Address
	pos, err := hexWord(line, 0, addr[:], "address")
	if err != nil {
		in.printf("ERROR: %v\n", err)
		return err
	}
	in.printf("DEBUG: Received address %s\n", addr)

	if addr.IsBlank() {
		in.printf("ERROR: address FFFFFFFFFFFFFFFF is invalid\n")
		return ErrBlankAddress
	}

	if !isAdd {
		in.printf("DEBUG: removing button\n")
		cleared, err := in.store.Remove(addr)
		if err != nil {
			in.printf("ERROR: %v\n", err)
			return err
		}
		for _, slot := range cleared {
			in.printf("DEBUG: erasing slot %d\n", slot)
		}
		if len(cleared) == 0 {
			return store.ErrNotFound
		}
		e := journal.NewEvent(journal.KindCredentialRemoved, addr.String(), "")
		e.Slot = cleared[0]
		in.journal.Record(e)
		return nil
	}

	var secret store.Secret
	if _, err := hexWord(line, pos, secret[:], "secret"); err != nil {
		in.printf("ERROR: %v\n", err)
		return err
	}
	in.printf("DEBUG: Received secret %s\n", secret)

	slot, err := in.store.Add(addr, secret)
	switch {
	case errors.Is(err, store.ErrStoreFull):
		in.printf("ERROR: no room in eeprom to store button\n")
		return err
	case err != nil:
		in.printf("ERROR: %v\n", err)
		return err
	}
	in.printf("DEBUG: stored button in slot %d\n", slot)

	e := journal.NewEvent(journal.KindCredentialAdded, addr.String(), "")
	e.Slot = slot
	in.journal.Record(e)
	return nil
}

func (in *Interpreter) list() error {
	in.printf("%s\n", ListHeader)
	addrs, err := in.store.Enumerate()
	if err != nil {
		in.printf("ERROR: %v\n", err)
		return err
	}
	for _, a := range addrs {
		in.printf("%s%s\n", ListPrefix, a)
	}
	return nil
}

func (in *Interpreter) printf(format string, args ...any) {
	fmt.Fprintf(in.out, format, args...)
}
