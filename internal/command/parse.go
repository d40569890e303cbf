// internal/command/parse.go
package command

import (
	"fmt"
)

// ParseError is a malformed operator command. Word names the offending
// argument and Reason what is wrong with it; Error() is the exact
// diagnostic printed after "ERROR: ".
type ParseError struct {
	Word   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == reasonMissing {
		return fmt.Sprintf("no %s found in command", e.Word)
	}
	return fmt.Sprintf("%s is %s", e.Word, e.Reason)
}

const (
	reasonMissing  = "missing"
	reasonTooShort = "too short"
	reasonInvalid  = "invalid"
)

// nextWordPos returns the start of the word after the first run of spaces
// at or after pos, or 0 when there is none. 0 is never a valid argument
// position because the command keyword occupies it.
func nextWordPos(line string, pos int) int {
	sawSpace := false
	for i := pos; i < len(line); i++ {
		if !sawSpace {
			if line[i] == ' ' {
				sawSpace = true
			}
			continue
		}
		if line[i] != ' ' {
			return i
		}
	}
	return 0
}

// hexWord decodes len(dst) bytes of hex from the word following pos.
// It returns the position of that word so the next call continues after it.
// Characters beyond the decoded width are ignored.
func hexWord(line string, pos int, dst []byte, name string) (int, error) {
	pos = nextWordPos(line, pos)
	if pos == 0 {
		return 0, &ParseError{Word: name, Reason: reasonMissing}
	}
	if len(line)-pos < 2*len(dst) {
		return 0, &ParseError{Word: name, Reason: reasonTooShort}
	}

	for i := range dst {
		hi, lo := line[pos+2*i], line[pos+2*i+1]
		if hi == ' ' || lo == ' ' {
			return 0, &ParseError{Word: name, Reason: reasonTooShort}
		}
		h, ok1 := fromHex(hi)
		l, ok2 := fromHex(lo)
		if !ok1 || !ok2 {
			return 0, &ParseError{Word: name, Reason: reasonInvalid}
		}
		dst[i] = h<<4 | l
	}
	return pos, nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
