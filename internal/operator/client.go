// internal/operator/client.go
package operator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/tamzrod/doorlock/internal/command"
)

// Client is the host side of the operator link: it wakes the controller,
// sends one command and collects the reply until the link goes quiet.
type Client struct {
	port io.ReadWriter

	// Settle is the pause between the wake-up newline and the command.
	Settle time.Duration
	Sleep  func(time.Duration)
}

// NewClient wraps an open port. Reads on port must return (io.EOF or a
// serial timeout) once the controller stops talking.
func NewClient(port io.ReadWriter) *Client {
	return &Client{
		port:   port,
		Settle: 100 * time.Millisecond,
		Sleep:  time.Sleep,
	}
}

// Exec sends cmd and returns every reply line with line endings trimmed.
func (c *Client) Exec(ctx context.Context, cmd string) ([]string, error) {
	if _, err := c.port.Write([]byte("\r\n")); err != nil {
		return nil, err
	}
	c.Sleep(c.Settle)
	if _, err := c.port.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, err
	}

	var (
		lines   []string
		pending bytes.Buffer
		buf     = make([]byte, 256)
	)
	flush := func() {
		if pending.Len() > 0 {
			lines = append(lines, strings.TrimRight(pending.String(), "\r"))
			pending.Reset()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return lines, err
		}

		n, err := c.port.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				lines = append(lines, strings.TrimRight(pending.String(), "\r"))
				pending.Reset()
				continue
			}
			pending.WriteByte(b)
		}
		if err == nil {
			continue
		}
		flush()
		if isTimeout(err) || errors.Is(err, io.EOF) {
			return lines, nil
		}
		return lines, err
	}
}

// List returns the stored addresses, sorted.
func (c *Client) List(ctx context.Context) ([]string, error) {
	lines, err := c.Exec(ctx, command.CmdListButtons)
	if err != nil {
		return nil, err
	}
	return ParseList(lines), nil
}

// Add stores id with secret. Reply lines are returned for display.
func (c *Client) Add(ctx context.Context, id, secret string) ([]string, error) {
	return c.Exec(ctx, command.CmdAddButton+" "+id+" "+secret)
}

// Remove erases id.
func (c *Client) Remove(ctx context.Context, id string) ([]string, error) {
	return c.Exec(ctx, command.CmdRemoveButton+" "+id)
}

// ParseList extracts addresses following the list header. Output before
// the header, such as debug lines, is ignored.
func ParseList(lines []string) []string {
	var (
		started bool
		ids     []string
	)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == command.ListHeader {
			started = true
			continue
		}
		if started && strings.HasPrefix(line, command.ListPrefix) {
			ids = append(ids, strings.TrimSpace(strings.TrimPrefix(line, command.ListPrefix)))
		}
	}
	sort.Strings(ids)
	return ids
}

// FirstError returns the first "ERROR:" reply line, or "".
func FirstError(lines []string) string {
	for _, line := range lines {
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	return ""
}
