// cmd/doorctl/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tamzrod/doorlock/internal/journal"
	"github.com/tamzrod/doorlock/internal/operator"
)

// portList collects -port flags. Each value may also be a comma list.
type portList []string

func (p *portList) String() string { return strings.Join(*p, ",") }

func (p *portList) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*p = append(*p, s)
		}
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [-port dev]... <action>

Actions:
    list
    add <id>:<secret>
    remove <id>
    console
    journal <path>
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var ports portList
	flag.Var(&ports, "port", "controller serial port (repeatable or comma separated)")
	baud := flag.Int("baud", operator.DefaultBaud, "serial baud rate")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	action := args[0]
	if action == "journal" {
		if len(args) < 2 {
			fail("missing journal path")
		}
		if err := dumpJournal(os.Stdout, args[1]); err != nil {
			log.Fatalf("journal: %v", err)
		}
		return
	}

	if len(ports) == 0 {
		fail("at least one -port is required")
	}

	var err error
	switch action {
	case "list":
		err = listButtons(ctx, os.Stdout, ports, *baud)

	case "add":
		if len(args) < 2 {
			fail("missing button id and secret")
		}
		id, secret, ok := strings.Cut(args[1], ":")
		if !ok {
			fail("expected <id>:<secret>")
		}
		err = eachPort(ctx, ports, *baud, func(c *operator.Client) ([]string, error) {
			return c.Add(ctx, id, secret)
		})

	case "remove":
		if len(args) < 2 {
			fail("missing button id")
		}
		err = eachPort(ctx, ports, *baud, func(c *operator.Client) ([]string, error) {
			return c.Remove(ctx, args[1])
		})

	case "console":
		err = console(ctx, ports[0], *baud)

	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s: %v", action, err)
	}
}

func fail(msg string) {
	usage()
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func withClient(dev string, baud int, fn func(c *operator.Client) error) error {
	port, err := operator.OpenPort(operator.PortConfig{
		Device:  dev,
		Baud:    baud,
		Timeout: time.Second,
	})
	if err != nil {
		return err
	}
	defer port.Close()
	return fn(operator.NewClient(port))
}

// eachPort runs one command on every controller and echoes the replies.
func eachPort(ctx context.Context, ports []string, baud int, cmd func(c *operator.Client) ([]string, error)) error {
	for _, dev := range ports {
		err := withClient(dev, baud, func(c *operator.Client) error {
			lines, err := cmd(c)
			for _, l := range lines {
				fmt.Printf("%s: %s\n", dev, l)
			}
			if err != nil {
				return err
			}
			if e := operator.FirstError(lines); e != "" {
				return errors.New(e)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s: %w", dev, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

func listButtons(ctx context.Context, w io.Writer, ports []string, baud int) error {
	ids := make([][]string, len(ports))
	for i, dev := range ports {
		err := withClient(dev, baud, func(c *operator.Client) error {
			list, err := c.List(ctx)
			ids[i] = list
			return err
		})
		if err != nil {
			return fmt.Errorf("%s: %w", dev, err)
		}
	}
	writeTable(w, ports, ids)
	return nil
}

// writeTable prints one column per controller.
func writeTable(w io.Writer, ports []string, ids [][]string) {
	row := func(cells []string) {
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}

	head := make([]string, len(ports))
	count := make([]string, len(ports))
	rows := 0
	for i, p := range ports {
		head[i] = fmt.Sprintf("%-16s", p)
		count[i] = fmt.Sprintf("%-16s", fmt.Sprintf("len = %d", len(ids[i])))
		rows = max(rows, len(ids[i]))
	}
	row(head)
	row(count)

	for r := 0; r < rows; r++ {
		cells := make([]string, len(ports))
		for i := range ports {
			if r < len(ids[i]) {
				cells[i] = ids[i][r]
			}
		}
		row(cells)
	}
}

// console sends typed lines to one controller and prints the replies.
func console(ctx context.Context, dev string, baud int) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          dev + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	return withClient(dev, baud, func(c *operator.Client) error {
		for ctx.Err() == nil {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err != nil {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			lines, err := c.Exec(ctx, line)
			for _, l := range lines {
				fmt.Fprintln(rl.Stdout(), l)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func dumpJournal(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	events, err := journal.ReadAll(f)
	for _, e := range events {
		line := fmt.Sprintf("%s %-18s", e.Time.Format(time.RFC3339), e.Kind)
		if e.Address != "" {
			line += " " + e.Address
		}
		if e.Kind == journal.KindCredentialAdded || e.Kind == journal.KindCredentialRemoved {
			line += fmt.Sprintf(" slot=%d", e.Slot)
		}
		if e.Detail != "" {
			line += " " + e.Detail
		}
		fmt.Fprintln(w, line)
	}
	return err
}
