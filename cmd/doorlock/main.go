// cmd/doorlock/main.go
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tamzrod/doorlock/internal/auth"
	"github.com/tamzrod/doorlock/internal/command"
	"github.com/tamzrod/doorlock/internal/config"
	"github.com/tamzrod/doorlock/internal/control"
	"github.com/tamzrod/doorlock/internal/journal"
	"github.com/tamzrod/doorlock/internal/nvm"
	"github.com/tamzrod/doorlock/internal/onewire"
	"github.com/tamzrod/doorlock/internal/onewire/ds1961"
	"github.com/tamzrod/doorlock/internal/operator"
	"github.com/tamzrod/doorlock/internal/poller"
	"github.com/tamzrod/doorlock/internal/store"
	"github.com/tamzrod/doorlock/internal/writer"
	wmodbus "github.com/tamzrod/doorlock/internal/writer/modbus"
)

func main() {
	cfgPath := flag.String("config", "doorlock.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "debug | info | warn | error")
	erase := flag.Bool("erase", false, "erase the credential memory and exit")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))
	slog.SetDefault(logger)

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	// --------------------
	// Credential memory
	// --------------------

	mem, err := nvm.Open(cfg.Memory.Backend, cfg.Memory.Path, cfg.Memory.Size)
	if err != nil {
		log.Fatalf("memory open failed: %v", err)
	}
	defer mem.Close()

	if *erase {
		if err := nvm.Erase(mem); err != nil {
			log.Fatalf("memory erase failed: %v", err)
		}
		logger.Info("credential memory erased", "backend", cfg.Memory.Backend, "size", mem.Size())
		return
	}

	creds, err := store.New(mem)
	if err != nil {
		log.Fatalf("credential store failed: %v", err)
	}

	// --------------------
	// Token bus + authentication
	// --------------------

	adapter, err := onewire.OpenDS2480(onewire.SerialConfig{
		Device:  cfg.Bus.Device,
		Timeout: time.Duration(cfg.Bus.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("token bus open failed: %v", err)
	}
	defer adapter.Close()

	engine, err := auth.New(auth.Config{
		Page:      cfg.Bus.Page,
		JitterMin: time.Duration(cfg.Timing.JitterMinUs) * time.Microsecond,
		JitterMax: time.Duration(cfg.Timing.JitterMaxUs) * time.Microsecond,
	}, creds, ds1961.New(adapter))
	if err != nil {
		log.Fatalf("authenticator failed: %v", err)
	}

	// --------------------
	// Journal (optional)
	// --------------------

	var rec journal.Recorder = journal.Nop{}
	if cfg.Journal.Path != "" {
		jf, err := journal.OpenFile(cfg.Journal.Path)
		if err != nil {
			log.Fatalf("journal open failed: %v", err)
		}
		jf.OnError = func(err error) {
			logger.Warn("journal write failed", "err", err)
		}
		defer jf.Close()
		rec = jf
	}

	// --------------------
	// Operator link
	// --------------------

	port, err := operator.OpenPort(operator.PortConfig{
		Device: cfg.Operator.Device,
		Baud:   cfg.Operator.Baud,
	})
	if err != nil {
		log.Fatalf("operator link failed: %v", err)
	}
	defer port.Close()

	link := operator.NewChannel(port)
	defer link.Close()

	deps := control.Deps{
		Bus:         onewire.NewSearcher(adapter),
		Auth:        engine,
		Operator:    link,
		Interpreter: command.NewInterpreter(creds, link, rec),
		Credentials: creds,
		Journal:     rec,
		Logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Remote I/O station (optional)
	// --------------------

	var ioClient *wmodbus.EndpointClient
	if cfg.IO != nil {
		ioClient, err = writer.BuildEndpointClient(cfg.IO)
		if err != nil {
			log.Fatalf("io link failed: %v", err)
		}
		defer ioClient.Close()

		outputs, err := writer.NewDoorWriter(writer.BuildOutputPlan(cfg.IO), ioClient)
		if err != nil {
			log.Fatalf("output writer failed: %v", err)
		}
		deps.Outputs = outputs

		p, err := poller.Build(cfg.IO, ioClient)
		if err != nil {
			log.Fatalf("input poller failed: %v", err)
		}
		if p != nil {
			if cfg.IO.Inputs.PollMs > 0 {
				go p.Run(ctx)
			}
			deps.Inputs = p
		}
	}

	// --------------------
	// Door status block (optional)
	// --------------------

	sw, closeStatus, err := writer.BuildStatusWriter(cfg.Status, cfg.IO, ioClient)
	if err != nil {
		log.Fatalf("status writer failed: %v", err)
	}
	defer closeStatus()
	if sw != nil {
		deps.Status = sw
	}

	// --------------------
	// Control cycle
	// --------------------

	m, err := control.New(machineConfig(cfg), deps)
	if err != nil {
		log.Fatalf("control setup failed: %v", err)
	}

	logger.Info("door controller started",
		"name", cfg.Name,
		"bus", cfg.Bus.Device,
		"memory", cfg.Memory.Backend,
		"slots", creds.Capacity(),
	)

	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("control cycle stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("door controller stopped")
}

// machineConfig converts normalized config into machine settings.
func machineConfig(cfg *config.Config) control.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	t := cfg.Timing
	return control.Config{
		Timing: control.Timing{
			CommandTimeout: ms(t.CommandTimeoutMs),
			Button:         ms(t.ButtonMs),
			Toggle:         ms(t.ToggleMs),
			Hold:           ms(t.HoldMs),
			Solenoid:       ms(t.SolenoidMs),
			Alarm:          ms(t.AlarmMs),
			Cycle:          ms(t.CycleMs),
			Frame:          ms(t.FrameMs),
		},
		LockoutThreshold: cfg.Lockout.Threshold,
		LockoutHorn:      cfg.Lockout.Horn,
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
