package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"retrocrop/core"
	"retrocrop/host/sim"
)

var (
	mode      = pflag.Uint8P("mode", "m", 2, "Crop mode when the EEPROM holds none")
	standard  = pflag.StringP("standard", "s", sim.PALProgressive.Name, "Video standard ("+standardNames()+")")
	fields    = pflag.IntP("fields", "n", 2, "Fields to simulate")
	dropAfter = pflag.Int("drop-after", 0, "Lose the signal after this many fields (0 = never)")
	dropUS    = pflag.Int("drop-us", 10000, "Length of the signal loss in microseconds")
	tablePath = pflag.String("table", "", "YAML crop table to use instead of the presets")
	eepromImg = pflag.String("eeprom", "", "EEPROM image file, loaded at start and saved at exit")
	ascii     = pflag.BoolP("ascii", "a", false, "Draw the last field's blanking as ASCII")
	listen    = pflag.String("listen", "", "Serve the diagnostics link on this TCP address in real time")
	debug     = pflag.BoolP("debug", "v", false, "Print firmware debug output")
)

func standardNames() string {
	names := make([]string, 0, len(sim.Standards))
	for name := range sim.Standards {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func main() {
	pflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	std, ok := sim.Standards[*standard]
	if !ok {
		return fmt.Errorf("unknown standard %q (have %s)", *standard, standardNames())
	}

	cfg := sim.DefaultConfig()
	cfg.DefaultMode = *mode
	if *tablePath != "" {
		table, names, err := LoadTable(*tablePath)
		if err != nil {
			return err
		}
		cfg.Table = table
		cfg.ModeNames = names
	}
	if int(cfg.DefaultMode) >= len(cfg.Table) {
		return fmt.Errorf("mode %d out of range, the table has %d modes", cfg.DefaultMode, len(cfg.Table))
	}

	if *debug {
		core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
		core.SetDebugEnabled(true)
	}

	var eeprom *sim.EEPROM
	if *eepromImg != "" {
		image, err := os.ReadFile(*eepromImg)
		switch {
		case err == nil:
			eeprom = sim.LoadEEPROM(image)
		case os.IsNotExist(err):
			eeprom = sim.NewEEPROM()
		default:
			return fmt.Errorf("failed to read EEPROM image: %w", err)
		}
	}

	s, err := sim.New(cfg, std, eeprom)
	if err != nil {
		return err
	}

	if *listen != "" {
		err = serve(s, *listen)
	} else {
		simulate(s, std)
	}

	if *eepromImg != "" {
		if werr := os.WriteFile(*eepromImg, s.EEPROM.Bytes(), 0o644); werr != nil && err == nil {
			err = fmt.Errorf("failed to save EEPROM image: %w", werr)
		}
	}
	return err
}

// simulate runs the requested fields as fast as possible and prints the
// blanking of the last one
func simulate(s *sim.Sim, std sim.Standard) {
	for i := 0; i < *fields; i++ {
		if *dropAfter > 0 && i == *dropAfter {
			s.Drop(uint64(*dropUS) * uint64(core.TicksFromUS(1)))
		}
		s.RunFields(1)
	}

	st := s.Status()
	fmt.Printf("standard=%s mode=%s locked=%v lines=%d fields=%d losses=%d overflows=%d\n",
		std.Name, s.Firmware.ModeName(st.Mode), st.Locked, st.LastFieldLines,
		st.Fields, st.Losses, s.Timer.Overflows())

	if *fields > 0 {
		printSpans(os.Stdout, s.Spans(), s.Field()-1, std, *ascii)
	}
	core.DumpEvents()
}

// serve paces the signal in real time and answers diagnostics clients one
// at a time until interrupted
func serve(s *sim.Sim, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("Serving diagnostics on tcp://%s", ln.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	go func() {
		for ctx.Err() == nil {
			start := time.Now()
			s.RunFields(1)
			// Only the newest field is ever interesting here
			s.TakeSpans()
			period := time.Duration(s.Standard.FieldTicks(s.Field()-1)) * time.Second / core.SyncTimerFreq
			time.Sleep(period - time.Since(start))
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Printf("Client %s connected", conn.RemoteAddr())
		if err := s.NewLink(conn).Serve(); err != nil {
			log.Printf("Client %s: %v", conn.RemoteAddr(), err)
		}
		conn.Close()
	}
}
