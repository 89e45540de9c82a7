package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"retrocrop/core"
	"retrocrop/host/device"
	"retrocrop/host/monitor"
)

var (
	configFile = pflag.StringP("config", "c", "", "YAML configuration file")
	devicePath = pflag.StringP("device", "d", "/dev/ttyUSB0", "Serial device path or tcp://host:port")
	baud       = pflag.IntP("baud", "b", 250000, "Baud rate (ignored for USB CDC)")
	timeoutMS  = pflag.Int("timeout", 2000, "Command ACK timeout in milliseconds")
	listen     = pflag.String("listen", ":9464", "Metrics listen address (monitor)")
	intervalMS = pflag.Int("interval", 1000, "Status poll interval in milliseconds (monitor)")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [command]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	printCommands(os.Stderr)
	fmt.Fprintln(os.Stderr, "  monitor        - Export status as Prometheus metrics")
	fmt.Fprintln(os.Stderr, "\nWithout a command an interactive shell starts.\n\nFlags:")
	pflag.PrintDefaults()
}

func main() {
	pflag.Usage = usage
	pflag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dev, err := device.Open(&cfg.Serial)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()
	dev.Timeout = cfg.timeout()

	if err := dev.Identify(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}

	switch cmd := pflag.Arg(0); cmd {
	case "":
		shell(dev)
	case "monitor":
		if err := runMonitor(dev, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := runCommand(dev, cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadConfig merges the config file, if any, with the flags that were set
func loadConfig() (*Config, error) {
	cfg := defaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = LoadConfig(*configFile); err != nil {
			return nil, err
		}
	}

	flags := pflag.CommandLine
	if *configFile == "" || flags.Changed("device") {
		cfg.Serial.Device = *devicePath
	}
	if *configFile == "" || flags.Changed("baud") {
		cfg.Serial.Baud = *baud
	}
	if *configFile == "" || flags.Changed("timeout") {
		cfg.Timeout = *timeoutMS
	}
	if *configFile == "" || flags.Changed("listen") {
		cfg.Monitor.Listen = *listen
	}
	if *configFile == "" || flags.Changed("interval") {
		cfg.Monitor.Interval = *intervalMS
	}
	return cfg, cfg.Validate()
}

type command struct {
	help string
	run  func(dev *device.Device) error
}

var commands = map[string]command{
	"dict":      {"Print dictionary summary", printDictionary},
	"clock":     {"Read the board clock", printClock},
	"status":    {"Show sync and mode status", printStatus},
	"next-mode": {"Switch to the next crop mode", nextMode},
	"table":     {"Print the crop table", printTable},
	"events":    {"Dump the sync event ring", printEvents},
	"reset":     {"Restart the firmware", resetBoard},
}

func printCommands(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s - %s\n", name, commands[name].help)
	}
}

func runCommand(dev *device.Device, name string) error {
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	return cmd.run(dev)
}

// shell reads commands from stdin until EOF or quit
func shell(dev *device.Device) {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch cmd := strings.Fields(line)[0]; cmd {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printCommands(os.Stdout)
		default:
			if err := runCommand(dev, cmd); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

func printDictionary(dev *device.Device) error {
	dict := dev.Dictionary()
	fmt.Printf("Version: %s\n", dict.Version)
	fmt.Printf("Build: %s\n", dict.BuildVersions)

	fmt.Println("\nConfig:")
	keys := make([]string, 0, len(dict.Config))
	for k := range dict.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, dict.Config[k])
	}

	fmt.Printf("\nCommands (%d), responses (%d)\n", len(dict.Commands), len(dict.Responses))
	return nil
}

func printClock(dev *device.Device) error {
	clock, err := dev.Clock()
	if err != nil {
		return err
	}
	fmt.Printf("clock=%d\n", clock)
	return nil
}

func printStatus(dev *device.Device) error {
	s, err := dev.Status()
	if err != nil {
		return err
	}
	showStatus(dev, s)
	return nil
}

func nextMode(dev *device.Device) error {
	s, err := dev.NextMode()
	if err != nil {
		return err
	}
	showStatus(dev, s)
	return nil
}

func showStatus(dev *device.Device, s core.Status) {
	locked := "no"
	if s.Locked {
		locked = "yes"
	}
	fmt.Printf("mode=%s (%d) locked=%s line=%d lines=%d fields=%d losses=%d ceiling_hits=%d\n",
		dev.ModeName(s.Mode), s.Mode, locked, s.Field.Line, s.LastFieldLines,
		s.Fields, s.Losses, s.CeilingHits)
}

func printTable(dev *device.Device) error {
	table, err := dev.CropTable()
	if err != nil {
		return err
	}
	fmt.Println("mode  name         lines     screen    start  border  screen  alt")
	for i, s := range table {
		fmt.Printf("%-4d  %-11s  %3d-%-3d  %3d-%-3d  %5d  %6d  %6d  %3d\n",
			i, dev.ModeName(uint8(i)),
			s.LineFieldStart, s.LineFieldEnd, s.LineScreenStart, s.LineScreenEnd,
			s.CropStart, s.BorderCropLength, s.ScreenCropLength, s.ScreenCropAlternate)
	}
	return nil
}

func printEvents(dev *device.Device) error {
	events, err := dev.Events()
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No events")
	}
	for _, evt := range events {
		fmt.Printf("%10d  %-14s v1=%d v2=%d\n", evt.Clock, core.EventName(evt.EventType), evt.Value1, evt.Value2)
	}
	return nil
}

func resetBoard(dev *device.Device) error {
	if err := dev.Reset(); err != nil {
		return err
	}
	fmt.Println("Reset requested")
	return nil
}

// runMonitor serves /metrics and polls the board until interrupted
func runMonitor(dev *device.Device, cfg *Config) error {
	reg := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: cfg.Monitor.Listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	log.Printf("Serving metrics on %s/metrics", cfg.Monitor.Listen)

	pollCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := <-serveErr; err != nil {
			log.Printf("Metrics server: %v", err)
		}
		cancel()
	}()
	monitor.Run(pollCtx, metrics, dev, cfg.interval())

	return server.Shutdown(context.Background())
}
