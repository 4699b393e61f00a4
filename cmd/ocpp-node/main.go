// Command ocpp-node runs a small OCPP networking topology in one process.
//
// A charging station (CS-1) is connected to a local controller (LC-1) which
// is connected to a CSMS. The station and the controller use their right
// neighbour as uplink, so every request of the station is relayed once. The
// station boots, exchanges a DataTransfer and sends heartbeats.
//
// Usage:
//
//	ocpp-node [flags]
//
// Flags:
//
//	-station string      Station configuration file (YAML)
//	-relay string        Local controller configuration file (YAML)
//	-csms string         CSMS configuration file (YAML)
//	-protocol-log string Directory for per-node protocol logs
//	-heartbeats int      Number of heartbeats to send (default 3)
//	-interval duration   Heartbeat interval (default 1s)
//	-log-level string    Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Run with built-in defaults
//	ocpp-node
//
//	# Capture protocol logs and inspect the relay afterwards
//	ocpp-node -protocol-log /tmp/ocpp && ocpp-log view /tmp/ocpp/LC-1.olog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var opts demoOptions
	var logLevel string

	flag.StringVar(&opts.StationConfig, "station", "", "Station configuration file (YAML)")
	flag.StringVar(&opts.RelayConfig, "relay", "", "Local controller configuration file (YAML)")
	flag.StringVar(&opts.CSMSConfig, "csms", "", "CSMS configuration file (YAML)")
	flag.StringVar(&opts.ProtocolLogDir, "protocol-log", "", "Directory for per-node protocol logs")
	flag.IntVar(&opts.Heartbeats, "heartbeats", 3, "Number of heartbeats to send")
	flag.DurationVar(&opts.Interval, "interval", time.Second, "Heartbeat interval")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger, err := newLogger(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.Logger = logger

	d, err := newDemo(opts)
	if err != nil {
		logger.Error("setup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("topology ready", "nodes", d.nodeIDs())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, runErr := d.run(ctx)
	if err := d.Close(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	logger.Info("done", "ok", sum.OK, "failed", sum.Failed)
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		os.Exit(1)
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}
