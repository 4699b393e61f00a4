// Command ocpp-log is a tool for viewing and analyzing OCPP protocol log files.
//
// Log files are written by a networking node whose configuration sets
// protocol_log, or by ocpp-node with the -protocol-log flag.
//
// Usage:
//
//	ocpp-log <command> [flags] <file.olog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# Follow one request across every hop recorded in a file
//	ocpp-log view --request-id 6f1c... relay.olog
//
//	# View only forwarding decisions
//	ocpp-log view --category route relay.olog
//
//	# Export to CSV
//	ocpp-log export --format csv -o relay.csv relay.olog
//
//	# Keep only the traffic of one link
//	ocpp-log filter --link-id abc12345-... -o link.olog relay.olog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/OpenChargingCloud/WWCP-OCPP-sub071/cmd/ocpp-log/commands"
)

const usage = `ocpp-log - OCPP Protocol Log Analyzer

Usage:
  ocpp-log <command> [flags] <file.olog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "ocpp-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// filterFlags registers the shared filter flags on fs.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	opts := &commands.FilterOptions{}
	fs.StringVar(&opts.LinkID, "link-id", "", "Filter by link ID")
	fs.StringVar(&opts.NodeID, "node-id", "", "Filter by capturing node")
	fs.StringVar(&opts.RemoteID, "remote-id", "", "Filter by neighbour")
	fs.StringVar(&opts.RequestID, "request-id", "", "Filter by request ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, service, routing)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, route, state, error)")
	return opts
}

func newFlagSet(name, synopsis, usageLine string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "ocpp-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, synopsis, usageLine)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args and returns the log file path.
func parseArgs(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "ocpp-log view [flags] <file.olog>")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSONL or CSV format", "ocpp-log export [flags] <file.olog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fail(err)
	}
	if err := commands.RunExport(path, *format, *output, filter); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "ocpp-log filter [flags] -o <out.olog> <file.olog>")
	output := fs.String("o", "", "Output file (required)")
	opts := filterFlags(fs)
	path := parseArgs(fs, args)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*opts)
	if err != nil {
		fail(err)
	}
	count, err := commands.RunFilter(path, *output, filter)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "ocpp-log stats <file.olog>")
	path := parseArgs(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
