// Command streamgate-log is a tool for viewing and analyzing StreamGate
// protocol log files.
//
// Log files are created by the daemon or probe when a protocol log path
// is configured (the log.path key, or the probe's -protocol-log flag).
//
// Usage:
//
//	streamgate-log <command> [flags] <file.sglog>
//
// Commands:
//
//	view     View log file in human-readable format
//	stats    Show statistics about the log file
//	export   Export log file to JSONL format
//
// Examples:
//
//	# View all events
//	streamgate-log view gate.sglog
//
//	# View only secure-layer events
//	streamgate-log view --layer secure gate.sglog
//
//	# View only consumed control notices
//	streamgate-log view --category control gate.sglog
//
//	# Export to JSONL
//	streamgate-log export -o gate.jsonl gate.sglog
//
//	# Show statistics
//	streamgate-log stats gate.sglog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/streamgate-io/streamgate-go/cmd/streamgate-log/commands"
)

const usage = `streamgate-log - StreamGate Protocol Log Analyzer

Usage:
  streamgate-log <command> [flags] <file.sglog>

Commands:
  view     View log file in human-readable format
  stats    Show statistics about the log file
  export   Export log file to JSONL format

Use "streamgate-log <command> -help" for more information about a command.
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
	case "stats":
		runStats(args)
	case "export":
		runExport(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `streamgate-log view - View log file in human-readable format

Usage:
  streamgate-log view [flags] <file.sglog>

Flags:
`)
		fs.PrintDefaults()
	}

	layer := fs.String("layer", "", "Filter by layer (transport, secure, session)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, control, state, error)")
	connID := fs.String("conn-id", "", "Filter by connection ID prefix")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	var filter commands.ViewFilter
	filter.ConnID = *connID

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `streamgate-log stats - Show statistics about the log file

Usage:
  streamgate-log stats <file.sglog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `streamgate-log export - Export log file to JSONL format

Usage:
  streamgate-log export [flags] <file.sglog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
