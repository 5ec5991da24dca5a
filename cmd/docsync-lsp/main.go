// docsync-lsp is the stdio entrypoint: it wires the dispatcher in
// internal/lsp to stdin/stdout and exits with the status the protocol
// selects (spec.md §6).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/orizon-lang/docsync-lsp/internal/cli"
	"github.com/orizon-lang/docsync-lsp/internal/lsp"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help message")
		jsonOutput  = flag.Bool("json", false, "Output version in JSON format")
		verbose     = flag.Bool("verbose", false, "Log informational messages to stderr")
		debug       = flag.Bool("debug", false, "Log debug messages to stderr")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Language Server Protocol document-model server.\n")
		fmt.Fprintf(os.Stderr, "Communicates via stdin/stdout using JSON-RPC 2.0.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		cli.PrintVersion("docsync-lsp", *jsonOutput)
		os.Exit(0)
	}

	log := cli.NewLogger(*verbose, *debug)
	server := lsp.NewServer(log)

	if err := server.Run(os.Stdin, os.Stdout); err != nil {
		log.Error("dispatcher loop terminated: %v", err)
		os.Exit(1)
	}

	os.Exit(server.ExitCode())
}
