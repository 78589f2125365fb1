// qhue is a command-line client for the Philips Hue bridge REST API.
//
//	qhue pair                         press-the-button pairing, stores the username
//	qhue call lights 1 state on=true  one request against any bridge path
//	qhue run script.lua               run a Lua script against the bridge
//	qhue authorize                    obtain an OAuth token for the remote API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type command struct {
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = map[string]command{
	"pair":      {"pair with a bridge and store the username", runPair},
	"call":      {"call a bridge resource and print the response", runCall},
	"run":       {"run a Lua script against the bridge", runScript},
	"authorize": {"authorize remote API access with OAuth", runAuthorize},
}

var commandOrder = []string{"pair", "call", "run", "authorize"}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}

	// Create context that cancels on shutdown signal
	ctx := signalContext()

	return cmd.run(ctx, args[1:])
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: qhue <command> [flags] [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
}

// signalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
