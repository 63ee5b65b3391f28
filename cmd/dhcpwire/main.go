// Command dhcpwire is a DHCPv4 wire-format toolkit with a
// reservation-only responder.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

const name = "dhcpwire"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, done := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)
	defer done()

	err := newCLI(os.Stdout, os.Stderr).ParseAndRun(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// newCLI builds the command tree. Command output goes to stdout, logs to
// stderr.
func newCLI(stdout, stderr io.Writer) *ffcli.Command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return &ffcli.Command{
		Name:       name,
		ShortUsage: name + " <subcommand> [flags]",
		LongHelp:   "DHCPv4 wire-format toolkit. Every flag may also be set as DHCPWIRE_<FLAG> in the environment.",
		FlagSet:    fs,
		Options:    envOptions(),
		Subcommands: []*ffcli.Command{
			newDecodeCommand(stdout, stderr),
			newDiscoverCommand(stdout, stderr),
			newRespondCommand(stdout, stderr),
			newServeCommand(stderr),
		},
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
	}
}

func envOptions() []ff.Option {
	return []ff.Option{ff.WithEnvVarPrefix(strings.ToUpper(name))}
}

func newFlagSet(cmd string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name+" "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseHex accepts hex with optional whitespace, colons, or a 0x prefix.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parsing hex input: %w", err)
	}
	return b, nil
}
