package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/athena-dhcpd/dhcpwire/internal/config"
	"github.com/athena-dhcpd/dhcpwire/internal/dhcp"
	"github.com/athena-dhcpd/dhcpwire/internal/logging"
	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

func newRespondCommand(stdout, stderr io.Writer) *ffcli.Command {
	fs := newFlagSet("respond", stderr)
	configPath := fs.String("config", "/etc/dhcpwire/config.toml", "path to configuration file")
	hexInput := fs.String("hex", "", "client packet as hex (required)")

	return &ffcli.Command{
		Name:       "respond",
		ShortUsage: name + " respond -config FILE -hex STRING",
		ShortHelp:  "run the responder once on a client packet and print the replies as hex",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, _ []string) error {
			if *hexInput == "" {
				return errors.New("respond: -hex is required")
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.SetupFormat(cfg.Server.LogLevel, cfg.Server.LogFormat, stderr)

			data, err := parseHex(*hexInput)
			if err != nil {
				return err
			}
			pkt, err := dhcpv4.DecodePacket(data)
			if err != nil {
				return fmt.Errorf("respond: decoding request (%s): %w", dhcpv4.ErrorClass(err), err)
			}

			handler, err := dhcp.NewHandler(cfg, nil, logger)
			if err != nil {
				return err
			}
			reply, err := handler.Handle(ctx, pkt)
			if err != nil {
				return fmt.Errorf("respond: %w", err)
			}
			if reply == nil {
				fmt.Fprintln(stdout, "no reply")
				return nil
			}
			for _, b := range reply.Datagrams {
				fmt.Fprintf(stdout, "%s %s %s\n", reply.Message.Type(), reply.Dst, hex.EncodeToString(b))
			}
			return nil
		},
	}
}
