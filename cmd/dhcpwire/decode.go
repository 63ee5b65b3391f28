package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/athena-dhcpd/dhcpwire/internal/capture"
	"github.com/athena-dhcpd/dhcpwire/internal/metrics"
	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

func newDecodeCommand(stdout, stderr io.Writer) *ffcli.Command {
	fs := newFlagSet("decode", stderr)
	hexInput := fs.String("hex", "", "packet bytes as hex")
	pcapFile := fs.String("pcap", "", "pcap file to read DHCP datagrams from")

	return &ffcli.Command{
		Name:       "decode",
		ShortUsage: name + " decode [-hex STRING | -pcap FILE]",
		ShortHelp:  "decode DHCPv4 packets and print them",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, _ []string) error {
			switch {
			case *hexInput != "" && *pcapFile != "":
				return errors.New("decode: -hex and -pcap are mutually exclusive")
			case *hexInput != "":
				data, err := parseHex(*hexInput)
				if err != nil {
					return err
				}
				printDecoded(stdout, data)
				return nil
			case *pcapFile != "":
				frames, err := capture.ReadFile(*pcapFile)
				if err != nil {
					return err
				}
				for i, f := range frames {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					fmt.Fprintf(stdout, "#%d %s %s -> %s\n", i+1, f.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"), f.Src, f.Dst)
					printDecoded(stdout, f.Payload)
				}
				return nil
			default:
				return errors.New("decode: one of -hex or -pcap is required")
			}
		},
	}
}

// printDecoded writes the packet summary, or the error class when the
// datagram does not decode.
func printDecoded(w io.Writer, data []byte) {
	p, err := dhcpv4.DecodePacket(data)
	metrics.ObserveDecode(p, err)
	if err != nil {
		fmt.Fprintf(w, "error (%s): %v\n", dhcpv4.ErrorClass(err), err)
		return
	}
	fmt.Fprint(w, p.String())
}
