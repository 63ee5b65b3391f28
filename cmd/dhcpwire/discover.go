package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/netip"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

func newDiscoverCommand(stdout, stderr io.Writer) *ffcli.Command {
	fs := newFlagSet("discover", stderr)
	mac := fs.String("mac", "", "client hardware address (required)")
	requested := fs.String("requested", "", "requested IP address (option 50)")
	hostname := fs.String("hostname", "", "client host name (option 12)")
	xid := fs.Uint64("xid", 0, "transaction id; random when 0")

	return &ffcli.Command{
		Name:       "discover",
		ShortUsage: name + " discover -mac MAC [-requested IP] [-hostname H] [-xid N]",
		ShortHelp:  "build a DHCPDISCOVER and print it as hex",
		FlagSet:    fs,
		Options:    envOptions(),
		Exec: func(ctx context.Context, _ []string) error {
			if *mac == "" {
				return errors.New("discover: -mac is required")
			}
			hw, err := net.ParseMAC(*mac)
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			params := dhcpv4.ClientParams{HardwareAddr: hw, Hostname: *hostname}
			if *requested != "" {
				ip, err := netip.ParseAddr(*requested)
				if err != nil {
					return fmt.Errorf("discover: -requested: %w", err)
				}
				params.RequestedIP = ip
			}

			var xids dhcpv4.TransactionIDSource = dhcpv4.RandomXID{}
			if *xid != 0 {
				if *xid > math.MaxUint32 {
					return fmt.Errorf("discover: -xid %d does not fit in 32 bits", *xid)
				}
				xids = dhcpv4.NewFixedXID(uint32(*xid))
			}

			d, err := dhcpv4.NewDiscover(ctx, xids, params)
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			b, err := d.Encode()
			if err != nil {
				return fmt.Errorf("discover: encoding: %w", err)
			}
			fmt.Fprintln(stdout, hex.EncodeToString(b))
			return nil
		},
	}
}
