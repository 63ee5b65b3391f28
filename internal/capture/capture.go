// Package capture extracts DHCPv4 datagrams from pcap files.
package capture

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

// Frame is one UDP datagram to or from a DHCP port.
type Frame struct {
	Timestamp time.Time
	Src       netip.AddrPort
	Dst       netip.AddrPort
	Payload   []byte
}

// isDHCPPort reports whether p is a DHCPv4 port.
func isDHCPPort(p layers.UDPPort) bool {
	return p == dhcpv4.ServerPort || p == dhcpv4.ClientPort
}

// ReadFile reads every DHCP frame in the pcap file at path.
func ReadFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture %s: %w", path, err)
	}
	defer f.Close()

	frames, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	return frames, nil
}

// Read reads every DHCP frame from a pcap stream. Packets that are not
// IPv4/UDP on port 67 or 68 are skipped.
func Read(r io.Reader) ([]Frame, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading pcap header: %w", err)
	}

	var frames []Frame
	for {
		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("reading packet %d: %w", len(frames)+1, err)
		}

		pkt := gopacket.NewPacket(data, pr.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		frame, ok := dhcpFrame(pkt)
		if !ok {
			continue
		}
		frame.Timestamp = ci.Timestamp
		frames = append(frames, frame)
	}
}

func dhcpFrame(pkt gopacket.Packet) (Frame, bool) {
	ipLayer, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return Frame{}, false
	}
	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok || !(isDHCPPort(udp.SrcPort) || isDHCPPort(udp.DstPort)) {
		return Frame{}, false
	}
	src, _ := netip.AddrFromSlice(ipLayer.SrcIP.To4())
	dst, _ := netip.AddrFromSlice(ipLayer.DstIP.To4())
	return Frame{
		Src:     netip.AddrPortFrom(src, uint16(udp.SrcPort)),
		Dst:     netip.AddrPortFrom(dst, uint16(udp.DstPort)),
		Payload: append([]byte(nil), udp.Payload...),
	}, true
}
