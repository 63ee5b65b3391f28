package capture

import (
	"bytes"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

var captureStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// udpFrame serializes an Ethernet/IPv4/UDP frame carrying payload.
func udpFrame(t *testing.T, src, dst string, sport, dport layers.UDPPort, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	udp := &layers.UDP{SrcPort: sport, DstPort: dport}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		t.Fatalf("SetNetworkLayerForChecksum: %v", err)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers: %v", err)
	}
	return buf.Bytes()
}

func writePcap(t *testing.T, frames ...[]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("WriteFileHeader: %v", err)
	}
	for i, f := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     captureStart.Add(time.Duration(i) * time.Second),
			CaptureLength: len(f),
			Length:        len(f),
		}
		if err := w.WritePacket(ci, f); err != nil {
			t.Fatalf("WritePacket: %v", err)
		}
	}
	return out.Bytes()
}

func TestRead(t *testing.T) {
	request := bytes.Repeat([]byte{0xab}, 300)
	reply := bytes.Repeat([]byte{0xcd}, 300)
	data := writePcap(t,
		udpFrame(t, "0.0.0.0", "255.255.255.255", 68, 67, request),
		udpFrame(t, "10.0.0.1", "10.0.0.53", 40000, 53, []byte("not dhcp")),
		udpFrame(t, "10.0.0.1", "255.255.255.255", 67, 68, reply),
	)

	frames, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	want := []Frame{
		{
			Timestamp: captureStart,
			Src:       netip.MustParseAddrPort("0.0.0.0:68"),
			Dst:       netip.MustParseAddrPort("255.255.255.255:67"),
			Payload:   request,
		},
		{
			Timestamp: captureStart.Add(2 * time.Second),
			Src:       netip.MustParseAddrPort("10.0.0.1:67"),
			Dst:       netip.MustParseAddrPort("255.255.255.255:68"),
			Payload:   reply,
		},
	}
	opt := cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })
	if diff := cmp.Diff(want, frames, opt, cmp.Comparer(func(a, b netip.AddrPort) bool { return a == b })); diff != "" {
		t.Errorf("Read mismatch (-want +got):\n%s", diff)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhcp.pcap")
	data := writePcap(t, udpFrame(t, "0.0.0.0", "255.255.255.255", 68, 67, []byte{1, 2, 3}))
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write pcap: %v", err)
	}

	frames, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.pcap")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Read(bytes.NewReader([]byte("definitely not a pcap file"))); err == nil {
		t.Error("expected error for a bad pcap header")
	}
}
