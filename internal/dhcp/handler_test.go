package dhcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/athena-dhcpd/dhcpwire/internal/config"
	"github.com/athena-dhcpd/dhcpwire/internal/metrics"
	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

const handlerConfig = `
[server]
server_id = "192.168.1.1"
server_addresses = ["192.168.1.1", "192.168.1.2"]

[lease]
lease_time = "1h"
renewal_time = "30m"
rebinding_time = "50m"

[options]
subnet_mask = "255.255.255.0"
routers = ["192.168.1.1"]
boot_file = "pxelinux.0"

[[reservation]]
mac = "00:11:22:33:44:55"
ip = "192.168.1.50"
hostname = "printer"
`

var (
	reservedMAC = net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	unknownMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x09}
	reservedIP  = netip.MustParseAddr("192.168.1.50")
	ourServerIP = netip.MustParseAddr("192.168.1.1")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, limiter *RateLimiter) *Handler {
	t.Helper()
	cfg, err := config.Parse([]byte(handlerConfig))
	if err != nil {
		t.Fatalf("config.Parse error: %v", err)
	}
	h, err := NewHandler(cfg, limiter, discardLogger())
	if err != nil {
		t.Fatalf("NewHandler error: %v", err)
	}
	return h
}

func newDiscover(t *testing.T, mac net.HardwareAddr) dhcpv4.Discover {
	t.Helper()
	d, err := dhcpv4.NewDiscover(context.Background(), dhcpv4.NewFixedXID(0xfeed), dhcpv4.ClientParams{HardwareAddr: mac})
	if err != nil {
		t.Fatalf("NewDiscover error: %v", err)
	}
	return d
}

// offerFor runs a discover through h and returns the resulting offer.
func offerFor(t *testing.T, h *Handler) dhcpv4.Offer {
	t.Helper()
	reply, err := h.Handle(context.Background(), newDiscover(t, reservedMAC).Packet())
	if err != nil {
		t.Fatalf("Handle(discover) error: %v", err)
	}
	if reply == nil {
		t.Fatal("Handle(discover) returned no reply")
	}
	offer, ok := reply.Message.(dhcpv4.Offer)
	if !ok {
		t.Fatalf("reply is %T, want dhcpv4.Offer", reply.Message)
	}
	return offer
}

func TestHandleDiscoverReserved(t *testing.T) {
	h := newTestHandler(t, nil)
	reply, err := h.Handle(context.Background(), newDiscover(t, reservedMAC).Packet())
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if reply == nil {
		t.Fatal("expected an offer, got no reply")
	}

	if len(reply.Datagrams) != 2 {
		t.Fatalf("Datagrams = %d, want one per server address (2)", len(reply.Datagrams))
	}
	if got := netip.AddrFrom4([4]byte(reply.Datagrams[1][20:24])); got != netip.MustParseAddr("192.168.1.2") {
		t.Errorf("second copy siaddr = %s, want 192.168.1.2", got)
	}
	if !reply.Dst.IP.Equal(net.IPv4bcast) || reply.Dst.Port != dhcpv4.ClientPort {
		t.Errorf("Dst = %s, want 255.255.255.255:68", reply.Dst)
	}

	msg, err := dhcpv4.DecodeMessage(reply.Datagrams[0])
	if err != nil {
		t.Fatalf("DecodeMessage error: %v", err)
	}
	if _, ok := msg.(dhcpv4.Offer); !ok {
		t.Fatalf("decoded %T, want dhcpv4.Offer", msg)
	}
	p := msg.Packet()
	if p.YIAddr != reservedIP {
		t.Errorf("YIAddr = %s, want %s", p.YIAddr, reservedIP)
	}
	if p.File != "pxelinux.0" {
		t.Errorf("File = %q, want pxelinux.0", p.File)
	}
	if p.Hostname() != "printer" {
		t.Errorf("Hostname = %q, want printer", p.Hostname())
	}
	if lease, _ := p.LeaseTime(); lease != 3600 {
		t.Errorf("LeaseTime = %d, want 3600", lease)
	}
	for _, code := range []dhcpv4.OptionCode{dhcpv4.OptionSubnetMask, dhcpv4.OptionRouter, dhcpv4.OptionRenewalTime, dhcpv4.OptionServerIdentifier} {
		if !p.Options.Has(code) {
			t.Errorf("offer is missing option %s", code)
		}
	}
}

func TestHandleDiscoverUnknownMAC(t *testing.T) {
	h := newTestHandler(t, nil)
	dropped := metrics.RepliesDropped.WithLabelValues(DropNoReservation)
	before := testutil.ToFloat64(dropped)

	reply, err := h.Handle(context.Background(), newDiscover(t, unknownMAC).Packet())
	if err != nil || reply != nil {
		t.Fatalf("Handle = %v, %v; want no reply", reply, err)
	}
	if got := testutil.ToFloat64(dropped); got != before+1 {
		t.Errorf("replies_dropped_total{no_reservation} = %v, want %v", got, before+1)
	}
}

func TestHandleDiscoverRateLimited(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, MaxDiscoversPerSecond: 10, MaxPerMACPerSecond: 1})
	fakeClock(rl)
	h := newTestHandler(t, rl)

	if reply, _ := h.Handle(context.Background(), newDiscover(t, reservedMAC).Packet()); reply == nil {
		t.Fatal("first discover was not answered")
	}
	if reply, _ := h.Handle(context.Background(), newDiscover(t, reservedMAC).Packet()); reply != nil {
		t.Error("second discover within the interval was answered")
	}
}

func TestHandleRequestAck(t *testing.T) {
	h := newTestHandler(t, nil)
	offer := offerFor(t, h)

	request, err := offer.Request(dhcpv4.RequestParams{
		HardwareAddr: reservedMAC,
		RequestedIP:  offer.Packet().YIAddr,
		ServerID:     ourServerIP,
	})
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	reply, err := h.Handle(context.Background(), request.Packet())
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	ack, ok := reply.Message.(dhcpv4.Ack)
	if !ok {
		t.Fatalf("reply is %T, want dhcpv4.Ack", reply.Message)
	}
	p := ack.Packet()
	if p.YIAddr != reservedIP {
		t.Errorf("YIAddr = %s, want %s", p.YIAddr, reservedIP)
	}
	if p.XID != 0xfeed {
		t.Errorf("XID = %#x, want 0xfeed", p.XID)
	}
	if p.Options.Has(dhcpv4.OptionRequestedIP) {
		t.Error("ack echoes the requested IP option")
	}
}

func TestHandleRequestNak(t *testing.T) {
	h := newTestHandler(t, nil)
	offer := offerFor(t, h)

	tests := []struct {
		name   string
		params dhcpv4.RequestParams
	}{
		{"wrong address", dhcpv4.RequestParams{HardwareAddr: reservedMAC, RequestedIP: netip.MustParseAddr("192.168.1.99")}},
		{"no address", dhcpv4.RequestParams{HardwareAddr: reservedMAC}},
		{"unknown client", dhcpv4.RequestParams{HardwareAddr: unknownMAC, RequestedIP: reservedIP}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request, err := offer.Request(tt.params)
			if err != nil {
				t.Fatalf("Request error: %v", err)
			}
			reply, err := h.Handle(context.Background(), request.Packet())
			if err != nil {
				t.Fatalf("Handle error: %v", err)
			}
			nak, ok := reply.Message.(dhcpv4.Nak)
			if !ok {
				t.Fatalf("reply is %T, want dhcpv4.Nak", reply.Message)
			}
			if !nak.Packet().YIAddr.IsUnspecified() {
				t.Errorf("NAK YIAddr = %s, want 0.0.0.0", nak.Packet().YIAddr)
			}
			if !reply.Dst.IP.Equal(net.IPv4bcast) {
				t.Errorf("Dst = %s, want broadcast", reply.Dst)
			}
		})
	}
}

func TestHandleRequestOtherServer(t *testing.T) {
	h := newTestHandler(t, nil)
	offer := offerFor(t, h)

	request, err := offer.Request(dhcpv4.RequestParams{
		HardwareAddr: reservedMAC,
		RequestedIP:  reservedIP,
		ServerID:     netip.MustParseAddr("192.168.1.254"),
	})
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if reply, err := h.Handle(context.Background(), request.Packet()); reply != nil || err != nil {
		t.Errorf("Handle = %v, %v; want no reply for another server's request", reply, err)
	}
}

func TestHandleInform(t *testing.T) {
	h := newTestHandler(t, nil)
	client := netip.MustParseAddr("192.168.1.77")
	inform, err := dhcpv4.NewInform(context.Background(), dhcpv4.NewFixedXID(7), dhcpv4.ClientParams{
		HardwareAddr: unknownMAC,
		ClientIP:     client,
	})
	if err != nil {
		t.Fatalf("NewInform error: %v", err)
	}

	reply, err := h.Handle(context.Background(), inform.Packet())
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	p := reply.Message.Packet()
	if reply.Message.Type() != dhcpv4.MessageTypeAck {
		t.Fatalf("reply type = %s, want DHCPACK", reply.Message.Type())
	}
	if p.CIAddr != client || !p.YIAddr.IsUnspecified() {
		t.Errorf("ciaddr/yiaddr = %s/%s, want %s/0.0.0.0", p.CIAddr, p.YIAddr, client)
	}
	for _, code := range []dhcpv4.OptionCode{dhcpv4.OptionIPLeaseTime, dhcpv4.OptionRenewalTime, dhcpv4.OptionRebindingTime} {
		if p.Options.Has(code) {
			t.Errorf("inform ack carries lease timer option %s", code)
		}
	}
	if !p.Options.Has(dhcpv4.OptionRouter) {
		t.Error("inform ack is missing the configured router")
	}
	if got := reply.Dst.String(); got != "192.168.1.77:68" {
		t.Errorf("Dst = %s, want 192.168.1.77:68", got)
	}
}

func TestHandleNoReplyMessages(t *testing.T) {
	h := newTestHandler(t, nil)
	ctx := context.Background()

	release, err := dhcpv4.NewRelease(ctx, dhcpv4.NewFixedXID(1), dhcpv4.ClientParams{
		HardwareAddr: reservedMAC,
		ClientIP:     reservedIP,
		ServerID:     ourServerIP,
	})
	if err != nil {
		t.Fatalf("NewRelease error: %v", err)
	}
	decline, err := dhcpv4.NewDecline(ctx, dhcpv4.NewFixedXID(2), dhcpv4.ClientParams{
		HardwareAddr: reservedMAC,
		RequestedIP:  reservedIP,
		ServerID:     ourServerIP,
	})
	if err != nil {
		t.Fatalf("NewDecline error: %v", err)
	}

	tests := []struct {
		name string
		pkt  *dhcpv4.Packet
	}{
		{"release", release.Packet()},
		{"decline", decline.Packet()},
		{"offer", offerFor(t, h).Packet()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := h.Handle(ctx, tt.pkt)
			if reply != nil || err != nil {
				t.Errorf("Handle = %v, %v; want no reply", reply, err)
			}
		})
	}
}

func TestHandleUnclassified(t *testing.T) {
	h := newTestHandler(t, nil)
	p := newDiscover(t, reservedMAC).Packet()
	p.Options.Remove(dhcpv4.OptionDHCPMessageType)

	_, err := h.Handle(context.Background(), p)
	if !errors.Is(err, dhcpv4.ErrUnknownMessageType) {
		t.Errorf("Handle error = %v, want ErrUnknownMessageType", err)
	}
}

func TestReplyDestination(t *testing.T) {
	h := newTestHandler(t, nil)
	offer := offerFor(t, h)
	nak, err := mustRequest(t, offer, dhcpv4.RequestParams{HardwareAddr: unknownMAC}).Nak(dhcpv4.NakParams{ServerIP: ourServerIP})
	if err != nil {
		t.Fatalf("Nak error: %v", err)
	}

	relayed := newDiscover(t, reservedMAC).Packet()
	relayed.GIAddr = netip.MustParseAddr("10.0.0.1")
	unicast := newDiscover(t, reservedMAC).Packet()
	unicast.Flags = dhcpv4.FlagsUnicast
	renewing := unicast.Clone()
	renewing.CIAddr = reservedIP

	tests := []struct {
		name    string
		request *dhcpv4.Packet
		reply   dhcpv4.Message
		want    string
	}{
		{"relayed", relayed, offer, "10.0.0.1:67"},
		{"broadcast flag", newDiscover(t, reservedMAC).Packet(), offer, "255.255.255.255:68"},
		{"ciaddr", renewing, offer, "192.168.1.50:68"},
		{"nak ignores ciaddr", renewing, nak, "255.255.255.255:68"},
		{"default", unicast, offer, "255.255.255.255:68"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := replyDestination(tt.request, tt.reply).String(); got != tt.want {
				t.Errorf("replyDestination = %s, want %s", got, tt.want)
			}
		})
	}
}

func mustRequest(t *testing.T, offer dhcpv4.Offer, params dhcpv4.RequestParams) dhcpv4.Request {
	t.Helper()
	r, err := offer.Request(params)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	return r
}
