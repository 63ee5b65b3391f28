package dhcpv4

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOptionRoundTrip(t *testing.T) {
	ip := netip.MustParseAddr("192.168.1.1")
	ip2 := netip.MustParseAddr("192.168.1.2")

	tests := []struct {
		name  string
		code  OptionCode
		value any
		wire  []byte
	}{
		{"subnet mask", OptionSubnetMask, netip.MustParseAddr("255.255.255.0"), []byte{255, 255, 255, 0}},
		{"time offset", OptionTimeOffset, int32(-3600), []byte{0xff, 0xff, 0xf1, 0xf0}},
		{"routers", OptionRouter, []netip.Addr{ip, ip2}, []byte{192, 168, 1, 1, 192, 168, 1, 2}},
		{"hostname", OptionHostname, "printer-1", []byte("printer-1")},
		{"boot file size", OptionBootFileSize, uint16(512), []byte{2, 0}},
		{"ip forwarding", OptionIPForwarding, true, []byte{1}},
		{"policy filter", OptionPolicyFilter, []IPPair{{ip, netip.MustParseAddr("255.255.255.0")}}, []byte{192, 168, 1, 1, 255, 255, 255, 0}},
		{"reassembly size", OptionMaxDatagramReassembly, uint16(576), []byte{2, 64}},
		{"default ttl", OptionDefaultIPTTL, uint8(64), []byte{64}},
		{"plateau table", OptionPathMTUPlateauTable, []uint16{68, 1500}, []byte{0, 68, 5, 220}},
		{"interface mtu", OptionInterfaceMTU, uint16(1500), []byte{5, 220}},
		{"mask discovery", OptionPerformMaskDiscovery, false, []byte{0}},
		{"static route", OptionStaticRoute, []IPPair{{netip.MustParseAddr("10.0.0.0"), ip}}, []byte{10, 0, 0, 0, 192, 168, 1, 1}},
		{"arp timeout", OptionARPCacheTimeout, uint32(60), []byte{0, 0, 0, 60}},
		{"nis servers", OptionNISServers, []netip.Addr{ip}, []byte{192, 168, 1, 1}},
		{"vendor specific", OptionVendorSpecific, []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"node type", OptionNetBIOSNodeType, NetBIOSNodeH, []byte{8}},
		{"requested ip", OptionRequestedIP, ip, []byte{192, 168, 1, 1}},
		{"lease time", OptionIPLeaseTime, uint32(7200), []byte{0, 0, 0x1c, 0x20}},
		{"overload", OptionOverload, OverloadBoth, []byte{3}},
		{"message type", OptionDHCPMessageType, MessageTypeOffer, []byte{2}},
		{"parameter list", OptionParameterRequestList, []OptionCode{1, 3, 6, 15}, []byte{1, 3, 6, 15}},
		{"max message size", OptionMaxDHCPMessageSize, uint16(1500), []byte{5, 220}},
		{"client id", OptionClientIdentifier, ClientIdentifier{Type: 1, Data: []byte{0, 1, 2, 3, 4, 5}}, []byte{1, 0, 1, 2, 3, 4, 5}},
		{"relay info", OptionRelayAgentInfo, RelayAgentInfo{SubOptions: []RelaySubOption{{Code: RelaySubOptionCircuitID, Data: []byte("eth0")}}}, []byte{1, 4, 'e', 't', 'h', '0'}},
		{"domain search", OptionDomainSearch, []string{"example.com"}, []byte{7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0}},
		{"classless routes", OptionClasslessStaticRoute, []ClasslessRoute{{netip.MustParsePrefix("10.0.0.0/8"), ip}}, []byte{8, 10, 192, 168, 1, 1}},
		{"tftp servers", OptionTFTPServerAddress, []netip.Addr{ip2}, []byte{192, 168, 1, 2}},
		{"unregistered", OptionCode(224), []byte{0xde, 0xad}, []byte{0xde, 0xad}},
	}

	opts := cmp.Options{addrComparer, prefixComparer}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := NewOption(tt.code, tt.value)
			if err != nil {
				t.Fatalf("NewOption error: %v", err)
			}
			if diff := cmp.Diff(tt.wire, opt.Payload()); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}

			tlv := opt.Encode()
			if tlv[0] != byte(tt.code) {
				t.Errorf("tag = %d, want %d", tlv[0], tt.code)
			}
			if int(tlv[1]) != len(tlv)-2 {
				t.Errorf("length byte = %d, payload is %d bytes", tlv[1], len(tlv)-2)
			}

			decoded, err := DecodeOption(tt.code, tlv[2:])
			if err != nil {
				t.Fatalf("DecodeOption error: %v", err)
			}
			if diff := cmp.Diff(tt.value, decoded.Value(), opts); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
			if !decoded.Equal(opt) {
				t.Errorf("decoded option %v != built option %v", decoded, opt)
			}
		})
	}
}

func TestDecodeOptionListLengths(t *testing.T) {
	tests := []struct {
		name string
		code OptionCode
		data []byte
	}{
		{"ip list of 5", OptionRouter, make([]byte, 5)},
		{"ip list of 6", OptionDomainNameServer, make([]byte, 6)},
		{"pair list of 12", OptionStaticRoute, make([]byte, 12)},
		{"pair list of 4", OptionPolicyFilter, make([]byte, 4)},
		{"uint16 list of 3", OptionPathMTUPlateauTable, make([]byte, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOption(tt.code, tt.data)
			if !errors.Is(err, ErrOptionParse) {
				t.Errorf("DecodeOption error = %v, want ErrOptionParse", err)
			}
		})
	}
}

func TestDecodeOptionMinimumValues(t *testing.T) {
	tests := []struct {
		name string
		code OptionCode
		data []byte
		ok   bool
	}{
		{"max message size 575", OptionMaxDHCPMessageSize, []byte{0x02, 0x3f}, false},
		{"max message size 576", OptionMaxDHCPMessageSize, []byte{0x02, 0x40}, true},
		{"reassembly size 575", OptionMaxDatagramReassembly, []byte{0x02, 0x3f}, false},
		{"reassembly size 576", OptionMaxDatagramReassembly, []byte{0x02, 0x40}, true},
		{"mtu 67", OptionInterfaceMTU, []byte{0, 67}, false},
		{"mtu 68", OptionInterfaceMTU, []byte{0, 68}, true},
		{"ip ttl 0", OptionDefaultIPTTL, []byte{0}, false},
		{"tcp ttl 0", OptionTCPDefaultTTL, []byte{0}, false},
		{"tcp ttl 1", OptionTCPDefaultTTL, []byte{1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOption(tt.code, tt.data)
			if tt.ok {
				if err != nil {
					t.Errorf("DecodeOption error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrOptionValue) {
				t.Errorf("DecodeOption error = %v, want ErrOptionValue", err)
			}
		})
	}
}

func TestDecodeOptionMalformed(t *testing.T) {
	tests := []struct {
		name string
		code OptionCode
		data []byte
	}{
		{"short ip", OptionSubnetMask, []byte{255, 255}},
		{"long ip", OptionServerIdentifier, []byte{1, 2, 3, 4, 5}},
		{"bool 2", OptionIPForwarding, []byte{2}},
		{"empty hostname", OptionHostname, nil},
		{"non-ascii text", OptionDomainName, []byte{'a', 0xc3, 0xa9}},
		{"node type 3", OptionNetBIOSNodeType, []byte{3}},
		{"overload 4", OptionOverload, []byte{4}},
		{"client id 1 byte", OptionClientIdentifier, []byte{1}},
		{"truncated relay", OptionRelayAgentInfo, []byte{1, 10, 'x'}},
		{"bad domain", OptionDomainSearch, []byte{5, 'a', 'b'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOption(tt.code, tt.data)
			if !errors.Is(err, ErrOptionParse) {
				t.Errorf("DecodeOption error = %v, want ErrOptionParse", err)
			}
			var oe *OptionError
			if !errors.As(err, &oe) || oe.Code != tt.code {
				t.Errorf("error %v does not name option %d", err, tt.code)
			}
		})
	}
}

func TestDecodeOptionMin(t *testing.T) {
	if _, err := DecodeOptionMin(OptionRouter, []byte{10, 0, 0, 1}, 8); !errors.Is(err, ErrOptionParse) {
		t.Errorf("DecodeOptionMin error = %v, want ErrOptionParse", err)
	}
	opt, err := DecodeOptionMin(OptionRouter, []byte{10, 0, 0, 1, 10, 0, 0, 2}, 8)
	if err != nil {
		t.Fatalf("DecodeOptionMin error: %v", err)
	}
	if opt.Len() != 8 {
		t.Errorf("Len() = %d, want 8", opt.Len())
	}
}

func TestNewOptionErrors(t *testing.T) {
	tests := []struct {
		name  string
		code  OptionCode
		value any
		want  error
	}{
		{"pad", OptionPad, []byte{}, ErrInvalidOptionCode},
		{"end", OptionEnd, []byte{}, ErrInvalidOptionCode},
		{"wrong go type", OptionIPLeaseTime, 7200, ErrOptionConversion},
		{"ipv6 address", OptionRouter, []netip.Addr{netip.MustParseAddr("::1")}, ErrOptionValue},
		{"non-ascii hostname", OptionHostname, "höst", ErrOptionValue},
		{"mtu too small", OptionInterfaceMTU, uint16(60), ErrOptionValue},
		{"empty router list", OptionRouter, []netip.Addr{}, ErrOptionParse},
		{"unregistered string", OptionCode(224), "x", ErrOptionConversion},
		{"too many routers", OptionRouter, repeatAddr(netip.MustParseAddr("10.0.0.1"), 64), ErrOptionTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOption(tt.code, tt.value)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewOption error = %v, want %v", err, tt.want)
			}
		})
	}
}

func repeatAddr(ip netip.Addr, n int) []netip.Addr {
	ips := make([]netip.Addr, n)
	for i := range ips {
		ips[i] = ip
	}
	return ips
}

func TestDecodeUnknownOption(t *testing.T) {
	data := []byte{1, 2, 3}
	opt, err := DecodeOption(OptionCode(250), data)
	if err != nil {
		t.Fatalf("DecodeOption error: %v", err)
	}
	data[0] = 9
	b, err := opt.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, b); diff != "" {
		t.Errorf("unknown option aliases input (-want +got):\n%s", diff)
	}
}

func TestOptionAccessorConversion(t *testing.T) {
	opt := OptIPAddressLeaseTime(3600)
	if _, err := opt.IP(); !errors.Is(err, ErrOptionConversion) {
		t.Errorf("IP() on lease time error = %v, want ErrOptionConversion", err)
	}
	if _, err := opt.Text(); !errors.Is(err, ErrOptionConversion) {
		t.Errorf("Text() on lease time error = %v, want ErrOptionConversion", err)
	}
	n, err := opt.Uint32()
	if err != nil || n != 3600 {
		t.Errorf("Uint32() = %d, %v; want 3600, nil", n, err)
	}
}

func TestOptHelpers(t *testing.T) {
	tests := []struct {
		opt  Option
		code OptionCode
		wire []byte
	}{
		{OptMessageType(MessageTypeAck), OptionDHCPMessageType, []byte{5}},
		{OptIPAddressLeaseTime(86400), OptionIPLeaseTime, []byte{0, 1, 0x51, 0x80}},
		{OptRenewalTimeValue(43200), OptionRenewalTime, []byte{0, 0, 0xa8, 0xc0}},
		{OptRebindingTimeValue(75600), OptionRebindingTime, []byte{0, 1, 0x27, 0x50}},
		{OptServerIdentifier(netip.MustParseAddr("10.0.0.1")), OptionServerIdentifier, []byte{10, 0, 0, 1}},
		{OptRequestedIPAddress(netip.MustParseAddr("10.0.0.9")), OptionRequestedIP, []byte{10, 0, 0, 9}},
		{OptSubnetMask(netip.MustParseAddr("255.255.0.0")), OptionSubnetMask, []byte{255, 255, 0, 0}},
	}
	for _, tt := range tests {
		if tt.opt.Code() != tt.code {
			t.Errorf("Code() = %d, want %d", tt.opt.Code(), tt.code)
		}
		if diff := cmp.Diff(tt.wire, tt.opt.Payload()); diff != "" {
			t.Errorf("option %d payload mismatch (-want +got):\n%s", tt.code, diff)
		}
		decoded, err := DecodeOption(tt.code, tt.wire)
		if err != nil {
			t.Fatalf("DecodeOption(%d) error: %v", tt.code, err)
		}
		if !decoded.Equal(tt.opt) {
			t.Errorf("helper option %v differs from decoded %v", tt.opt, decoded)
		}
	}
}

func TestDomainSearchMultiple(t *testing.T) {
	domains := []string{"eng.example.com", "example.com", "corp.example.net"}
	opt, err := NewOption(OptionDomainSearch, domains)
	if err != nil {
		t.Fatalf("NewOption error: %v", err)
	}
	got, err := opt.Domains()
	if err != nil {
		t.Fatalf("Domains error: %v", err)
	}
	if diff := cmp.Diff(domains, got); diff != "" {
		t.Errorf("Domains mismatch (-want +got):\n%s", diff)
	}

	// RFC 3397 example with a compression pointer to offset 4.
	compressed := []byte{
		3, 'e', 'n', 'g', 7, 'e', 'x', 'a', 'm', 'p', 'l', 'e', 3, 'c', 'o', 'm', 0,
		0xc0, 4,
	}
	opt, err = DecodeOption(OptionDomainSearch, compressed)
	if err != nil {
		t.Fatalf("DecodeOption error: %v", err)
	}
	got, _ = opt.Domains()
	if diff := cmp.Diff([]string{"eng.example.com", "example.com"}, got); diff != "" {
		t.Errorf("compressed Domains mismatch (-want +got):\n%s", diff)
	}
}
