package dhcpv4

import (
	"bytes"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/u-root/uio/uio"
)

// Packet represents a DHCPv4 message (RFC 2131 §2).
//
// The hardware address length is not stored; it is len(CHAddr), which must
// be 6 or 8. Zero-value addresses encode as 0.0.0.0.
type Packet struct {
	Op      OpCode           // Message op code: 1=BOOTREQUEST, 2=BOOTREPLY
	HType   HardwareType     // Hardware address type (1=Ethernet)
	Hops    uint8            // Relay hops
	XID     uint32           // Transaction ID
	Secs    uint16           // Seconds elapsed
	Flags   Flags            // Unicast or Broadcast
	CIAddr  netip.Addr       // Client IP address
	YIAddr  netip.Addr       // 'Your' (client) IP address
	SIAddr  netip.Addr       // Next server IP address
	GIAddr  netip.Addr       // Relay agent IP address
	CHAddr  net.HardwareAddr // Client hardware address
	SName   string           // Server host name
	File    string           // Boot file name
	Options Options

	// Overloaded is the option 52 value seen by DecodePacket. The option
	// itself is consumed; Encode never overloads and ignores this field.
	Overloaded Overload
}

// Byte offsets of the fixed header fields.
const (
	offSIAddr = 20
	offCookie = 236
)

// DecodePacket parses a raw DHCPv4 packet. The first invalid field aborts
// the parse.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrPacketTooShort, len(data), HeaderSize)
	}

	buf := uio.NewBigEndianBuffer(data)
	p := &Packet{}
	check := func(sentinel error) error {
		if err := buf.Error(); err != nil {
			return fmt.Errorf("%w: %v", sentinel, err)
		}
		return nil
	}

	p.Op = OpCode(buf.Read8())
	if err := check(ErrInvalidOpCode); err != nil {
		return nil, err
	}
	if p.Op != OpCodeBootRequest && p.Op != OpCodeBootReply {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOpCode, byte(p.Op))
	}

	p.HType = HardwareType(buf.Read8())
	if err := check(ErrInvalidHardwareType); err != nil {
		return nil, err
	}
	if p.HType != HardwareTypeEthernet {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHardwareType, byte(p.HType))
	}

	hlen := int(buf.Read8())
	if err := check(ErrInvalidHardwareAddr); err != nil {
		return nil, err
	}
	if hlen != 6 && hlen != 8 {
		return nil, fmt.Errorf("%w: length %d (want 6 or 8)", ErrInvalidHardwareAddr, hlen)
	}

	p.Hops = buf.Read8()
	if err := check(ErrInvalidHops); err != nil {
		return nil, err
	}
	p.XID = buf.Read32()
	if err := check(ErrInvalidTransactionID); err != nil {
		return nil, err
	}
	p.Secs = buf.Read16()
	if err := check(ErrInvalidSeconds); err != nil {
		return nil, err
	}

	var flags [2]byte
	buf.ReadBytes(flags[:])
	if err := check(ErrInvalidFlags); err != nil {
		return nil, err
	}
	switch flags {
	case flagsUnicastWire:
		p.Flags = FlagsUnicast
	case flagsBroadcastWire, flagsBroadcastBWire:
		p.Flags = FlagsBroadcast
	default:
		return nil, fmt.Errorf("%w: % x", ErrInvalidFlags, flags[:])
	}

	for _, f := range []struct {
		dst      *netip.Addr
		sentinel error
	}{
		{&p.CIAddr, ErrInvalidClientIP},
		{&p.YIAddr, ErrInvalidYourIP},
		{&p.SIAddr, ErrInvalidServerIP},
		{&p.GIAddr, ErrInvalidGatewayIP},
	} {
		*f.dst = readIP(buf)
		if err := check(f.sentinel); err != nil {
			return nil, err
		}
	}

	var chaddr [chaddrFieldSize]byte
	buf.ReadBytes(chaddr[:])
	if err := check(ErrInvalidHardwareAddr); err != nil {
		return nil, err
	}
	p.CHAddr = net.HardwareAddr(bytes.Clone(chaddr[:hlen]))

	var sname [snameFieldSize]byte
	buf.ReadBytes(sname[:])
	if err := check(ErrInvalidServerName); err != nil {
		return nil, err
	}
	var file [fileFieldSize]byte
	buf.ReadBytes(file[:])
	if err := check(ErrInvalidBootFile); err != nil {
		return nil, err
	}

	var cookie [4]byte
	buf.ReadBytes(cookie[:])
	if err := check(ErrInvalidCookie); err != nil {
		return nil, err
	}
	if cookie != MagicCookie {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookie, cookie)
	}

	opts, err := OptionsFromBytes(buf.ReadAll())
	if err != nil {
		return nil, fmt.Errorf("decoding options: %w", err)
	}

	// RFC 2131 §4.1: with option 52 present, the file and/or sname fields
	// carry further options instead of text. Options from the main area
	// take precedence.
	overloaded := Overload(0)
	if opt, ok := opts.Lookup(OptionOverload); ok {
		overloaded, _ = opt.Overload()
		opts.Remove(OptionOverload)
		p.Overloaded = overloaded
	}
	if overloaded == OverloadFile || overloaded == OverloadBoth {
		extra, err := OptionsFromBytes(file[:])
		if err != nil {
			return nil, fmt.Errorf("decoding options in file field: %w", err)
		}
		extra.Merge(opts)
		opts = extra
	} else {
		p.File = asciiField(file[:])
	}
	if overloaded == OverloadSName || overloaded == OverloadBoth {
		extra, err := OptionsFromBytes(sname[:])
		if err != nil {
			return nil, fmt.Errorf("decoding options in sname field: %w", err)
		}
		extra.Merge(opts)
		opts = extra
	} else {
		p.SName = asciiField(sname[:])
	}
	p.Options = opts

	return p, nil
}

// Encode serializes the packet. Options are written in ascending tag
// order and terminated by End; the datagram is zero padded to the 300
// byte BOOTP minimum.
func (p *Packet) Encode() ([]byte, error) {
	if p.Op != OpCodeBootRequest && p.Op != OpCodeBootReply {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOpCode, byte(p.Op))
	}
	if p.HType != HardwareTypeEthernet {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHardwareType, byte(p.HType))
	}
	if n := len(p.CHAddr); n != 6 && n != 8 {
		return nil, fmt.Errorf("%w: length %d (want 6 or 8)", ErrInvalidHardwareAddr, n)
	}
	var flags [2]byte
	switch p.Flags {
	case FlagsUnicast:
		flags = flagsUnicastWire
	case FlagsBroadcast:
		flags = flagsBroadcastWire
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFlags, p.Flags)
	}
	for _, f := range []struct {
		ip       netip.Addr
		sentinel error
	}{
		{p.CIAddr, ErrInvalidClientIP},
		{p.YIAddr, ErrInvalidYourIP},
		{p.SIAddr, ErrInvalidServerIP},
		{p.GIAddr, ErrInvalidGatewayIP},
	} {
		if f.ip.IsValid() && !isIPv4(f.ip) {
			return nil, fmt.Errorf("%w: %s is not IPv4", f.sentinel, f.ip)
		}
	}
	if err := checkTextField(p.SName, snameFieldSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServerName, err)
	}
	if err := checkTextField(p.File, fileFieldSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBootFile, err)
	}

	opts := p.Options.ToBytes()
	size := HeaderSize + len(opts)
	if size < MinPacketSize {
		size = MinPacketSize
	}

	buf := uio.NewBigEndianBuffer(make([]byte, 0, size))
	buf.Write8(uint8(p.Op))
	buf.Write8(uint8(p.HType))
	buf.Write8(uint8(len(p.CHAddr)))
	buf.Write8(p.Hops)
	buf.Write32(p.XID)
	buf.Write16(p.Secs)
	buf.WriteBytes(flags[:])
	writeIP(buf, p.CIAddr)
	writeIP(buf, p.YIAddr)
	writeIP(buf, p.SIAddr)
	writeIP(buf, p.GIAddr)
	copy(buf.WriteN(chaddrFieldSize), p.CHAddr)
	copy(buf.WriteN(snameFieldSize), p.SName)
	copy(buf.WriteN(fileFieldSize), p.File)
	buf.WriteBytes(MagicCookie[:])
	buf.WriteBytes(opts)
	if pad := size - buf.Len(); pad > 0 {
		buf.WriteN(pad)
	}
	return buf.Data(), nil
}

func checkTextField(s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%d bytes exceeds %d", len(s), max)
	}
	if !isASCII([]byte(s)) {
		return fmt.Errorf("not 7-bit ASCII")
	}
	return nil
}

// EncodeForServers serializes the packet once per server address. The
// copies differ only in the 'siaddr' field (bytes 20-23).
func (p *Packet) EncodeForServers(servers []netip.Addr) ([][]byte, error) {
	base, err := p.Encode()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(servers))
	for _, srv := range servers {
		if !isIPv4(srv) {
			return nil, fmt.Errorf("%w: %s is not IPv4", ErrInvalidServerIP, srv)
		}
		b := bytes.Clone(base)
		ip := as4(srv)
		copy(b[offSIAddr:offSIAddr+4], ip[:])
		out = append(out, b)
	}
	return out, nil
}

// Clone returns a deep copy of the packet.
func (p *Packet) Clone() *Packet {
	c := *p
	c.CHAddr = bytes.Clone(p.CHAddr)
	c.Options = p.Options.Clone()
	return &c
}

// HLen returns the hardware address length written at offset 2.
func (p *Packet) HLen() uint8 {
	return uint8(len(p.CHAddr))
}

// MessageType returns the DHCP message type from option 53, or 0 when the
// option is absent.
func (p *Packet) MessageType() MessageType {
	if opt, ok := p.Options.Lookup(OptionDHCPMessageType); ok {
		t, _ := opt.MessageType()
		return t
	}
	return 0
}

// RequestedIP returns the requested IP address from option 50.
func (p *Packet) RequestedIP() (netip.Addr, bool) {
	return p.ipOption(OptionRequestedIP)
}

// ServerIdentifier returns the server identifier from option 54.
func (p *Packet) ServerIdentifier() (netip.Addr, bool) {
	return p.ipOption(OptionServerIdentifier)
}

func (p *Packet) ipOption(code OptionCode) (netip.Addr, bool) {
	if opt, ok := p.Options.Lookup(code); ok {
		if ip, err := opt.IP(); err == nil {
			return ip, true
		}
	}
	return netip.Addr{}, false
}

// ClientIdentifier returns the client identifier from option 61.
func (p *Packet) ClientIdentifier() (ClientIdentifier, bool) {
	if opt, ok := p.Options.Lookup(OptionClientIdentifier); ok {
		if id, err := opt.ClientIdentifier(); err == nil {
			return id, true
		}
	}
	return ClientIdentifier{}, false
}

// Hostname returns the hostname from option 12.
func (p *Packet) Hostname() string {
	if opt, ok := p.Options.Lookup(OptionHostname); ok {
		s, _ := opt.Text()
		return s
	}
	return ""
}

// ParameterRequestList returns the list of requested option codes.
func (p *Packet) ParameterRequestList() []OptionCode {
	if opt, ok := p.Options.Lookup(OptionParameterRequestList); ok {
		codes, _ := opt.Codes()
		return codes
	}
	return nil
}

// MaxMessageSize returns the maximum DHCP message size from option 57.
func (p *Packet) MaxMessageSize() uint16 {
	if opt, ok := p.Options.Lookup(OptionMaxDHCPMessageSize); ok {
		n, _ := opt.Uint16()
		return n
	}
	return 0
}

// LeaseTime returns the lease time in seconds from option 51.
func (p *Packet) LeaseTime() (uint32, bool) {
	if opt, ok := p.Options.Lookup(OptionIPLeaseTime); ok {
		if n, err := opt.Uint32(); err == nil {
			return n, true
		}
	}
	return 0, false
}

// RelayAgentInfo returns the Option 82 sub-options.
func (p *Packet) RelayAgentInfo() (RelayAgentInfo, bool) {
	if opt, ok := p.Options.Lookup(OptionRelayAgentInfo); ok {
		if info, err := opt.RelayAgentInfo(); err == nil {
			return info, true
		}
	}
	return RelayAgentInfo{}, false
}

// IsBroadcast returns true if the broadcast flag is set.
func (p *Packet) IsBroadcast() bool {
	return p.Flags == FlagsBroadcast
}

// IsRelayed returns true if the packet was relayed (GIAddr is non-zero).
func (p *Packet) IsRelayed() bool {
	return p.GIAddr.IsValid() && !p.GIAddr.IsUnspecified()
}

// String renders a multi-line summary for debugging and the CLI.
func (p *Packet) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s xid=0x%08x\n", p.Op, p.MessageType(), p.XID)
	fmt.Fprintf(&b, "  htype=%s hlen=%d hops=%d secs=%d flags=%s\n", p.HType, p.HLen(), p.Hops, p.Secs, p.Flags)
	fmt.Fprintf(&b, "  ciaddr=%s yiaddr=%s siaddr=%s giaddr=%s\n",
		addrString(p.CIAddr), addrString(p.YIAddr), addrString(p.SIAddr), addrString(p.GIAddr))
	fmt.Fprintf(&b, "  chaddr=%s", p.CHAddr)
	if p.SName != "" {
		fmt.Fprintf(&b, " sname=%q", p.SName)
	}
	if p.File != "" {
		fmt.Fprintf(&b, " file=%q", p.File)
	}
	if p.Overloaded != 0 {
		fmt.Fprintf(&b, " overload=%s", p.Overloaded)
	}
	b.WriteString("\n")
	p.Options.Each(func(opt Option) {
		fmt.Fprintf(&b, "  %3d %s\n", byte(opt.Code()), opt)
	})
	return b.String()
}

func addrString(ip netip.Addr) string {
	if !ip.IsValid() {
		return ZeroIP.String()
	}
	return ip.String()
}
