package dhcpv4

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/netip"
)

// ClientParams are the caller-supplied values for the client-originated
// messages. Zero values mean "not supplied" and the corresponding option
// is omitted.
type ClientParams struct {
	HardwareAddr net.HardwareAddr // required, 6 or 8 bytes
	ClientIP     netip.Addr       // ciaddr for Inform and Release
	Broadcast    bool             // Inform only; Discover always broadcasts

	RequestedIP          netip.Addr        // option 50
	LeaseTime            uint32            // option 51, seconds
	Hostname             string            // option 12
	ClientID             *ClientIdentifier // option 61
	VendorClassID        []byte            // option 60
	ParameterRequestList []OptionCode      // option 55
	MaxMessageSize       uint16            // option 57
	ServerID             netip.Addr        // option 54, Release and Decline
	Message              string            // option 56, Decline

	// Options are merged first; the message type and the fields above
	// take precedence.
	Options Options
}

func (c *ClientParams) newPacket(ctx context.Context, xids TransactionIDSource, flags Flags) (*Packet, error) {
	if n := len(c.HardwareAddr); n != 6 && n != 8 {
		return nil, fmt.Errorf("%w: length %d (want 6 or 8)", ErrInvalidHardwareAddr, n)
	}
	if xids == nil {
		xids = RandomXID{}
	}
	xid, err := xids.TransactionID(ctx)
	if err != nil {
		return nil, err
	}
	return &Packet{
		Op:      OpCodeBootRequest,
		HType:   HardwareTypeEthernet,
		XID:     xid,
		Flags:   flags,
		CIAddr:  ZeroIP,
		YIAddr:  ZeroIP,
		SIAddr:  ZeroIP,
		GIAddr:  ZeroIP,
		CHAddr:  bytes.Clone(c.HardwareAddr),
		Options: c.Options.Clone(),
	}, nil
}

// negotiation upserts the optional negotiation options that were supplied.
func (c *ClientParams) negotiation(b *optionBuilder) {
	if c.RequestedIP.IsValid() {
		b.set(OptionRequestedIP, c.RequestedIP)
	}
	if c.LeaseTime != 0 {
		b.set(OptionIPLeaseTime, c.LeaseTime)
	}
	if c.ClientID != nil {
		b.set(OptionClientIdentifier, *c.ClientID)
	}
	b.setBytes(OptionVendorClassID, c.VendorClassID)
	if c.ParameterRequestList != nil {
		b.set(OptionParameterRequestList, c.ParameterRequestList)
	}
	if c.MaxMessageSize != 0 {
		b.set(OptionMaxDHCPMessageSize, c.MaxMessageSize)
	}
}

// NewDiscover builds a broadcast DHCPDISCOVER with all address fields
// unspecified. Any server identifier in params.Options is dropped.
func NewDiscover(ctx context.Context, xids TransactionIDSource, params ClientParams) (Discover, error) {
	p, err := params.newPacket(ctx, xids, FlagsBroadcast)
	if err != nil {
		return Discover{}, err
	}
	b := optionBuilder{opts: &p.Options}
	params.negotiation(&b)
	b.setText(OptionHostname, params.Hostname)
	if b.err != nil {
		return Discover{}, b.err
	}
	p.Options.Remove(OptionServerIdentifier)
	p.Options.Upsert(OptMessageType(MessageTypeDiscover))
	return Discover{message{p}}, nil
}

// NewInform builds a DHCPINFORM for a client that already has params.ClientIP.
func NewInform(ctx context.Context, xids TransactionIDSource, params ClientParams) (Inform, error) {
	flags := FlagsUnicast
	if params.Broadcast {
		flags = FlagsBroadcast
	}
	p, err := params.newPacket(ctx, xids, flags)
	if err != nil {
		return Inform{}, err
	}
	if err := setAddr(&p.CIAddr, params.ClientIP, ErrInvalidClientIP); err != nil {
		return Inform{}, err
	}
	b := optionBuilder{opts: &p.Options}
	if params.ClientID != nil {
		b.set(OptionClientIdentifier, *params.ClientID)
	}
	b.setBytes(OptionVendorClassID, params.VendorClassID)
	if params.ParameterRequestList != nil {
		b.set(OptionParameterRequestList, params.ParameterRequestList)
	}
	if params.MaxMessageSize != 0 {
		b.set(OptionMaxDHCPMessageSize, params.MaxMessageSize)
	}
	b.setText(OptionHostname, params.Hostname)
	if b.err != nil {
		return Inform{}, b.err
	}
	p.Options.Upsert(OptMessageType(MessageTypeInform))
	return Inform{message{p}}, nil
}

// NewDecline builds a unicast DHCPDECLINE for an address found to be in
// use. RequestedIP names the declined address.
func NewDecline(ctx context.Context, xids TransactionIDSource, params ClientParams) (Decline, error) {
	p, err := params.newPacket(ctx, xids, FlagsUnicast)
	if err != nil {
		return Decline{}, err
	}
	b := optionBuilder{opts: &p.Options}
	if params.RequestedIP.IsValid() {
		b.set(OptionRequestedIP, params.RequestedIP)
	}
	if params.ServerID.IsValid() {
		b.set(OptionServerIdentifier, params.ServerID)
	}
	if params.ClientID != nil {
		b.set(OptionClientIdentifier, *params.ClientID)
	}
	b.setText(OptionMessage, params.Message)
	if b.err != nil {
		return Decline{}, b.err
	}
	p.Options.Upsert(OptMessageType(MessageTypeDecline))
	return Decline{message{p}}, nil
}

// NewRelease builds a unicast DHCPRELEASE for the lease on params.ClientIP.
func NewRelease(ctx context.Context, xids TransactionIDSource, params ClientParams) (Release, error) {
	p, err := params.newPacket(ctx, xids, FlagsUnicast)
	if err != nil {
		return Release{}, err
	}
	if err := setAddr(&p.CIAddr, params.ClientIP, ErrInvalidClientIP); err != nil {
		return Release{}, err
	}
	b := optionBuilder{opts: &p.Options}
	if params.ServerID.IsValid() {
		b.set(OptionServerIdentifier, params.ServerID)
	}
	if params.ClientID != nil {
		b.set(OptionClientIdentifier, *params.ClientID)
	}
	b.setText(OptionMessage, params.Message)
	if b.err != nil {
		return Release{}, b.err
	}
	p.Options.Upsert(OptMessageType(MessageTypeRelease))
	return Release{message{p}}, nil
}

// RequestParams are the client's choices when answering an Offer.
type RequestParams struct {
	HardwareAddr net.HardwareAddr
	Secs         uint16
	ClientIP     netip.Addr // ciaddr; unspecified when omitted
	Broadcast    bool

	RequestedIP          netip.Addr
	LeaseTime            uint32
	ClientID             *ClientIdentifier
	VendorClassID        []byte
	ServerID             netip.Addr
	ParameterRequestList []OptionCode
	MaxMessageSize       uint16

	Options Options
}

// Request answers the offer. The transaction id and the offer's options
// are kept; the header is rebuilt as a BOOTREQUEST. params.Options and the
// supplied fields are merged over the offered options.
func (o Offer) Request(params RequestParams) (Request, error) {
	p, err := o.clone()
	if err != nil {
		return Request{}, err
	}
	if n := len(params.HardwareAddr); n != 6 && n != 8 {
		return Request{}, fmt.Errorf("%w: length %d (want 6 or 8)", ErrInvalidHardwareAddr, n)
	}

	p.Op = OpCodeBootRequest
	p.HType = HardwareTypeEthernet
	p.Hops = 0
	p.Secs = params.Secs
	p.Flags = FlagsUnicast
	if params.Broadcast {
		p.Flags = FlagsBroadcast
	}
	p.CHAddr = bytes.Clone(params.HardwareAddr)
	p.CIAddr = ZeroIP
	if err := setAddr(&p.CIAddr, params.ClientIP, ErrInvalidClientIP); err != nil {
		return Request{}, err
	}
	p.YIAddr = ZeroIP
	p.SIAddr = ZeroIP
	p.GIAddr = ZeroIP
	p.SName = ""
	p.File = ""

	p.Options.Merge(params.Options)
	b := optionBuilder{opts: &p.Options}
	if params.RequestedIP.IsValid() {
		b.set(OptionRequestedIP, params.RequestedIP)
	}
	if params.LeaseTime != 0 {
		b.set(OptionIPLeaseTime, params.LeaseTime)
	}
	if params.ClientID != nil {
		b.set(OptionClientIdentifier, *params.ClientID)
	}
	b.setBytes(OptionVendorClassID, params.VendorClassID)
	if params.ServerID.IsValid() {
		b.set(OptionServerIdentifier, params.ServerID)
	}
	if params.ParameterRequestList != nil {
		b.set(OptionParameterRequestList, params.ParameterRequestList)
	}
	if params.MaxMessageSize != 0 {
		b.set(OptionMaxDHCPMessageSize, params.MaxMessageSize)
	}
	if b.err != nil {
		return Request{}, b.err
	}
	p.Options.Upsert(OptMessageType(MessageTypeRequest))
	return Request{message{p}}, nil
}

// setAddr stores ip in *dst when it is supplied. Non-IPv4 addresses are
// rejected with sentinel.
func setAddr(dst *netip.Addr, ip netip.Addr, sentinel error) error {
	if !ip.IsValid() {
		return nil
	}
	if !isIPv4(ip) {
		return fmt.Errorf("%w: %s is not IPv4", sentinel, ip)
	}
	*dst = ip.Unmap()
	return nil
}
