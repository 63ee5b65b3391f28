package dhcpv4

import (
	"net/netip"
)

// Options a server never echoes back to the client.
var negotiationOptions = []OptionCode{
	OptionRequestedIP,
	OptionParameterRequestList,
	OptionClientIdentifier,
	OptionMaxDHCPMessageSize,
}

// OfferParams describe the lease offered in answer to a Discover.
type OfferParams struct {
	LeaseTime uint32     // seconds
	YourIP    netip.Addr // offered address
	ServerIP  netip.Addr // offering server, also the server identifier
	File      string     // boot file name, optional
	Message   string     // option 56, optional

	// Options are merged into the reply before the fields above are applied.
	Options Options
}

// Offer builds the DHCPOFFER for this discover.
func (d Discover) Offer(params OfferParams) (Offer, error) {
	p, err := d.clone()
	if err != nil {
		return Offer{}, err
	}
	p.toReply()
	p.CIAddr = ZeroIP
	if err := setAddrOrZero(&p.YIAddr, params.YourIP, ErrInvalidYourIP); err != nil {
		return Offer{}, err
	}
	if err := setAddrOrZero(&p.SIAddr, params.ServerIP, ErrInvalidServerIP); err != nil {
		return Offer{}, err
	}
	p.File = params.File

	p.Options.Merge(params.Options)
	b := optionBuilder{opts: &p.Options}
	b.setText(OptionMessage, params.Message)
	b.set(OptionServerIdentifier, params.ServerIP)
	if b.err != nil {
		return Offer{}, b.err
	}
	p.Options.Remove(negotiationOptions...)
	p.Options.Upsert(OptIPAddressLeaseTime(params.LeaseTime))
	p.Options.Upsert(OptMessageType(MessageTypeOffer))
	return Offer{message{p}}, nil
}

// AckParams describe a DHCPACK.
type AckParams struct {
	LeaseTime     uint32     // Request only
	YourIP        netip.Addr // Request only: the committed address
	ServerIP      netip.Addr // server identifier
	File          string
	SName         string
	Message       string
	VendorClassID []byte

	Options Options
}

func (params *AckParams) apply(p *Packet) error {
	p.toReply()
	p.File = params.File
	p.SName = params.SName
	if err := setAddr(&p.SIAddr, params.ServerIP, ErrInvalidServerIP); err != nil {
		return err
	}

	p.Options.Merge(params.Options)
	p.Options.Remove(negotiationOptions...)
	b := optionBuilder{opts: &p.Options}
	b.set(OptionServerIdentifier, params.ServerIP)
	b.setText(OptionMessage, params.Message)
	b.setBytes(OptionVendorClassID, params.VendorClassID)
	return b.err
}

// Ack answers an inform. The client already holds its address, so no
// lease time is sent and ciaddr is echoed from the inform.
func (i Inform) Ack(params AckParams) (Ack, error) {
	p, err := i.clone()
	if err != nil {
		return Ack{}, err
	}
	if err := params.apply(p); err != nil {
		return Ack{}, err
	}
	p.YIAddr = ZeroIP
	p.Options.Remove(OptionIPLeaseTime)
	p.Options.Upsert(OptMessageType(MessageTypeAck))
	return Ack{message{p}}, nil
}

// Ack commits the requested lease.
func (r Request) Ack(params AckParams) (Ack, error) {
	p, err := r.clone()
	if err != nil {
		return Ack{}, err
	}
	if err := params.apply(p); err != nil {
		return Ack{}, err
	}
	if err := setAddrOrZero(&p.YIAddr, params.YourIP, ErrInvalidYourIP); err != nil {
		return Ack{}, err
	}
	p.Options.Upsert(OptIPAddressLeaseTime(params.LeaseTime))
	p.Options.Upsert(OptMessageType(MessageTypeAck))
	return Ack{message{p}}, nil
}

// NakParams describe a DHCPNAK.
type NakParams struct {
	ServerIP      netip.Addr
	Message       string
	ClientID      *ClientIdentifier
	VendorClassID []byte
}

// Nak refuses the request. The your and server address fields are cleared.
func (r Request) Nak(params NakParams) (Nak, error) {
	p, err := r.clone()
	if err != nil {
		return Nak{}, err
	}
	p.toReply()
	p.YIAddr = ZeroIP
	p.SIAddr = ZeroIP

	p.Options.Remove(OptionIPLeaseTime)
	p.Options.Remove(negotiationOptions...)
	b := optionBuilder{opts: &p.Options}
	b.set(OptionServerIdentifier, params.ServerIP)
	b.setText(OptionMessage, params.Message)
	if params.ClientID != nil {
		b.set(OptionClientIdentifier, *params.ClientID)
	}
	b.setBytes(OptionVendorClassID, params.VendorClassID)
	if b.err != nil {
		return Nak{}, b.err
	}
	p.Options.Upsert(OptMessageType(MessageTypeNak))
	return Nak{message{p}}, nil
}

// toReply turns a client packet into the skeleton of a server reply.
func (p *Packet) toReply() {
	p.Op = OpCodeBootReply
	p.HType = HardwareTypeEthernet
	p.Hops = 0
	p.Secs = 0
}

func setAddrOrZero(dst *netip.Addr, ip netip.Addr, sentinel error) error {
	if !ip.IsValid() {
		*dst = ZeroIP
		return nil
	}
	return setAddr(dst, ip, sentinel)
}
