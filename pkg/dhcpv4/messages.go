package dhcpv4

import (
	"errors"
	"fmt"
)

// Message is a Packet classified into one of the eight DHCP roles. The set
// of implementations is closed; each role type only carries the
// transitions that are legal from it:
//
//	Discover -> Offer -> Request -> Ack | Nak
//	Inform -> Ack
//
// Release and Decline are terminal. Transitions return a new message and
// leave the receiver untouched.
type Message interface {
	// Packet returns the underlying packet. Callers must not modify it.
	Packet() *Packet
	// Type returns the role, which always equals the packet's option 53.
	Type() MessageType
	// Encode serializes the underlying packet.
	Encode() ([]byte, error)

	sealed()
}

var errEmptyMessage = errors.New("message has no packet")

type message struct {
	p *Packet
}

func (m message) Packet() *Packet { return m.p }

func (m message) Encode() ([]byte, error) {
	if m.p == nil {
		return nil, errEmptyMessage
	}
	return m.p.Encode()
}

func (message) sealed() {}

// clone returns a private copy of the packet for a transition.
func (m message) clone() (*Packet, error) {
	if m.p == nil {
		return nil, errEmptyMessage
	}
	return m.p.Clone(), nil
}

// Discover is a DHCPDISCOVER.
type Discover struct{ message }

// Offer is a DHCPOFFER.
type Offer struct{ message }

// Request is a DHCPREQUEST.
type Request struct{ message }

// Decline is a DHCPDECLINE.
type Decline struct{ message }

// Ack is a DHCPACK.
type Ack struct{ message }

// Nak is a DHCPNAK.
type Nak struct{ message }

// Release is a DHCPRELEASE.
type Release struct{ message }

// Inform is a DHCPINFORM.
type Inform struct{ message }

func (Discover) Type() MessageType { return MessageTypeDiscover }
func (Offer) Type() MessageType    { return MessageTypeOffer }
func (Request) Type() MessageType  { return MessageTypeRequest }
func (Decline) Type() MessageType  { return MessageTypeDecline }
func (Ack) Type() MessageType      { return MessageTypeAck }
func (Nak) Type() MessageType      { return MessageTypeNak }
func (Release) Type() MessageType  { return MessageTypeRelease }
func (Inform) Type() MessageType   { return MessageTypeInform }

// Classify wraps p in the role named by its option 53. Classify takes
// ownership of p. A missing or unrecognized message type is an
// ErrUnknownMessageType error.
func Classify(p *Packet) (Message, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrUnknownMessageType)
	}
	opt, ok := p.Options.Lookup(OptionDHCPMessageType)
	if !ok {
		return nil, fmt.Errorf("%w: option 53 not present", ErrUnknownMessageType)
	}
	t, err := opt.MessageType()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownMessageType, err)
	}

	m := message{p: p}
	switch t {
	case MessageTypeDiscover:
		return Discover{m}, nil
	case MessageTypeOffer:
		return Offer{m}, nil
	case MessageTypeRequest:
		return Request{m}, nil
	case MessageTypeDecline:
		return Decline{m}, nil
	case MessageTypeAck:
		return Ack{m}, nil
	case MessageTypeNak:
		return Nak{m}, nil
	case MessageTypeRelease:
		return Release{m}, nil
	case MessageTypeInform:
		return Inform{m}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, byte(t))
	}
}

// DecodeMessage decodes a datagram and classifies it.
func DecodeMessage(data []byte) (Message, error) {
	p, err := DecodePacket(data)
	if err != nil {
		return nil, err
	}
	return Classify(p)
}

// optionBuilder upserts validated options and keeps the first error.
type optionBuilder struct {
	opts *Options
	err  error
}

func (b *optionBuilder) set(code OptionCode, value any) {
	if b.err != nil {
		return
	}
	opt, err := NewOption(code, value)
	if err != nil {
		b.err = err
		return
	}
	b.opts.Upsert(opt)
}

func (b *optionBuilder) setText(code OptionCode, s string) {
	if s != "" {
		b.set(code, s)
	}
}

func (b *optionBuilder) setBytes(code OptionCode, v []byte) {
	if v != nil {
		b.set(code, v)
	}
}
