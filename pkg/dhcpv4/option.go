package dhcpv4

import (
	"bytes"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// IPPair is an 8-byte address pair. Policy Filter (21) carries
// (address, mask); Static Route (33) carries (destination, router).
type IPPair struct {
	First  netip.Addr
	Second netip.Addr
}

// ClientIdentifier is the value of option 61 (RFC 2132 §9.14).
type ClientIdentifier struct {
	Type uint8 // hardware type, or 0 for an opaque identifier
	Data []byte
}

func (c ClientIdentifier) String() string {
	return fmt.Sprintf("%02x:%x", c.Type, c.Data)
}

// Option is a single validated DHCP option. The zero Option holds nothing.
// Options are built with NewOption, DecodeOption or the Opt* helpers and
// are immutable afterwards, so the value always matches the kind
// registered for the code.
type Option struct {
	code    OptionCode
	value   any
	payload []byte
}

// NewOption validates value against the registered type of code and
// returns the option. Unregistered codes accept only []byte.
func NewOption(code OptionCode, value any) (Option, error) {
	if code == OptionPad || code == OptionEnd {
		return Option{}, optionErr(code, ErrInvalidOptionCode, "")
	}
	def := GetOptionDef(code)
	if def == nil {
		def = &OptionDef{Code: code, Name: code.String(), Type: TypeBytes, MaxLen: maxOptionDataSize}
	}
	payload, err := encodeValue(def, value)
	if err != nil {
		return Option{}, err
	}
	// Decoding the encoded payload applies the same length and range rules
	// as the wire path and yields a private copy of the value.
	return decodeOption(def, payload)
}

// DecodeOption parses the payload of one TLV (without tag and length bytes).
func DecodeOption(code OptionCode, data []byte) (Option, error) {
	if code == OptionPad || code == OptionEnd {
		return Option{}, optionErr(code, ErrInvalidOptionCode, "")
	}
	def := GetOptionDef(code)
	if def == nil {
		if len(data) > maxOptionDataSize {
			return Option{}, optionErr(code, ErrOptionTooLong, "%d bytes", len(data))
		}
		return Option{code: code, value: bytes.Clone(nonNil(data)), payload: bytes.Clone(nonNil(data))}, nil
	}
	return decodeOption(def, data)
}

// DecodeOptionMin is DecodeOption with an extra lower bound on the payload length.
func DecodeOptionMin(code OptionCode, data []byte, minLen int) (Option, error) {
	if len(data) < minLen {
		return Option{}, optionErr(code, ErrOptionParse, "need at least %d bytes, got %d", minLen, len(data))
	}
	return DecodeOption(code, data)
}

func decodeOption(def *OptionDef, data []byte) (Option, error) {
	code := def.Code
	if len(data) > maxOptionDataSize {
		return Option{}, optionErr(code, ErrOptionTooLong, "%d bytes", len(data))
	}
	if len(data) < def.MinLen {
		return Option{}, optionErr(code, ErrOptionParse, "need at least %d bytes, got %d", def.MinLen, len(data))
	}
	if def.MaxLen > 0 && len(data) > def.MaxLen {
		return Option{}, optionErr(code, ErrOptionParse, "expected at most %d bytes, got %d", def.MaxLen, len(data))
	}

	value, err := decodeValue(def, data)
	if err != nil {
		var oe *OptionError
		if errors.As(err, &oe) {
			return Option{}, err
		}
		return Option{}, optionErr(code, ErrOptionParse, "%v", err)
	}

	if def.MinValue > 0 {
		var n uint32
		switch v := value.(type) {
		case uint8:
			n = uint32(v)
		case uint16:
			n = uint32(v)
		case uint32:
			n = v
		}
		if n < def.MinValue {
			return Option{}, optionErr(code, ErrOptionValue, "%d is below the minimum %d", n, def.MinValue)
		}
	}

	return Option{code: code, value: value, payload: bytes.Clone(nonNil(data))}, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Code returns the option tag.
func (o Option) Code() OptionCode { return o.code }

// IsZero reports whether o is the zero Option.
func (o Option) IsZero() bool { return o.payload == nil }

// Value returns the decoded Go value. Its dynamic type is determined by
// the registered OptionType of the code.
func (o Option) Value() any { return o.value }

// Payload returns a copy of the option data without tag and length.
func (o Option) Payload() []byte { return bytes.Clone(o.payload) }

// Len returns the payload length as written in the length byte.
func (o Option) Len() int { return len(o.payload) }

// Encode returns the TLV form [tag, length, payload...].
func (o Option) Encode() []byte {
	return o.appendTo(make([]byte, 0, 2+len(o.payload)))
}

func (o Option) appendTo(b []byte) []byte {
	b = append(b, byte(o.code), byte(len(o.payload)))
	return append(b, o.payload...)
}

// Equal reports whether both options carry the same tag and payload.
func (o Option) Equal(p Option) bool {
	return o.code == p.code && bytes.Equal(o.payload, p.payload)
}

func (o Option) String() string {
	if o.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s: %s", o.code, formatValue(o.value))
}

func formatValue(v any) string {
	switch v := v.(type) {
	case []byte:
		return fmt.Sprintf("%x", v)
	case string:
		return fmt.Sprintf("%q", v)
	case []netip.Addr:
		parts := make([]string, len(v))
		for i, ip := range v {
			parts[i] = ip.String()
		}
		return strings.Join(parts, ", ")
	case []IPPair:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = p.First.String() + "/" + p.Second.String()
		}
		return strings.Join(parts, ", ")
	case []OptionCode:
		parts := make([]string, len(v))
		for i, c := range v {
			parts[i] = fmt.Sprintf("%d", byte(c))
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ", ")
	case []ClasslessRoute:
		parts := make([]string, len(v))
		for i, r := range v {
			parts[i] = r.String()
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func (o Option) conversionErr(want OptionType) error {
	return optionErr(o.code, ErrOptionConversion, "%T is not a %s value", o.value, want)
}

// IP returns the value of a single-address option.
func (o Option) IP() (netip.Addr, error) {
	v, ok := o.value.(netip.Addr)
	if !ok {
		return netip.Addr{}, o.conversionErr(TypeIP)
	}
	return v, nil
}

// IPs returns the value of an address list option.
func (o Option) IPs() ([]netip.Addr, error) {
	v, ok := o.value.([]netip.Addr)
	if !ok {
		return nil, o.conversionErr(TypeIPList)
	}
	return append([]netip.Addr(nil), v...), nil
}

// IPPairs returns the value of a Policy Filter or Static Route option.
func (o Option) IPPairs() ([]IPPair, error) {
	v, ok := o.value.([]IPPair)
	if !ok {
		return nil, o.conversionErr(TypeIPPairs)
	}
	return append([]IPPair(nil), v...), nil
}

// Text returns the value of a text option.
func (o Option) Text() (string, error) {
	v, ok := o.value.(string)
	if !ok {
		return "", o.conversionErr(TypeString)
	}
	return v, nil
}

func (o Option) Bool() (bool, error) {
	v, ok := o.value.(bool)
	if !ok {
		return false, o.conversionErr(TypeBool)
	}
	return v, nil
}

func (o Option) Uint8() (uint8, error) {
	v, ok := o.value.(uint8)
	if !ok {
		return 0, o.conversionErr(TypeUint8)
	}
	return v, nil
}

func (o Option) Uint16() (uint16, error) {
	v, ok := o.value.(uint16)
	if !ok {
		return 0, o.conversionErr(TypeUint16)
	}
	return v, nil
}

func (o Option) Uint32() (uint32, error) {
	v, ok := o.value.(uint32)
	if !ok {
		return 0, o.conversionErr(TypeUint32)
	}
	return v, nil
}

func (o Option) Int32() (int32, error) {
	v, ok := o.value.(int32)
	if !ok {
		return 0, o.conversionErr(TypeInt32)
	}
	return v, nil
}

func (o Option) Uint16s() ([]uint16, error) {
	v, ok := o.value.([]uint16)
	if !ok {
		return nil, o.conversionErr(TypeUint16List)
	}
	return append([]uint16(nil), v...), nil
}

// Bytes returns the value of an opaque option (43, 60 or an unknown code).
func (o Option) Bytes() ([]byte, error) {
	v, ok := o.value.([]byte)
	if !ok {
		return nil, o.conversionErr(TypeBytes)
	}
	return bytes.Clone(v), nil
}

// Codes returns the value of the Parameter Request List.
func (o Option) Codes() ([]OptionCode, error) {
	v, ok := o.value.([]OptionCode)
	if !ok {
		return nil, o.conversionErr(TypeCodeList)
	}
	return append([]OptionCode(nil), v...), nil
}

func (o Option) MessageType() (MessageType, error) {
	v, ok := o.value.(MessageType)
	if !ok {
		return 0, o.conversionErr(TypeMessageType)
	}
	return v, nil
}

func (o Option) NodeType() (NetBIOSNodeType, error) {
	v, ok := o.value.(NetBIOSNodeType)
	if !ok {
		return 0, o.conversionErr(TypeNodeType)
	}
	return v, nil
}

func (o Option) Overload() (Overload, error) {
	v, ok := o.value.(Overload)
	if !ok {
		return 0, o.conversionErr(TypeOverload)
	}
	return v, nil
}

func (o Option) ClientIdentifier() (ClientIdentifier, error) {
	v, ok := o.value.(ClientIdentifier)
	if !ok {
		return ClientIdentifier{}, o.conversionErr(TypeClientID)
	}
	return ClientIdentifier{Type: v.Type, Data: bytes.Clone(v.Data)}, nil
}

func (o Option) RelayAgentInfo() (RelayAgentInfo, error) {
	v, ok := o.value.(RelayAgentInfo)
	if !ok {
		return RelayAgentInfo{}, o.conversionErr(TypeRelayAgentInfo)
	}
	return v.clone(), nil
}

// Domains returns the value of the Domain Search option, without trailing dots.
func (o Option) Domains() ([]string, error) {
	v, ok := o.value.([]string)
	if !ok {
		return nil, o.conversionErr(TypeDomainList)
	}
	return append([]string(nil), v...), nil
}

// Routes returns the value of the Classless Static Route option.
func (o Option) Routes() ([]ClasslessRoute, error) {
	v, ok := o.value.([]ClasslessRoute)
	if !ok {
		return nil, o.conversionErr(TypeCIDRRoutes)
	}
	return append([]ClasslessRoute(nil), v...), nil
}

// Helpers for options whose value type cannot fail validation.

func OptMessageType(t MessageType) Option {
	return Option{code: OptionDHCPMessageType, value: t, payload: []byte{byte(t)}}
}

func OptIPAddressLeaseTime(seconds uint32) Option { return uint32Option(OptionIPLeaseTime, seconds) }
func OptRenewalTimeValue(seconds uint32) Option   { return uint32Option(OptionRenewalTime, seconds) }
func OptRebindingTimeValue(seconds uint32) Option { return uint32Option(OptionRebindingTime, seconds) }

func uint32Option(code OptionCode, v uint32) Option {
	return Option{code: code, value: v, payload: []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}}
}

// OptServerIdentifier builds option 54. Non-IPv4 addresses encode as 0.0.0.0.
func OptServerIdentifier(ip netip.Addr) Option { return ipOption(OptionServerIdentifier, ip) }
func OptRequestedIPAddress(ip netip.Addr) Option { return ipOption(OptionRequestedIP, ip) }
func OptSubnetMask(mask netip.Addr) Option { return ipOption(OptionSubnetMask, mask) }

func ipOption(code OptionCode, ip netip.Addr) Option {
	b := as4(ip)
	return Option{code: code, value: netip.AddrFrom4(b), payload: b[:]}
}
