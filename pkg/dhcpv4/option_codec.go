package dhcpv4

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/miekg/dns"
	"github.com/u-root/uio/uio"
)

// decodeValue converts an option payload into the Go value for the
// option's registered type. Length bounds are checked by the caller.
func decodeValue(def *OptionDef, data []byte) (any, error) {
	code := def.Code
	buf := uio.NewBigEndianBuffer(data)

	switch def.Type {
	case TypeIP:
		return readIP(buf), buf.FinError()

	case TypeIPList:
		ips, err := BytesToIPList(data)
		if err != nil {
			return nil, optionErr(code, ErrOptionParse, "%v", err)
		}
		return ips, nil

	case TypeIPPairs:
		if len(data)%8 != 0 {
			return nil, optionErr(code, ErrOptionParse, "address pair length %d is not a multiple of 8", len(data))
		}
		pairs := make([]IPPair, 0, len(data)/8)
		for buf.Has(8) {
			pairs = append(pairs, IPPair{First: readIP(buf), Second: readIP(buf)})
		}
		return pairs, buf.FinError()

	case TypeUint8:
		return buf.Read8(), buf.FinError()

	case TypeUint16:
		return buf.Read16(), buf.FinError()

	case TypeUint32:
		return buf.Read32(), buf.FinError()

	case TypeInt32:
		return int32(buf.Read32()), buf.FinError()

	case TypeBool:
		switch v := buf.Read8(); v {
		case 0:
			return false, buf.FinError()
		case 1:
			return true, buf.FinError()
		default:
			return nil, optionErr(code, ErrOptionParse, "boolean byte %d is not 0 or 1", v)
		}

	case TypeString:
		if !isASCII(data) {
			return nil, optionErr(code, ErrOptionParse, "text is not 7-bit ASCII")
		}
		return string(data), nil

	case TypeUint16List:
		if len(data)%2 != 0 {
			return nil, optionErr(code, ErrOptionParse, "uint16 list length %d is not a multiple of 2", len(data))
		}
		vals := make([]uint16, 0, len(data)/2)
		for buf.Has(2) {
			vals = append(vals, buf.Read16())
		}
		return vals, buf.FinError()

	case TypeCodeList:
		codes := make([]OptionCode, len(data))
		for i, b := range data {
			codes[i] = OptionCode(b)
		}
		return codes, nil

	case TypeMessageType:
		return MessageType(buf.Read8()), buf.FinError()

	case TypeNodeType:
		n := NetBIOSNodeType(buf.Read8())
		if !n.valid() {
			return nil, optionErr(code, ErrOptionParse, "unknown NetBIOS node type %d", byte(n))
		}
		return n, buf.FinError()

	case TypeOverload:
		o := Overload(buf.Read8())
		if !o.valid() {
			return nil, optionErr(code, ErrOptionParse, "unknown overload value %d", byte(o))
		}
		return o, buf.FinError()

	case TypeClientID:
		id := ClientIdentifier{Type: buf.Read8()}
		id.Data = buf.CopyN(buf.Len())
		return id, buf.Error()

	case TypeRelayAgentInfo:
		info, err := ParseRelayAgentInfo(data)
		if err != nil {
			return nil, optionErr(code, ErrOptionParse, "%v", err)
		}
		return info, nil

	case TypeDomainList:
		domains, err := unpackDomainList(data)
		if err != nil {
			return nil, optionErr(code, ErrOptionParse, "%v", err)
		}
		return domains, nil

	case TypeCIDRRoutes:
		routes, err := BytesToClasslessRoutes(data)
		if err != nil {
			return nil, optionErr(code, ErrOptionParse, "%v", err)
		}
		return routes, nil

	default:
		return append([]byte(nil), data...), nil
	}
}

// encodeValue serializes v according to the option's registered type.
// A Go type that does not match the registered type is a conversion error.
func encodeValue(def *OptionDef, v any) ([]byte, error) {
	code := def.Code
	buf := uio.NewBigEndianBuffer(nil)

	mismatch := func() error {
		return optionErr(code, ErrOptionConversion, "%T is not a %s value", v, def.Type)
	}
	checkIP := func(ip netip.Addr) error {
		if !isIPv4(ip) {
			return optionErr(code, ErrOptionValue, "%v is not an IPv4 address", ip)
		}
		return nil
	}

	switch def.Type {
	case TypeIP:
		ip, ok := v.(netip.Addr)
		if !ok {
			return nil, mismatch()
		}
		if err := checkIP(ip); err != nil {
			return nil, err
		}
		writeIP(buf, ip)

	case TypeIPList:
		ips, ok := v.([]netip.Addr)
		if !ok {
			return nil, mismatch()
		}
		for _, ip := range ips {
			if err := checkIP(ip); err != nil {
				return nil, err
			}
			writeIP(buf, ip)
		}

	case TypeIPPairs:
		pairs, ok := v.([]IPPair)
		if !ok {
			return nil, mismatch()
		}
		for _, p := range pairs {
			if err := checkIP(p.First); err != nil {
				return nil, err
			}
			if err := checkIP(p.Second); err != nil {
				return nil, err
			}
			writeIP(buf, p.First)
			writeIP(buf, p.Second)
		}

	case TypeUint8:
		n, ok := v.(uint8)
		if !ok {
			return nil, mismatch()
		}
		buf.Write8(n)

	case TypeUint16:
		n, ok := v.(uint16)
		if !ok {
			return nil, mismatch()
		}
		buf.Write16(n)

	case TypeUint32:
		n, ok := v.(uint32)
		if !ok {
			return nil, mismatch()
		}
		buf.Write32(n)

	case TypeInt32:
		n, ok := v.(int32)
		if !ok {
			return nil, mismatch()
		}
		buf.Write32(uint32(n))

	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch()
		}
		if b {
			buf.Write8(1)
		} else {
			buf.Write8(0)
		}

	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		if !isASCII([]byte(s)) {
			return nil, optionErr(code, ErrOptionValue, "text is not 7-bit ASCII")
		}
		buf.WriteBytes([]byte(s))

	case TypeUint16List:
		vals, ok := v.([]uint16)
		if !ok {
			return nil, mismatch()
		}
		for _, n := range vals {
			buf.Write16(n)
		}

	case TypeCodeList:
		codes, ok := v.([]OptionCode)
		if !ok {
			return nil, mismatch()
		}
		for _, c := range codes {
			buf.Write8(uint8(c))
		}

	case TypeMessageType:
		t, ok := v.(MessageType)
		if !ok {
			return nil, mismatch()
		}
		buf.Write8(uint8(t))

	case TypeNodeType:
		n, ok := v.(NetBIOSNodeType)
		if !ok {
			return nil, mismatch()
		}
		buf.Write8(uint8(n))

	case TypeOverload:
		o, ok := v.(Overload)
		if !ok {
			return nil, mismatch()
		}
		buf.Write8(uint8(o))

	case TypeClientID:
		id, ok := v.(ClientIdentifier)
		if !ok {
			return nil, mismatch()
		}
		buf.Write8(id.Type)
		buf.WriteBytes(id.Data)

	case TypeRelayAgentInfo:
		info, ok := v.(RelayAgentInfo)
		if !ok {
			return nil, mismatch()
		}
		b, err := info.ToBytes()
		if err != nil {
			return nil, optionErr(code, ErrOptionValue, "%v", err)
		}
		buf.WriteBytes(b)

	case TypeDomainList:
		domains, ok := v.([]string)
		if !ok {
			return nil, mismatch()
		}
		b, err := packDomainList(domains)
		if err != nil {
			return nil, optionErr(code, ErrOptionValue, "%v", err)
		}
		buf.WriteBytes(b)

	case TypeCIDRRoutes:
		routes, ok := v.([]ClasslessRoute)
		if !ok {
			return nil, mismatch()
		}
		for _, r := range routes {
			if !r.Destination.IsValid() || !isIPv4(r.Destination.Addr()) {
				return nil, optionErr(code, ErrOptionValue, "%v is not an IPv4 prefix", r.Destination)
			}
			if err := checkIP(r.Gateway); err != nil {
				return nil, err
			}
		}
		buf.WriteBytes(ClasslessRoutesToBytes(routes))

	default:
		b, ok := v.([]byte)
		if !ok {
			return nil, mismatch()
		}
		buf.WriteBytes(b)
	}
	return buf.Data(), nil
}

// packDomainList encodes names as a sequence of RFC 1035 labels (RFC 3397).
func packDomainList(domains []string) ([]byte, error) {
	size := 0
	for _, d := range domains {
		size += len(d) + 2
	}
	msg := make([]byte, size)
	off := 0
	for _, d := range domains {
		if _, ok := dns.IsDomainName(d); !ok {
			return nil, fmt.Errorf("invalid domain name %q", d)
		}
		next, err := dns.PackDomainName(dns.Fqdn(d), msg, off, nil, false)
		if err != nil {
			return nil, fmt.Errorf("packing %q: %w", d, err)
		}
		off = next
	}
	return msg[:off], nil
}

// unpackDomainList decodes a label sequence, following compression
// pointers relative to the start of the option payload.
func unpackDomainList(data []byte) ([]string, error) {
	var domains []string
	off := 0
	for off < len(data) {
		name, next, err := dns.UnpackDomainName(data, off)
		if err != nil {
			return nil, fmt.Errorf("domain at offset %d: %w", off, err)
		}
		if next <= off {
			return nil, fmt.Errorf("domain at offset %d: no progress", off)
		}
		off = next
		domains = append(domains, strings.TrimSuffix(name, "."))
	}
	return domains, nil
}
