package dhcpv4

import (
	"fmt"
	"net/netip"

	"github.com/u-root/uio/uio"
)

// IPToBytes converts an IPv4 address to its 4-byte wire form.
// Invalid or non-IPv4 addresses encode as 0.0.0.0.
func IPToBytes(ip netip.Addr) []byte {
	b := as4(ip)
	return b[:]
}

// BytesToIP converts exactly 4 bytes to an IPv4 address.
func BytesToIP(b []byte) (netip.Addr, error) {
	if len(b) != 4 {
		return netip.Addr{}, fmt.Errorf("invalid IPv4 length %d: must be 4", len(b))
	}
	return netip.AddrFrom4([4]byte(b)), nil
}

// IPListToBytes encodes a list of IPv4 addresses as concatenated 4-byte values.
func IPListToBytes(ips []netip.Addr) []byte {
	buf := uio.NewBigEndianBuffer(make([]byte, 0, 4*len(ips)))
	for _, ip := range ips {
		writeIP(buf, ip)
	}
	return buf.Data()
}

// BytesToIPList decodes concatenated 4-byte IPv4 addresses.
func BytesToIPList(b []byte) ([]netip.Addr, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid IP list length %d: must be multiple of 4", len(b))
	}
	buf := uio.NewBigEndianBuffer(b)
	ips := make([]netip.Addr, 0, len(b)/4)
	for buf.Has(4) {
		ips = append(ips, readIP(buf))
	}
	return ips, buf.FinError()
}

// ClasslessRoute represents a classless static route (RFC 3442).
type ClasslessRoute struct {
	Destination netip.Prefix
	Gateway     netip.Addr
}

func (r ClasslessRoute) String() string {
	return fmt.Sprintf("%s via %s", r.Destination, r.Gateway)
}

// ClasslessRoutesToBytes encodes classless static routes per RFC 3442.
// Each route is (prefix_len, significant_octets_of_subnet, gateway).
func ClasslessRoutesToBytes(routes []ClasslessRoute) []byte {
	buf := uio.NewBigEndianBuffer(nil)
	for _, r := range routes {
		bits := r.Destination.Bits()
		if bits < 0 || !r.Destination.Addr().Unmap().Is4() {
			continue
		}
		dest := as4(r.Destination.Masked().Addr())
		buf.Write8(uint8(bits))
		buf.WriteBytes(dest[:(bits+7)/8])
		writeIP(buf, r.Gateway)
	}
	return buf.Data()
}

// BytesToClasslessRoutes decodes classless static routes per RFC 3442.
func BytesToClasslessRoutes(b []byte) ([]ClasslessRoute, error) {
	var routes []ClasslessRoute
	buf := uio.NewBigEndianBuffer(b)
	for buf.Len() > 0 {
		offset := len(b) - buf.Len()
		bits := int(buf.Read8())
		if bits > 32 {
			return nil, fmt.Errorf("invalid CIDR prefix length %d at offset %d", bits, offset)
		}
		sig := (bits + 7) / 8
		if !buf.Has(sig + 4) {
			return nil, fmt.Errorf("truncated CIDR route at offset %d", offset)
		}
		var dest [4]byte
		buf.ReadBytes(dest[:sig])
		prefix := netip.PrefixFrom(netip.AddrFrom4(dest), bits).Masked()
		routes = append(routes, ClasslessRoute{
			Destination: prefix,
			Gateway:     readIP(buf),
		})
	}
	return routes, buf.FinError()
}

// as4 returns the four octets of an IPv4 (or IPv4-mapped) address.
func as4(ip netip.Addr) [4]byte {
	ip = ip.Unmap()
	if !ip.Is4() {
		return [4]byte{}
	}
	return ip.As4()
}

func writeIP(buf *uio.Lexer, ip netip.Addr) {
	b := as4(ip)
	buf.WriteBytes(b[:])
}

func readIP(buf *uio.Lexer) netip.Addr {
	var b [4]byte
	buf.ReadBytes(b[:])
	return netip.AddrFrom4(b)
}

func isIPv4(ip netip.Addr) bool {
	return ip.Unmap().Is4()
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c > 0x7f {
			return false
		}
	}
	return true
}

// asciiField drops NUL and non-ASCII bytes from a padded header field.
func asciiField(b []byte) string {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == 0 || c > 0x7f {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}
