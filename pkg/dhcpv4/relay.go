package dhcpv4

import (
	"bytes"
	"fmt"
	"net/netip"

	"github.com/u-root/uio/uio"
)

// RelaySubOption is one Option 82 sub-option. Unrecognised codes are kept
// verbatim.
type RelaySubOption struct {
	Code RelaySubOptionCode
	Data []byte
}

// RelayAgentInfo holds the ordered Option 82 sub-options (RFC 3046).
type RelayAgentInfo struct {
	SubOptions []RelaySubOption
}

// ParseRelayAgentInfo decodes Option 82 sub-options from raw bytes.
// Every declared sub-length is bounds checked against the remaining data.
func ParseRelayAgentInfo(data []byte) (RelayAgentInfo, error) {
	var info RelayAgentInfo
	buf := uio.NewBigEndianBuffer(data)
	for buf.Len() > 0 {
		offset := len(data) - buf.Len()
		if !buf.Has(2) {
			return RelayAgentInfo{}, fmt.Errorf("truncated relay agent sub-option at offset %d", offset)
		}
		code := RelaySubOptionCode(buf.Read8())
		n := int(buf.Read8())
		if !buf.Has(n) {
			return RelayAgentInfo{}, fmt.Errorf("truncated relay agent sub-option %d at offset %d: need %d bytes, have %d",
				code, offset, n, buf.Len())
		}
		info.SubOptions = append(info.SubOptions, RelaySubOption{Code: code, Data: buf.CopyN(n)})
	}
	return info, buf.FinError()
}

// ToBytes encodes the sub-options in order.
func (r RelayAgentInfo) ToBytes() ([]byte, error) {
	buf := uio.NewBigEndianBuffer(nil)
	for _, sub := range r.SubOptions {
		if len(sub.Data) > maxOptionDataSize {
			return nil, fmt.Errorf("relay agent sub-option %d: %d bytes exceeds 255", sub.Code, len(sub.Data))
		}
		buf.Write8(uint8(sub.Code))
		buf.Write8(uint8(len(sub.Data)))
		buf.WriteBytes(sub.Data)
	}
	return buf.Data(), nil
}

// Get returns the data of the first sub-option with the given code.
func (r RelayAgentInfo) Get(code RelaySubOptionCode) ([]byte, bool) {
	for _, sub := range r.SubOptions {
		if sub.Code == code {
			return sub.Data, true
		}
	}
	return nil, false
}

// CircuitID returns sub-option 1.
func (r RelayAgentInfo) CircuitID() []byte {
	b, _ := r.Get(RelaySubOptionCircuitID)
	return b
}

// RemoteID returns sub-option 2.
func (r RelayAgentInfo) RemoteID() []byte {
	b, _ := r.Get(RelaySubOptionRemoteID)
	return b
}

// LinkSelection returns the RFC 3527 link selection address, if present
// and well formed.
func (r RelayAgentInfo) LinkSelection() (netip.Addr, bool) {
	b, ok := r.Get(RelaySubOptionLinkSelect)
	if !ok {
		return netip.Addr{}, false
	}
	ip, err := BytesToIP(b)
	if err != nil {
		return netip.Addr{}, false
	}
	return ip, true
}

func (r RelayAgentInfo) clone() RelayAgentInfo {
	if r.SubOptions == nil {
		return RelayAgentInfo{}
	}
	out := RelayAgentInfo{SubOptions: make([]RelaySubOption, len(r.SubOptions))}
	for i, sub := range r.SubOptions {
		out.SubOptions[i] = RelaySubOption{Code: sub.Code, Data: bytes.Clone(sub.Data)}
	}
	return out
}

func (r RelayAgentInfo) String() string {
	var b bytes.Buffer
	for i, sub := range r.SubOptions {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%x", sub.Code, sub.Data)
	}
	return b.String()
}
