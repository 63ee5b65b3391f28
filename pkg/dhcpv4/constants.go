// Package dhcpv4 implements the DHCPv4 wire format (RFC 2131/2132): the
// fixed BOOTP header, the tagged option stream and the message role
// transitions of a client/server exchange.
package dhcpv4

import (
	"fmt"
	"net/netip"
)

// DHCP Message Types (RFC 2132 §9.6)
type MessageType byte

const (
	MessageTypeDiscover MessageType = 1 // DHCPDISCOVER
	MessageTypeOffer    MessageType = 2 // DHCPOFFER
	MessageTypeRequest  MessageType = 3 // DHCPREQUEST
	MessageTypeDecline  MessageType = 4 // DHCPDECLINE
	MessageTypeAck      MessageType = 5 // DHCPACK
	MessageTypeNak      MessageType = 6 // DHCPNAK
	MessageTypeRelease  MessageType = 7 // DHCPRELEASE
	MessageTypeInform   MessageType = 8 // DHCPINFORM
)

func (m MessageType) String() string {
	switch m {
	case MessageTypeDiscover:
		return "DHCPDISCOVER"
	case MessageTypeOffer:
		return "DHCPOFFER"
	case MessageTypeRequest:
		return "DHCPREQUEST"
	case MessageTypeDecline:
		return "DHCPDECLINE"
	case MessageTypeAck:
		return "DHCPACK"
	case MessageTypeNak:
		return "DHCPNAK"
	case MessageTypeRelease:
		return "DHCPRELEASE"
	case MessageTypeInform:
		return "DHCPINFORM"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether m is one of the eight RFC 2132 message types.
func (m MessageType) Valid() bool {
	return m >= MessageTypeDiscover && m <= MessageTypeInform
}

// DHCP Op Codes (RFC 2131 §2)
type OpCode byte

const (
	OpCodeBootRequest OpCode = 1 // BOOTREQUEST
	OpCodeBootReply   OpCode = 2 // BOOTREPLY
)

func (o OpCode) String() string {
	switch o {
	case OpCodeBootRequest:
		return "BOOTREQUEST"
	case OpCodeBootReply:
		return "BOOTREPLY"
	default:
		return fmt.Sprintf("OpCode(%d)", byte(o))
	}
}

// Hardware Types (RFC 1700)
type HardwareType byte

const (
	HardwareTypeEthernet HardwareType = 1
)

func (h HardwareType) String() string {
	if h == HardwareTypeEthernet {
		return "Ethernet"
	}
	return fmt.Sprintf("HardwareType(%d)", byte(h))
}

// Flags is the 16-bit BOOTP flags field, read big-endian from bytes 10-11.
type Flags uint16

const (
	FlagsUnicast   Flags = 0x0000
	FlagsBroadcast Flags = 0x0001
)

func (f Flags) String() string {
	switch f {
	case FlagsUnicast:
		return "Unicast"
	case FlagsBroadcast:
		return "Broadcast"
	default:
		return fmt.Sprintf("Flags(0x%04x)", uint16(f))
	}
}

// Accepted wire forms of the flags field. Broadcast is written as 00 01;
// the RFC 2131 B bit form 80 00 is read as Broadcast too.
var (
	flagsUnicastWire    = [2]byte{0, 0}
	flagsBroadcastWire  = [2]byte{0, 1}
	flagsBroadcastBWire = [2]byte{0x80, 0}
)

// DHCP Option Codes (RFC 2132 and extensions)
type OptionCode byte

const (
	OptionPad                           OptionCode = 0
	OptionSubnetMask                    OptionCode = 1
	OptionTimeOffset                    OptionCode = 2
	OptionRouter                        OptionCode = 3
	OptionTimeServer                    OptionCode = 4
	OptionNameServer                    OptionCode = 5
	OptionDomainNameServer              OptionCode = 6
	OptionLogServer                     OptionCode = 7
	OptionCookieServer                  OptionCode = 8
	OptionLPRServer                     OptionCode = 9
	OptionImpressServer                 OptionCode = 10
	OptionResourceLocationServer        OptionCode = 11
	OptionHostname                      OptionCode = 12
	OptionBootFileSize                  OptionCode = 13
	OptionMeritDumpFile                 OptionCode = 14
	OptionDomainName                    OptionCode = 15
	OptionSwapServer                    OptionCode = 16
	OptionRootPath                      OptionCode = 17
	OptionExtensionsPath                OptionCode = 18
	OptionIPForwarding                  OptionCode = 19
	OptionNonLocalSourceRouting         OptionCode = 20
	OptionPolicyFilter                  OptionCode = 21
	OptionMaxDatagramReassembly         OptionCode = 22
	OptionDefaultIPTTL                  OptionCode = 23
	OptionPathMTUAgingTimeout           OptionCode = 24
	OptionPathMTUPlateauTable           OptionCode = 25
	OptionInterfaceMTU                  OptionCode = 26
	OptionAllSubnetsLocal               OptionCode = 27
	OptionBroadcastAddress              OptionCode = 28
	OptionPerformMaskDiscovery          OptionCode = 29
	OptionMaskSupplier                  OptionCode = 30
	OptionPerformRouterDiscovery        OptionCode = 31
	OptionRouterSolicitAddr             OptionCode = 32
	OptionStaticRoute                   OptionCode = 33
	OptionTrailerEncapsulation          OptionCode = 34
	OptionARPCacheTimeout               OptionCode = 35
	OptionEthernetEncapsulation         OptionCode = 36
	OptionTCPDefaultTTL                 OptionCode = 37
	OptionTCPKeepaliveInterval          OptionCode = 38
	OptionTCPKeepaliveGarbage           OptionCode = 39
	OptionNISDomain                     OptionCode = 40
	OptionNISServers                    OptionCode = 41
	OptionNTPServers                    OptionCode = 42
	OptionVendorSpecific                OptionCode = 43
	OptionNetBIOSNameServer             OptionCode = 44
	OptionNetBIOSDatagramDist           OptionCode = 45
	OptionNetBIOSNodeType               OptionCode = 46
	OptionNetBIOSScope                  OptionCode = 47
	OptionXWindowFontServer             OptionCode = 48
	OptionXWindowDisplayManager         OptionCode = 49
	OptionRequestedIP                   OptionCode = 50
	OptionIPLeaseTime                   OptionCode = 51
	OptionOverload                      OptionCode = 52
	OptionDHCPMessageType               OptionCode = 53
	OptionServerIdentifier              OptionCode = 54
	OptionParameterRequestList          OptionCode = 55
	OptionMessage                       OptionCode = 56
	OptionMaxDHCPMessageSize            OptionCode = 57
	OptionRenewalTime                   OptionCode = 58
	OptionRebindingTime                 OptionCode = 59
	OptionVendorClassID                 OptionCode = 60
	OptionClientIdentifier              OptionCode = 61
	OptionNISPlusDomain                 OptionCode = 64
	OptionNISPlusServers                OptionCode = 65
	OptionTFTPServerName                OptionCode = 66
	OptionBootfileName                  OptionCode = 67
	OptionMobileIPHomeAgent             OptionCode = 68
	OptionSMTPServer                    OptionCode = 69
	OptionPOP3Server                    OptionCode = 70
	OptionNNTPServer                    OptionCode = 71
	OptionWWWServer                     OptionCode = 72
	OptionFingerServer                  OptionCode = 73
	OptionIRCServer                     OptionCode = 74
	OptionStreetTalkServer              OptionCode = 75
	OptionStreetTalkDirectoryAssistance OptionCode = 76
	OptionRelayAgentInfo                OptionCode = 82
	OptionSubnetSelection               OptionCode = 118
	OptionDomainSearch                  OptionCode = 119
	OptionClasslessStaticRoute          OptionCode = 121
	OptionTFTPServerAddress             OptionCode = 150
	OptionEnd                           OptionCode = 255
)

// String returns the registered RFC name, or "Option(N)" for unregistered codes.
func (c OptionCode) String() string {
	if def := GetOptionDef(c); def != nil {
		return def.Name
	}
	switch c {
	case OptionPad:
		return "Pad"
	case OptionEnd:
		return "End"
	}
	return fmt.Sprintf("Option(%d)", byte(c))
}

// NetBIOS over TCP/IP node type (RFC 2132 §8.7)
type NetBIOSNodeType byte

const (
	NetBIOSNodeB NetBIOSNodeType = 0x1
	NetBIOSNodeP NetBIOSNodeType = 0x2
	NetBIOSNodeM NetBIOSNodeType = 0x4
	NetBIOSNodeH NetBIOSNodeType = 0x8
)

func (n NetBIOSNodeType) String() string {
	switch n {
	case NetBIOSNodeB:
		return "B-node"
	case NetBIOSNodeP:
		return "P-node"
	case NetBIOSNodeM:
		return "M-node"
	case NetBIOSNodeH:
		return "H-node"
	default:
		return fmt.Sprintf("NetBIOSNodeType(%d)", byte(n))
	}
}

func (n NetBIOSNodeType) valid() bool {
	switch n {
	case NetBIOSNodeB, NetBIOSNodeP, NetBIOSNodeM, NetBIOSNodeH:
		return true
	}
	return false
}

// Option overload values (RFC 2132 §9.3)
type Overload byte

const (
	OverloadFile  Overload = 1 // 'file' field holds options
	OverloadSName Overload = 2 // 'sname' field holds options
	OverloadBoth  Overload = 3 // both fields hold options
)

func (o Overload) String() string {
	switch o {
	case OverloadFile:
		return "file"
	case OverloadSName:
		return "sname"
	case OverloadBoth:
		return "file+sname"
	default:
		return fmt.Sprintf("Overload(%d)", byte(o))
	}
}

func (o Overload) valid() bool {
	return o >= OverloadFile && o <= OverloadBoth
}

// Relay Agent Information Sub-Option Types (RFC 3046)
type RelaySubOptionCode byte

const (
	RelaySubOptionCircuitID  RelaySubOptionCode = 1
	RelaySubOptionRemoteID   RelaySubOptionCode = 2
	RelaySubOptionLinkSelect RelaySubOptionCode = 5 // RFC 3527
)

func (r RelaySubOptionCode) String() string {
	switch r {
	case RelaySubOptionCircuitID:
		return "circuit-id"
	case RelaySubOptionRemoteID:
		return "remote-id"
	case RelaySubOptionLinkSelect:
		return "link-selection"
	default:
		return fmt.Sprintf("sub-option(%d)", byte(r))
	}
}

// Header layout (RFC 2131 §2)
const (
	HeaderSize        = 240 // fixed BOOTP header plus magic cookie
	chaddrFieldSize   = 16
	snameFieldSize    = 64
	fileFieldSize     = 128
	maxOptionDataSize = 255
)

// DHCP Packet Size Limits
const (
	MinPacketSize     = 300  // BOOTP minimum datagram (RFC 951)
	MaxPacketSize     = 1500 // Ethernet MTU
	DefaultPacketSize = 576  // minimum every host must accept (RFC 2131 §2)
)

// DHCP Ports
const (
	ServerPort = 67
	ClientPort = 68
)

// DHCP Magic Cookie (RFC 2131 §3)
var MagicCookie = [4]byte{99, 130, 83, 99}

// Well-known addresses
var (
	BroadcastIP = netip.AddrFrom4([4]byte{255, 255, 255, 255})
	ZeroIP      = netip.AddrFrom4([4]byte{})
)
