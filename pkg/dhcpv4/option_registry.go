package dhcpv4

// OptionType defines the data type of a DHCP option.
type OptionType int

const (
	TypeBytes           OptionType = iota // Raw bytes (also the fallback for unknown codes)
	TypeIP                                // Single IPv4 address (4 bytes)
	TypeIPList                            // Multiple IPv4 addresses (N*4 bytes)
	TypeIPPairs                           // IPv4 address pairs (N*8 bytes)
	TypeUint8                             // Single byte
	TypeUint16                            // 2 bytes big-endian
	TypeUint32                            // 4 bytes big-endian
	TypeInt32                             // 4 bytes big-endian signed
	TypeBool                              // 1 byte, 0x00 or 0x01
	TypeString                            // Variable-length 7-bit ASCII
	TypeUint16List                        // Multiple uint16 values
	TypeCodeList                          // Option codes, one byte each
	TypeMessageType                       // DHCP message type
	TypeNodeType                          // NetBIOS node type
	TypeOverload                          // Option overload selector
	TypeClientID                          // Type byte + identifier
	TypeRelayAgentInfo                    // RFC 3046 sub-options
	TypeDomainList                        // RFC 3397 encoded domain names
	TypeCIDRRoutes                        // RFC 3442 encoded routes
)

func (t OptionType) String() string {
	switch t {
	case TypeBytes:
		return "bytes"
	case TypeIP:
		return "ip"
	case TypeIPList:
		return "ip-list"
	case TypeIPPairs:
		return "ip-pairs"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeInt32:
		return "int32"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeUint16List:
		return "uint16-list"
	case TypeCodeList:
		return "code-list"
	case TypeMessageType:
		return "message-type"
	case TypeNodeType:
		return "netbios-node-type"
	case TypeOverload:
		return "overload"
	case TypeClientID:
		return "client-id"
	case TypeRelayAgentInfo:
		return "relay-agent-info"
	case TypeDomainList:
		return "domain-list"
	case TypeCIDRRoutes:
		return "cidr-routes"
	default:
		return "unknown"
	}
}

// OptionDef defines a DHCP option's metadata for the registry.
type OptionDef struct {
	Code   OptionCode
	Name   string
	Type   OptionType
	MinLen int
	MaxLen int
	// MinValue is the smallest accepted value for integer options (0 = unchecked).
	MinValue uint32
}

var optionDefs = []OptionDef{
	{Code: OptionSubnetMask, Name: "Subnet Mask", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionTimeOffset, Name: "Time Offset", Type: TypeInt32, MinLen: 4, MaxLen: 4},
	{Code: OptionRouter, Name: "Router", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionTimeServer, Name: "Time Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionNameServer, Name: "Name Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionDomainNameServer, Name: "Domain Name Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionLogServer, Name: "Log Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionCookieServer, Name: "Cookie Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionLPRServer, Name: "LPR Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionImpressServer, Name: "Impress Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionResourceLocationServer, Name: "Resource Location Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionHostname, Name: "Host Name", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionBootFileSize, Name: "Boot File Size", Type: TypeUint16, MinLen: 2, MaxLen: 2},
	{Code: OptionMeritDumpFile, Name: "Merit Dump File", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionDomainName, Name: "Domain Name", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionSwapServer, Name: "Swap Server", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionRootPath, Name: "Root Path", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionExtensionsPath, Name: "Extensions Path", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionIPForwarding, Name: "IP Forwarding", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionNonLocalSourceRouting, Name: "Non-Local Source Routing", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionPolicyFilter, Name: "Policy Filter", Type: TypeIPPairs, MinLen: 8, MaxLen: 248},
	{Code: OptionMaxDatagramReassembly, Name: "Max Datagram Reassembly Size", Type: TypeUint16, MinLen: 2, MaxLen: 2, MinValue: DefaultPacketSize},
	{Code: OptionDefaultIPTTL, Name: "Default IP TTL", Type: TypeUint8, MinLen: 1, MaxLen: 1, MinValue: 1},
	{Code: OptionPathMTUAgingTimeout, Name: "Path MTU Aging Timeout", Type: TypeUint32, MinLen: 4, MaxLen: 4},
	{Code: OptionPathMTUPlateauTable, Name: "Path MTU Plateau Table", Type: TypeUint16List, MinLen: 2, MaxLen: 254},
	{Code: OptionInterfaceMTU, Name: "Interface MTU", Type: TypeUint16, MinLen: 2, MaxLen: 2, MinValue: 68},
	{Code: OptionAllSubnetsLocal, Name: "All Subnets Local", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionBroadcastAddress, Name: "Broadcast Address", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionPerformMaskDiscovery, Name: "Perform Mask Discovery", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionMaskSupplier, Name: "Mask Supplier", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionPerformRouterDiscovery, Name: "Perform Router Discovery", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionRouterSolicitAddr, Name: "Router Solicitation Address", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionStaticRoute, Name: "Static Route", Type: TypeIPPairs, MinLen: 8, MaxLen: 248},
	{Code: OptionTrailerEncapsulation, Name: "Trailer Encapsulation", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionARPCacheTimeout, Name: "ARP Cache Timeout", Type: TypeUint32, MinLen: 4, MaxLen: 4},
	{Code: OptionEthernetEncapsulation, Name: "Ethernet Encapsulation", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionTCPDefaultTTL, Name: "TCP Default TTL", Type: TypeUint8, MinLen: 1, MaxLen: 1, MinValue: 1},
	{Code: OptionTCPKeepaliveInterval, Name: "TCP Keepalive Interval", Type: TypeUint32, MinLen: 4, MaxLen: 4},
	{Code: OptionTCPKeepaliveGarbage, Name: "TCP Keepalive Garbage", Type: TypeBool, MinLen: 1, MaxLen: 1},
	{Code: OptionNISDomain, Name: "NIS Domain", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionNISServers, Name: "NIS Servers", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionNTPServers, Name: "NTP Servers", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionVendorSpecific, Name: "Vendor Specific", Type: TypeBytes, MinLen: 1, MaxLen: 255},
	{Code: OptionNetBIOSNameServer, Name: "NetBIOS Name Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionNetBIOSDatagramDist, Name: "NetBIOS Datagram Distribution Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionNetBIOSNodeType, Name: "NetBIOS Node Type", Type: TypeNodeType, MinLen: 1, MaxLen: 1},
	{Code: OptionNetBIOSScope, Name: "NetBIOS Scope", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionXWindowFontServer, Name: "X Window Font Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionXWindowDisplayManager, Name: "X Window Display Manager", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionRequestedIP, Name: "Requested IP Address", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionIPLeaseTime, Name: "IP Address Lease Time", Type: TypeUint32, MinLen: 4, MaxLen: 4},
	{Code: OptionOverload, Name: "Option Overload", Type: TypeOverload, MinLen: 1, MaxLen: 1},
	{Code: OptionDHCPMessageType, Name: "DHCP Message Type", Type: TypeMessageType, MinLen: 1, MaxLen: 1},
	{Code: OptionServerIdentifier, Name: "Server Identifier", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionParameterRequestList, Name: "Parameter Request List", Type: TypeCodeList, MinLen: 1, MaxLen: 255},
	{Code: OptionMessage, Name: "Message", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionMaxDHCPMessageSize, Name: "Max DHCP Message Size", Type: TypeUint16, MinLen: 2, MaxLen: 2, MinValue: DefaultPacketSize},
	{Code: OptionRenewalTime, Name: "Renewal Time (T1)", Type: TypeUint32, MinLen: 4, MaxLen: 4},
	{Code: OptionRebindingTime, Name: "Rebinding Time (T2)", Type: TypeUint32, MinLen: 4, MaxLen: 4},
	{Code: OptionVendorClassID, Name: "Vendor Class Identifier", Type: TypeBytes, MinLen: 1, MaxLen: 255},
	{Code: OptionClientIdentifier, Name: "Client Identifier", Type: TypeClientID, MinLen: 2, MaxLen: 255},
	{Code: OptionNISPlusDomain, Name: "NIS+ Domain", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionNISPlusServers, Name: "NIS+ Servers", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionTFTPServerName, Name: "TFTP Server Name", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionBootfileName, Name: "Bootfile Name", Type: TypeString, MinLen: 1, MaxLen: 255},
	{Code: OptionMobileIPHomeAgent, Name: "Mobile IP Home Agent", Type: TypeIPList, MinLen: 0, MaxLen: 252},
	{Code: OptionSMTPServer, Name: "SMTP Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionPOP3Server, Name: "POP3 Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionNNTPServer, Name: "NNTP Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionWWWServer, Name: "WWW Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionFingerServer, Name: "Finger Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionIRCServer, Name: "IRC Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionStreetTalkServer, Name: "StreetTalk Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionStreetTalkDirectoryAssistance, Name: "StreetTalk Directory Assistance Server", Type: TypeIPList, MinLen: 4, MaxLen: 252},
	{Code: OptionRelayAgentInfo, Name: "Relay Agent Information", Type: TypeRelayAgentInfo, MinLen: 0, MaxLen: 255},
	{Code: OptionSubnetSelection, Name: "Subnet Selection", Type: TypeIP, MinLen: 4, MaxLen: 4},
	{Code: OptionDomainSearch, Name: "Domain Search", Type: TypeDomainList, MinLen: 1, MaxLen: 255},
	{Code: OptionClasslessStaticRoute, Name: "Classless Static Route", Type: TypeCIDRRoutes, MinLen: 5, MaxLen: 255},
	{Code: OptionTFTPServerAddress, Name: "TFTP Server Address", Type: TypeIPList, MinLen: 4, MaxLen: 252},
}

// optionRegistry is the tag-indexed dispatch table built from optionDefs.
var optionRegistry = func() (reg [256]*OptionDef) {
	for i := range optionDefs {
		reg[optionDefs[i].Code] = &optionDefs[i]
	}
	return reg
}()

// GetOptionDef returns the definition for an option code, or nil if the
// code is not registered.
func GetOptionDef(code OptionCode) *OptionDef {
	return optionRegistry[code]
}

// RegisteredOptions returns every registered definition in ascending code order.
func RegisteredOptions() []OptionDef {
	out := make([]OptionDef, 0, len(optionDefs))
	for _, def := range optionRegistry {
		if def != nil {
			out = append(out, *def)
		}
	}
	return out
}
