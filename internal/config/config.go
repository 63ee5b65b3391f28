// Package config handles TOML configuration parsing and validation for the
// dhcpwire responder.
package config

import (
	"fmt"
	"math"
	"net"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/miekg/dns"

	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig        `toml:"server"`
	Lease        LeaseConfig         `toml:"lease"`
	Options      OptionsConfig       `toml:"options"`
	Reservations []ReservationConfig `toml:"reservation"`
}

// ServerConfig holds core server settings.
type ServerConfig struct {
	Interface       string          `toml:"interface"`
	Listen          string          `toml:"listen"`
	ServerID        string          `toml:"server_id"`
	ServerAddresses []string        `toml:"server_addresses"`
	LogLevel        string          `toml:"log_level"`
	LogFormat       string          `toml:"log_format"`
	MetricsListen   string          `toml:"metrics_listen"`
	RateLimit       RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled               bool `toml:"enabled"`
	MaxDiscoversPerSecond int  `toml:"max_discovers_per_second"`
	MaxPerMACPerSecond    int  `toml:"max_per_mac_per_second"`
}

// LeaseConfig holds lease timers as Go duration strings.
type LeaseConfig struct {
	LeaseTime     string `toml:"lease_time"`
	RenewalTime   string `toml:"renewal_time"`
	RebindingTime string `toml:"rebinding_time"`
}

// OptionsConfig holds the DHCP options handed to every client.
type OptionsConfig struct {
	SubnetMask       string              `toml:"subnet_mask"`
	Routers          []string            `toml:"routers"`
	DNSServers       []string            `toml:"dns_servers"`
	DomainName       string              `toml:"domain_name"`
	DomainSearch     []string            `toml:"domain_search"`
	NTPServers       []string            `toml:"ntp_servers"`
	BroadcastAddress string              `toml:"broadcast_address"`
	InterfaceMTU     int                 `toml:"interface_mtu"`
	TFTPServer       string              `toml:"tftp_server"`
	BootFile         string              `toml:"boot_file"`
	Message          string              `toml:"message"`
	StaticRoutes     []StaticRouteConfig `toml:"static_routes"`
}

// StaticRouteConfig is a classless static route.
type StaticRouteConfig struct {
	Destination string `toml:"destination"`
	Gateway     string `toml:"gateway"`
}

// ReservationConfig is a fixed MAC to IP binding.
type ReservationConfig struct {
	MAC      string `toml:"mac"`
	IP       string `toml:"ip"`
	Hostname string `toml:"hostname"`
}

// Load reads and parses a TOML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML data, applies defaults, and validates.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Interface == "" {
		cfg.Server.Interface = DefaultInterface
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = DefaultLogLevel
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = DefaultLogFormat
	}
	if cfg.Server.MetricsListen == "" {
		cfg.Server.MetricsListen = DefaultMetricsListen
	}
	if cfg.Server.RateLimit.MaxDiscoversPerSecond == 0 {
		cfg.Server.RateLimit.MaxDiscoversPerSecond = DefaultRateLimitDiscovers
	}
	if cfg.Server.RateLimit.MaxPerMACPerSecond == 0 {
		cfg.Server.RateLimit.MaxPerMACPerSecond = DefaultRateLimitPerMAC
	}

	if cfg.Lease.LeaseTime == "" {
		cfg.Lease.LeaseTime = DefaultLeaseTime.String()
	}
	if cfg.Lease.RenewalTime == "" {
		cfg.Lease.RenewalTime = DefaultRenewalTime.String()
	}
	if cfg.Lease.RebindingTime == "" {
		cfg.Lease.RebindingTime = DefaultRebindTime.String()
	}
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	if cfg.Server.ServerID == "" {
		return fmt.Errorf("server.server_id is required")
	}
	if _, err := parseIPv4(cfg.Server.ServerID); err != nil {
		return fmt.Errorf("server.server_id: %w", err)
	}
	if _, err := parseIPv4List(cfg.Server.ServerAddresses); err != nil {
		return fmt.Errorf("server.server_addresses: %w", err)
	}
	switch strings.ToLower(cfg.Server.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("server.log_format must be \"json\" or \"text\", got %q", cfg.Server.LogFormat)
	}
	if cfg.Server.RateLimit.MaxDiscoversPerSecond < 0 || cfg.Server.RateLimit.MaxPerMACPerSecond < 0 {
		return fmt.Errorf("server.rate_limit: limits must not be negative")
	}

	lease, err := durationSeconds("lease.lease_time", cfg.Lease.LeaseTime)
	if err != nil {
		return err
	}
	renew, err := durationSeconds("lease.renewal_time", cfg.Lease.RenewalTime)
	if err != nil {
		return err
	}
	rebind, err := durationSeconds("lease.rebinding_time", cfg.Lease.RebindingTime)
	if err != nil {
		return err
	}
	if renew > rebind || rebind > lease {
		return fmt.Errorf("lease: want renewal_time <= rebinding_time <= lease_time, got %s, %s, %s",
			cfg.Lease.RenewalTime, cfg.Lease.RebindingTime, cfg.Lease.LeaseTime)
	}

	if err := validateOptions(&cfg.Options); err != nil {
		return err
	}

	macs := make(map[string]int)
	ips := make(map[netip.Addr]int)
	for i, res := range cfg.Reservations {
		if res.MAC == "" {
			return fmt.Errorf("reservation[%d]: mac is required", i)
		}
		mac, err := net.ParseMAC(res.MAC)
		if err != nil {
			return fmt.Errorf("reservation[%d]: %w", i, err)
		}
		if len(mac) != 6 && len(mac) != 8 {
			return fmt.Errorf("reservation[%d]: mac %s must be 6 or 8 bytes", i, mac)
		}
		if res.IP == "" {
			return fmt.Errorf("reservation[%d]: ip is required", i)
		}
		ip, err := parseIPv4(res.IP)
		if err != nil {
			return fmt.Errorf("reservation[%d]: %w", i, err)
		}
		if res.Hostname != "" {
			if _, ok := dns.IsDomainName(res.Hostname); !ok {
				return fmt.Errorf("reservation[%d]: invalid hostname %q", i, res.Hostname)
			}
		}
		if j, dup := macs[mac.String()]; dup {
			return fmt.Errorf("reservation[%d]: mac %s already reserved by reservation[%d]", i, mac, j)
		}
		if j, dup := ips[ip]; dup {
			return fmt.Errorf("reservation[%d]: ip %s already reserved by reservation[%d]", i, ip, j)
		}
		macs[mac.String()] = i
		ips[ip] = i
	}

	return nil
}

func validateOptions(o *OptionsConfig) error {
	if o.SubnetMask != "" {
		mask, err := parseIPv4(o.SubnetMask)
		if err != nil {
			return fmt.Errorf("options.subnet_mask: %w", err)
		}
		if _, bits := net.IPMask(mask.AsSlice()).Size(); bits == 0 {
			return fmt.Errorf("options.subnet_mask %s is not a contiguous mask", mask)
		}
	}
	for field, list := range map[string][]string{
		"options.routers":     o.Routers,
		"options.dns_servers": o.DNSServers,
		"options.ntp_servers": o.NTPServers,
	} {
		if _, err := parseIPv4List(list); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	if o.BroadcastAddress != "" {
		if _, err := parseIPv4(o.BroadcastAddress); err != nil {
			return fmt.Errorf("options.broadcast_address: %w", err)
		}
	}
	if o.DomainName != "" {
		if _, ok := dns.IsDomainName(o.DomainName); !ok {
			return fmt.Errorf("options.domain_name %q is not a valid domain name", o.DomainName)
		}
	}
	for _, d := range o.DomainSearch {
		if _, ok := dns.IsDomainName(d); !ok {
			return fmt.Errorf("options.domain_search %q is not a valid domain name", d)
		}
	}
	if o.InterfaceMTU != 0 && (o.InterfaceMTU < MinInterfaceMTU || o.InterfaceMTU > math.MaxUint16) {
		return fmt.Errorf("options.interface_mtu %d must be between %d and %d", o.InterfaceMTU, MinInterfaceMTU, math.MaxUint16)
	}
	if _, err := o.routes(); err != nil {
		return err
	}
	return nil
}

func durationSeconds(field, s string) (uint32, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 || d.Seconds() > math.MaxUint32 {
		return 0, fmt.Errorf("%s %s is out of range", field, s)
	}
	return uint32(d / time.Second), nil
}

func parseIPv4(s string) (netip.Addr, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, err
	}
	if !ip.Unmap().Is4() {
		return netip.Addr{}, fmt.Errorf("%s is not an IPv4 address", s)
	}
	return ip.Unmap(), nil
}

func parseIPv4List(list []string) ([]netip.Addr, error) {
	if len(list) == 0 {
		return nil, nil
	}
	ips := make([]netip.Addr, 0, len(list))
	for _, s := range list {
		ip, err := parseIPv4(s)
		if err != nil {
			return nil, err
		}
		ips = append(ips, ip)
	}
	return ips, nil
}

func (o *OptionsConfig) routes() ([]dhcpv4.ClasslessRoute, error) {
	routes := make([]dhcpv4.ClasslessRoute, 0, len(o.StaticRoutes))
	for i, r := range o.StaticRoutes {
		prefix, err := netip.ParsePrefix(r.Destination)
		if err != nil {
			return nil, fmt.Errorf("options.static_routes[%d]: %w", i, err)
		}
		if !prefix.Addr().Is4() {
			return nil, fmt.Errorf("options.static_routes[%d]: %s is not an IPv4 prefix", i, prefix)
		}
		gw, err := parseIPv4(r.Gateway)
		if err != nil {
			return nil, fmt.Errorf("options.static_routes[%d]: %w", i, err)
		}
		routes = append(routes, dhcpv4.ClasslessRoute{Destination: prefix.Masked(), Gateway: gw})
	}
	return routes, nil
}

// LeaseTime returns the lease time in seconds.
func (cfg *Config) LeaseTime() uint32 {
	s, err := durationSeconds("lease.lease_time", cfg.Lease.LeaseTime)
	if err != nil {
		return uint32(DefaultLeaseTime / time.Second)
	}
	return s
}

// ServerIP returns the parsed server identifier.
func (cfg *Config) ServerIP() netip.Addr {
	ip, _ := parseIPv4(cfg.Server.ServerID)
	return ip
}

// ServerAddresses returns the parsed server_addresses list.
func (cfg *Config) ServerAddresses() []netip.Addr {
	ips, _ := parseIPv4List(cfg.Server.ServerAddresses)
	return ips
}

// Reservation returns the reservation for mac, if any.
func (cfg *Config) Reservation(mac net.HardwareAddr) (netip.Addr, string, bool) {
	for _, res := range cfg.Reservations {
		m, err := net.ParseMAC(res.MAC)
		if err != nil || m.String() != mac.String() {
			continue
		}
		ip, err := parseIPv4(res.IP)
		if err != nil {
			return netip.Addr{}, "", false
		}
		return ip, res.Hostname, true
	}
	return netip.Addr{}, "", false
}

// OfferOptions converts the [options] and [lease] sections into the option
// set attached to every offer and ack.
func (cfg *Config) OfferOptions() (dhcpv4.Options, error) {
	var opts dhcpv4.Options
	var firstErr error
	set := func(code dhcpv4.OptionCode, v any) {
		if firstErr != nil {
			return
		}
		opt, err := dhcpv4.NewOption(code, v)
		if err != nil {
			firstErr = err
			return
		}
		opts.Upsert(opt)
	}
	setIPs := func(code dhcpv4.OptionCode, list []string) {
		ips, err := parseIPv4List(list)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("option %s: %w", code, err)
			}
			return
		}
		if len(ips) > 0 {
			set(code, ips)
		}
	}

	o := &cfg.Options
	if o.SubnetMask != "" {
		if ip, err := parseIPv4(o.SubnetMask); err == nil {
			set(dhcpv4.OptionSubnetMask, ip)
		}
	}
	setIPs(dhcpv4.OptionRouter, o.Routers)
	setIPs(dhcpv4.OptionDomainNameServer, o.DNSServers)
	setIPs(dhcpv4.OptionNTPServers, o.NTPServers)
	if o.DomainName != "" {
		set(dhcpv4.OptionDomainName, strings.TrimSuffix(o.DomainName, "."))
	}
	if len(o.DomainSearch) > 0 {
		set(dhcpv4.OptionDomainSearch, o.DomainSearch)
	}
	if o.BroadcastAddress != "" {
		if ip, err := parseIPv4(o.BroadcastAddress); err == nil {
			set(dhcpv4.OptionBroadcastAddress, ip)
		}
	}
	if o.InterfaceMTU != 0 {
		if o.InterfaceMTU > math.MaxUint16 {
			return dhcpv4.Options{}, fmt.Errorf("options.interface_mtu %d is out of range", o.InterfaceMTU)
		}
		set(dhcpv4.OptionInterfaceMTU, uint16(o.InterfaceMTU))
	}
	if o.TFTPServer != "" {
		set(dhcpv4.OptionTFTPServerName, o.TFTPServer)
	}
	if o.BootFile != "" {
		set(dhcpv4.OptionBootfileName, o.BootFile)
	}
	if len(o.StaticRoutes) > 0 {
		routes, err := o.routes()
		if err != nil {
			return dhcpv4.Options{}, err
		}
		set(dhcpv4.OptionClasslessStaticRoute, routes)
	}

	if renew, err := durationSeconds("lease.renewal_time", cfg.Lease.RenewalTime); err == nil {
		set(dhcpv4.OptionRenewalTime, renew)
	}
	if rebind, err := durationSeconds("lease.rebinding_time", cfg.Lease.RebindingTime); err == nil {
		set(dhcpv4.OptionRebindingTime, rebind)
	}

	if firstErr != nil {
		return dhcpv4.Options{}, firstErr
	}
	return opts, nil
}
