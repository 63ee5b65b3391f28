package config

import "time"

// Default configuration values.
const (
	DefaultInterface          = "eth0"
	DefaultListen             = "0.0.0.0:67"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsListen      = "127.0.0.1:9167"
	DefaultLeaseTime          = 12 * time.Hour
	DefaultRenewalTime        = 6 * time.Hour
	DefaultRebindTime         = 10*time.Hour + 30*time.Minute
	DefaultRateLimitDiscovers = 100
	DefaultRateLimitPerMAC    = 5
	MinInterfaceMTU           = 68
)
