// Package logging provides slog setup helpers for dhcpwire.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"os"
	"strings"

	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

// Setup initializes the default slog logger with the given level and a JSON
// handler writing to output.
func Setup(level string, output io.Writer) *slog.Logger {
	return SetupFormat(level, "json", output)
}

// SetupFormat is Setup with a selectable handler: "text" or "json"
// (the default for any other value).
func SetupFormat(level, format string, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// PacketAttrs returns the attributes logged for every packet. Address
// fields are included only when set.
func PacketAttrs(p *dhcpv4.Packet) []any {
	attrs := []any{
		"msg_type", p.MessageType().String(),
		"xid", fmt.Sprintf("%08x", p.XID),
		"mac", p.CHAddr.String(),
	}
	if isSet(p.CIAddr) {
		attrs = append(attrs, "ciaddr", p.CIAddr.String())
	}
	if isSet(p.YIAddr) {
		attrs = append(attrs, "yiaddr", p.YIAddr.String())
	}
	if p.IsRelayed() {
		attrs = append(attrs, "giaddr", p.GIAddr.String())
	}
	return attrs
}

func isSet(ip netip.Addr) bool {
	return ip.IsValid() && !ip.IsUnspecified()
}
