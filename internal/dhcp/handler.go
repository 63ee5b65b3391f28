// Package dhcp implements a reservation-only DHCPv4 responder on top of the
// dhcpv4 message roles, plus the UDP transport that feeds it.
package dhcp

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"

	"github.com/athena-dhcpd/dhcpwire/internal/config"
	"github.com/athena-dhcpd/dhcpwire/internal/logging"
	"github.com/athena-dhcpd/dhcpwire/internal/metrics"
	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

// Drop reasons recorded in replies_dropped_total.
const (
	DropNoReservation = "no_reservation"
	DropNotRequest    = "not_request"
	DropRateLimited   = "rate_limited"
	DropOtherServer   = "other_server"
	DropUnclassified  = "unclassified"
)

// Reply is an encoded response ready for the wire.
type Reply struct {
	Message dhcpv4.Message
	// Datagrams holds one encoding per configured server address.
	Datagrams [][]byte
	Dst       *net.UDPAddr
}

// Handler maps inbound client messages onto server replies using the
// static reservations in the config.
type Handler struct {
	cfg      *config.Config
	options  dhcpv4.Options
	serverIP netip.Addr
	servers  []netip.Addr
	limiter  *RateLimiter
	logger   *slog.Logger
}

// NewHandler creates a new DHCP message handler.
func NewHandler(cfg *config.Config, limiter *RateLimiter, logger *slog.Logger) (*Handler, error) {
	opts, err := cfg.OfferOptions()
	if err != nil {
		return nil, fmt.Errorf("building offered options: %w", err)
	}
	h := &Handler{
		cfg:      cfg,
		options:  opts,
		serverIP: cfg.ServerIP(),
		servers:  cfg.ServerAddresses(),
		limiter:  limiter,
		logger:   logger,
	}
	if len(h.servers) == 0 {
		h.servers = []netip.Addr{h.serverIP}
	}
	return h, nil
}

// Handle dispatches one decoded packet. A nil Reply with a nil error means
// the packet was consumed without an answer. Handle takes ownership of pkt.
func (h *Handler) Handle(ctx context.Context, pkt *dhcpv4.Packet) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pkt.Op != dhcpv4.OpCodeBootRequest {
		h.drop(DropNotRequest, pkt)
		return nil, nil
	}

	msg, err := dhcpv4.Classify(pkt)
	if err != nil {
		h.drop(DropUnclassified, pkt)
		return nil, err
	}
	h.logger.Debug("received DHCP packet", logging.PacketAttrs(pkt)...)

	var reply dhcpv4.Message
	switch m := msg.(type) {
	case dhcpv4.Discover:
		reply, err = h.handleDiscover(m)
	case dhcpv4.Request:
		reply, err = h.handleRequest(m)
	case dhcpv4.Inform:
		reply, err = h.handleInform(m)
	case dhcpv4.Release:
		h.logger.Info("DHCPRELEASE", logging.PacketAttrs(pkt)...)
	case dhcpv4.Decline:
		attrs := logging.PacketAttrs(pkt)
		if ip, ok := pkt.RequestedIP(); ok {
			attrs = append(attrs, "declined_ip", ip.String())
		}
		h.logger.Warn("DHCPDECLINE", attrs...)
	default:
		h.drop(DropNotRequest, pkt)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}

	datagrams, err := reply.Packet().EncodeForServers(h.servers)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", reply.Type(), err)
	}
	metrics.PacketsEncoded.WithLabelValues(reply.Type().String()).Add(float64(len(datagrams)))

	return &Reply{
		Message:   reply,
		Datagrams: datagrams,
		Dst:       replyDestination(pkt, reply),
	}, nil
}

// handleDiscover processes DHCPDISCOVER -> DHCPOFFER.
func (h *Handler) handleDiscover(d dhcpv4.Discover) (dhcpv4.Message, error) {
	pkt := d.Packet()
	if h.limiter != nil && !h.limiter.Allow(pkt.CHAddr) {
		h.drop(DropRateLimited, pkt)
		return nil, nil
	}
	ip, hostname, ok := h.cfg.Reservation(pkt.CHAddr)
	if !ok {
		h.drop(DropNoReservation, pkt)
		return nil, nil
	}

	offer, err := d.Offer(dhcpv4.OfferParams{
		LeaseTime: h.cfg.LeaseTime(),
		YourIP:    ip,
		ServerIP:  h.serverIP,
		File:      h.cfg.Options.BootFile,
		Message:   h.cfg.Options.Message,
		Options:   h.replyOptions(hostname),
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues("discover_offer").Inc()
	h.logger.Info("DHCPOFFER", "mac", pkt.CHAddr.String(), "ip", ip.String(), "xid", pkt.XID)
	return offer, nil
}

// handleRequest processes DHCPREQUEST -> DHCPACK or DHCPNAK.
func (h *Handler) handleRequest(r dhcpv4.Request) (dhcpv4.Message, error) {
	pkt := r.Packet()
	if sid, ok := pkt.ServerIdentifier(); ok && sid != h.serverIP {
		h.drop(DropOtherServer, pkt)
		return nil, nil
	}

	want, ok := pkt.RequestedIP()
	if !ok {
		want = pkt.CIAddr
	}
	ip, hostname, reserved := h.cfg.Reservation(pkt.CHAddr)
	if !reserved || want != ip {
		var reason string
		if reserved {
			reason = fmt.Sprintf("requested address %s is not reserved for this client", want)
		} else {
			reason = "no reservation for this client"
		}
		nak, err := r.Nak(dhcpv4.NakParams{ServerIP: h.serverIP, Message: reason})
		if err != nil {
			return nil, err
		}
		metrics.Transitions.WithLabelValues("request_nak").Inc()
		h.logger.Info("DHCPNAK", "mac", pkt.CHAddr.String(), "requested_ip", want.String(), "reason", reason)
		return nak, nil
	}

	ack, err := r.Ack(dhcpv4.AckParams{
		LeaseTime: h.cfg.LeaseTime(),
		YourIP:    ip,
		ServerIP:  h.serverIP,
		File:      h.cfg.Options.BootFile,
		Message:   h.cfg.Options.Message,
		Options:   h.replyOptions(hostname),
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues("request_ack").Inc()
	h.logger.Info("DHCPACK", "mac", pkt.CHAddr.String(), "ip", ip.String(), "xid", pkt.XID)
	return ack, nil
}

// handleInform processes DHCPINFORM -> DHCPACK with configuration only.
func (h *Handler) handleInform(i dhcpv4.Inform) (dhcpv4.Message, error) {
	opts := h.options.Clone()
	opts.Remove(dhcpv4.OptionRenewalTime, dhcpv4.OptionRebindingTime)
	ack, err := i.Ack(dhcpv4.AckParams{
		ServerIP: h.serverIP,
		Message:  h.cfg.Options.Message,
		Options:  opts,
	})
	if err != nil {
		return nil, err
	}
	metrics.Transitions.WithLabelValues("inform_ack").Inc()
	h.logger.Info("DHCPACK", "mac", i.Packet().CHAddr.String(), "ciaddr", i.Packet().CIAddr.String())
	return ack, nil
}

func (h *Handler) replyOptions(hostname string) dhcpv4.Options {
	opts := h.options.Clone()
	if hostname == "" {
		return opts
	}
	if opt, err := dhcpv4.NewOption(dhcpv4.OptionHostname, hostname); err == nil {
		opts.Upsert(opt)
	} else {
		h.logger.Warn("skipping reserved hostname", "hostname", hostname, "error", err)
	}
	return opts
}

func (h *Handler) drop(reason string, pkt *dhcpv4.Packet) {
	metrics.RepliesDropped.WithLabelValues(reason).Inc()
	h.logger.Debug("no reply", append([]any{"reason", reason}, logging.PacketAttrs(pkt)...)...)
}

// replyDestination determines where to send the reply.
// RFC 2131 §4.1: constructing the reply destination.
func replyDestination(request *dhcpv4.Packet, reply dhcpv4.Message) *net.UDPAddr {
	// If relayed, send back to relay agent (giaddr:67)
	if request.IsRelayed() {
		return &net.UDPAddr{
			IP:   request.GIAddr.AsSlice(),
			Port: dhcpv4.ServerPort,
		}
	}

	// A NAK is always broadcast when no relay is involved
	if reply.Type() == dhcpv4.MessageTypeNak || request.IsBroadcast() {
		return &net.UDPAddr{
			IP:   net.IPv4bcast,
			Port: dhcpv4.ClientPort,
		}
	}

	// If client has an IP (renewal or inform), unicast to it
	if request.CIAddr.IsValid() && !request.CIAddr.IsUnspecified() {
		return &net.UDPAddr{
			IP:   request.CIAddr.AsSlice(),
			Port: dhcpv4.ClientPort,
		}
	}

	// Default: broadcast
	return &net.UDPAddr{
		IP:   net.IPv4bcast,
		Port: dhcpv4.ClientPort,
	}
}
