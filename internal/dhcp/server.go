package dhcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/athena-dhcpd/dhcpwire/internal/metrics"
	"github.com/athena-dhcpd/dhcpwire/pkg/dhcpv4"
)

var packetPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, dhcpv4.MaxPacketSize)
	},
}

// GetBuffer returns a receive buffer from the pool.
func GetBuffer() []byte {
	return packetPool.Get().([]byte)
}

// PutBuffer returns a buffer to the pool.
func PutBuffer(b []byte) {
	clear(b)
	packetPool.Put(b[:cap(b)])
}

// packetWriter is the send half of an ipv4.PacketConn.
type packetWriter interface {
	WriteTo(b []byte, cm *ipv4.ControlMessage, dst net.Addr) (int, error)
}

// Server is the DHCPv4 UDP server.
type Server struct {
	handler *Handler
	logger  *slog.Logger
	addr    string
	iface   string
	ifIndex int
	wg      sync.WaitGroup
}

// NewServer creates a new DHCP server. An empty addr listens on :67; an
// empty iface accepts packets from every interface.
func NewServer(handler *Handler, iface, addr string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = fmt.Sprintf(":%d", dhcpv4.ServerPort)
	}
	return &Server{
		handler: handler,
		logger:  logger,
		addr:    addr,
		iface:   iface,
	}
}

// ListenAndServe opens the UDP socket and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.iface != "" {
		ifi, err := net.InterfaceByName(s.iface)
		if err != nil {
			return fmt.Errorf("looking up interface %s: %w", s.iface, err)
		}
		s.ifIndex = ifi.Index
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, pc)
}

// Serve reads datagrams from pc until ctx is cancelled. pc is closed on
// return.
func (s *Server) Serve(ctx context.Context, pc net.PacketConn) error {
	conn := ipv4.NewPacketConn(pc)
	defer conn.Close()
	if err := conn.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		return fmt.Errorf("enabling interface control messages: %w", err)
	}

	s.logger.Info("DHCP server started",
		"address", pc.LocalAddr().String(),
		"interface", s.iface)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var backoff readBackoff
	for {
		buf := GetBuffer()
		n, cm, src, err := conn.ReadFrom(buf)
		if err != nil {
			PutBuffer(buf)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.logger.Info("DHCP server stopped")
				return nil
			}
			delay := backoff.next()
			s.logger.Error("reading UDP packet", "error", err, "retry_in", delay)
			sleepContext(ctx, delay)
			continue
		}
		backoff.reset()

		ifIndex := 0
		if cm != nil {
			ifIndex = cm.IfIndex
		}
		if s.ifIndex != 0 && ifIndex != 0 && ifIndex != s.ifIndex {
			PutBuffer(buf)
			continue
		}

		// Process packet in a goroutine to not block the listener
		s.wg.Add(1)
		go func(data []byte, length int, addr net.Addr) {
			defer s.wg.Done()
			defer PutBuffer(data)

			s.processPacket(ctx, conn, data[:length], addr, ifIndex)
		}(buf, n, src)
	}
}

const (
	minReadBackoff = 5 * time.Millisecond
	maxReadBackoff = time.Second
)

// readBackoff doubles the pause after each consecutive read error, up to
// maxReadBackoff.
type readBackoff struct {
	delay time.Duration
}

func (b *readBackoff) next() time.Duration {
	if b.delay == 0 {
		b.delay = minReadBackoff
	} else {
		b.delay = min(2*b.delay, maxReadBackoff)
	}
	return b.delay
}

func (b *readBackoff) reset() {
	b.delay = 0
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// processPacket handles a single DHCP datagram.
func (s *Server) processPacket(ctx context.Context, w packetWriter, data []byte, src net.Addr, ifIndex int) {
	start := time.Now()
	pkt, err := dhcpv4.DecodePacket(data)
	metrics.ObserveDecode(pkt, err)
	if err != nil {
		s.logger.Warn("dropping malformed packet",
			"error", err,
			"class", dhcpv4.ErrorClass(err),
			"src", src.String(),
			"size", len(data))
		return
	}

	msgType := pkt.MessageType().String()
	mac := pkt.CHAddr.String()
	reply, err := s.handler.Handle(ctx, pkt)
	metrics.PacketProcessingDuration.WithLabelValues(msgType).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("handling DHCP packet",
			"error", err,
			"mac", mac,
			"msg_type", msgType)
		return
	}
	if reply == nil {
		return
	}

	cm := &ipv4.ControlMessage{IfIndex: ifIndex}
	for _, b := range reply.Datagrams {
		if _, err := w.WriteTo(b, cm, reply.Dst); err != nil {
			s.logger.Error("sending reply",
				"error", err,
				"dst", reply.Dst.String(),
				"mac", mac)
			return
		}
	}
	s.logger.Debug("reply sent",
		"msg_type", reply.Message.Type().String(),
		"dst", reply.Dst.String(),
		"copies", len(reply.Datagrams))
}
