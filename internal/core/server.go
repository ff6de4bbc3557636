package core

import (
	"context"
	"net/netip"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/vqn-io/vqn/internal/vqnlog"
)

// Server owns one TUN adapter, one router and the QUIC endpoint's
// accept loop, routing packets in both directions between them.
type Server struct {
	tun    *Iface
	router *Router
}

// NewServer constructs a server with an empty router.
func NewServer(tun *Iface) *Server {
	return &Server{tun: tun, router: NewRouter()}
}

// AddClient delegates to the router, pre-registering a client's static
// permissions before Run starts accepting connections.
func (s *Server) AddClient(id PeerIdentity, cidrs []netip.Prefix) {
	s.router.AddPeer(id, cidrs)
}

// Run accepts connections on ln and forwards packets until ctx is
// cancelled, a fatal TUN error occurs, or a send fails because the
// destination connection is lost. It returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context, ln *quic.Listener) error {
	peerPackets := make(chan []byte, 32)

	go s.acceptLoop(ctx, ln, peerPackets)

	return s.tunLoop(ctx, peerPackets)
}

// acceptLoop repeatedly awaits new connections. Each spawns a
// per-connection task that registers with the router and forwards
// inbound datagrams into the shared channel until the connection
// closes.
func (s *Server) acceptLoop(ctx context.Context, ln *quic.Listener, peerPackets chan<- []byte) {
	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			vqnlog.Warnf("accept: %v", err)
			return
		}
		go s.handleConn(ctx, conn, peerPackets)
	}
}

func (s *Server) handleConn(ctx context.Context, conn *quic.Conn, peerPackets chan<- []byte) {
	cid := uuid.NewString()
	vqnlog.Infof("conn=%s accepted from %s", cid, conn.RemoteAddr())

	conn = s.router.Connect(conn)
	vqnlog.Debugf("conn=%s routes installed", cid)

	for {
		dgram, err := conn.ReceiveDatagram(ctx)
		if err != nil {
			vqnlog.Infof("conn=%s closed: %v", cid, err)
			return
		}
		select {
		case peerPackets <- dgram:
		case <-ctx.Done():
			return
		}
	}
}

// tunLoop multiplexes the TUN's outbound packets and the shared inbound
// channel in a single select, as spec section 4.5 requires.
func (s *Server) tunLoop(ctx context.Context, peerPackets <-chan []byte) error {
	tunPackets := make(chan []byte)
	tunErrs := make(chan error, 1)

	go func() {
		for {
			buf := make([]byte, s.tun.MTU())
			pkt, err := s.tun.ReadPacket(buf)
			if err != nil {
				tunErrs <- err
				return
			}
			select {
			case tunPackets <- pkt:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-tunErrs:
			return err
		case pkt := <-tunPackets:
			if err := s.forward(pkt); err != nil {
				return err
			}
		case pkt := <-peerPackets:
			if err := s.tun.WritePacket(pkt); err != nil {
				return err
			}
		}
	}
}

// forward looks up the destination of an outbound packet and attempts
// to transmit it as a QUIC datagram. A lost connection is fatal to the
// forwarder (spec 4.5); any other send failure (datagram too large, no
// peer datagram support, queue congestion) just drops the packet.
func (s *Server) forward(pkt []byte) error {
	dst, ok := DstAddr(pkt)
	if !ok {
		vqnlog.Debugf("unknown ip packet")
		return nil
	}

	conn, ok := s.router.Lookup(dst)
	if !ok {
		vqnlog.Debugf("dropping packet, no route for %s", dst)
		return nil
	}

	if err := conn.SendDatagram(pkt); err != nil {
		if connLost(conn) {
			return &ConnError{Op: "send", Err: err}
		}
		vqnlog.Warnf("dropping packet to %s, non-terminal send error: %v", dst, err)
	}
	return nil
}

// connLost reports whether conn's context is already done - the
// version-agnostic signal that the connection, not just this one send,
// has failed.
func connLost(conn *quic.Conn) bool {
	select {
	case <-conn.Context().Done():
		return true
	default:
		return false
	}
}
