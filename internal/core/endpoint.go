package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// Idle timeout and client keep-alive period, fixed per spec section 5.
const (
	IdleTimeout     = 120 * time.Second
	ClientKeepAlive = 15 * time.Second
)

func bindUDP(addr string, fwmark *uint32) (*net.UDPConn, error) {
	lc := net.ListenConfig{}
	if fwmark != nil {
		lc.Control = setFwmark(*fwmark)
	}
	pc, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind udp socket %s: %w", addr, err)
	}
	udpConn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("bind udp socket %s: not a UDP socket", addr)
	}
	return udpConn, nil
}

func quicConfig(keepAlive time.Duration) *quic.Config {
	return &quic.Config{
		EnableDatagrams: true,
		MaxIdleTimeout:  IdleTimeout,
		KeepAlivePeriod: keepAlive,
	}
}

// ServerEndpoint binds a UDP socket on addr, optionally tagging it with
// fwmark, and hands it to the QUIC stack as a listening endpoint with
// the unreliable DATAGRAM extension enabled.
func ServerEndpoint(addr string, fwmark *uint32, tlsConf *tls.Config) (*quic.Listener, error) {
	udpConn, err := bindUDP(addr, fwmark)
	if err != nil {
		return nil, err
	}
	tr := &quic.Transport{Conn: udpConn}
	ln, err := tr.Listen(tlsConf, quicConfig(0))
	if err != nil {
		udpConn.Close()
		return nil, fmt.Errorf("listen quic on %s: %w", addr, err)
	}
	return ln, nil
}

// ClientEndpoint binds an ephemeral UDP socket, optionally tagging it
// with fwmark, and returns a QUIC transport ready to dial the server.
func ClientEndpoint(fwmark *uint32) (*quic.Transport, error) {
	udpConn, err := bindUDP("[::]:0", fwmark)
	if err != nil {
		return nil, err
	}
	return &quic.Transport{Conn: udpConn}, nil
}

// Dial connects to remote over tr, presenting host as the TLS server
// name, with DATAGRAM support enabled and the client keep-alive
// interval configured.
func Dial(ctx context.Context, tr *quic.Transport, remote net.Addr, host string, tlsConf *tls.Config) (*quic.Conn, error) {
	conf := tlsConf.Clone()
	if host != "" {
		conf.ServerName = host
	}
	conn, err := tr.Dial(ctx, remote, conf, quicConfig(ClientKeepAlive))
	if err != nil {
		return nil, &ConnError{Op: "dial", Err: err}
	}
	return conn, nil
}
