package core

import (
	"context"

	"github.com/quic-go/quic-go"

	"github.com/vqn-io/vqn/internal/vqnlog"
)

// Client owns one TUN adapter and forwards packets to and from a
// single peer connection. There is no router: destination-based
// dispatch is trivial when there is exactly one peer.
type Client struct {
	tun *Iface
}

// NewClient wraps an already-framed TUN adapter.
func NewClient(tun *Iface) *Client {
	return &Client{tun: tun}
}

// Run forwards packets between the TUN and conn until one of them
// fails. It returns a *ConnError or *TunError distinguishing the two
// causes: the caller reconnects on a ConnError and aborts on a
// TunError (spec 4.6). It returns nil once ctx is cancelled.
func (c *Client) Run(ctx context.Context, conn *quic.Conn) error {
	tunPackets := make(chan []byte)
	tunErrs := make(chan error, 1)
	dgrams := make(chan []byte)
	dgramErrs := make(chan error, 1)

	go func() {
		for {
			buf := make([]byte, c.tun.MTU())
			pkt, err := c.tun.ReadPacket(buf)
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

	go func() {
		for {
			dgram, err := conn.ReceiveDatagram(ctx)
			if err != nil {
				dgramErrs <- err
				return
			}
			select {
			case dgrams <- dgram:
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
		case err := <-dgramErrs:
			return &ConnError{Op: "receive", Err: err}
		case pkt := <-tunPackets:
			vqnlog.Tracef("packet size ->: %d", len(pkt))
			if err := conn.SendDatagram(pkt); err != nil {
				if connLost(conn) {
					return &ConnError{Op: "send", Err: err}
				}
				vqnlog.Warnf("dropping packet, non-terminal send error: %v", err)
			}
		case dgram := <-dgrams:
			vqnlog.Tracef("packet size <-: %d", len(dgram))
			if err := c.tun.WritePacket(dgram); err != nil {
				return err
			}
		}
	}
}
