package core

import (
	"golang.zx2c4.com/wireguard/tun"
)

// tunOffset is the leading scratch space wireguard's tun.Device.Read and
// Write reserve in every packet buffer for transport headers it never
// writes on this code path (there is no virtio-net header here - the
// device is opened in plain IP mode). Zero is correct for our use: the
// packet occupies the buffer from byte 0.
const tunOffset = 0

// Iface wraps a non-blocking TUN device (golang.zx2c4.com/wireguard/tun)
// and exposes the one-packet-per-call contract the forwarders need:
// each Read returns exactly one IP packet, never a partial one, never
// more than one coalesced together.
type Iface struct {
	dev tun.Device
	mtu int
}

// NewIface wraps an already-constructed tun.Device. Construction of the
// device itself (name, address, netmask, up-flag) is the out-of-scope,
// OS-specific factory the orchestration layer (cmd/vqn) owns.
func NewIface(dev tun.Device) (*Iface, error) {
	mtu, err := dev.MTU()
	if err != nil {
		return nil, &TunError{Op: "mtu", Err: err}
	}
	return &Iface{dev: dev, mtu: mtu}, nil
}

// MTU reports the interface MTU.
func (i *Iface) MTU() int {
	return i.mtu
}

// ReadPacket suspends until one packet is available and returns its
// exact bytes. buf must be sized to at least MTU; callers may pool
// buffers across calls. The underlying device reads in batches of up
// to len(bufs) packets per call; a batch of size one keeps the
// one-packet-per-call contract ReadPacket promises while still going
// through the batched Read the pinned library requires.
func (i *Iface) ReadPacket(buf []byte) ([]byte, error) {
	bufs := [][]byte{buf}
	sizes := make([]int, 1)
	for {
		n, err := i.dev.Read(bufs, sizes, tunOffset)
		if err != nil {
			return nil, &TunError{Op: "read", Err: err}
		}
		if n == 0 {
			// spurious wakeup with nothing to deliver; retry
			continue
		}
		return buf[tunOffset : tunOffset+sizes[0]], nil
	}
}

// WritePacket suspends until the kernel accepts pkt, enqueuing it
// atomically as a single-packet batch.
func (i *Iface) WritePacket(pkt []byte) error {
	if _, err := i.dev.Write([][]byte{pkt}, tunOffset); err != nil {
		return &TunError{Op: "write", Err: err}
	}
	return nil
}

// Close releases the interface back to the kernel.
func (i *Iface) Close() error {
	if err := i.dev.Close(); err != nil {
		return &TunError{Op: "close", Err: err}
	}
	return nil
}
