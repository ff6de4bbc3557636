//go:build linux

package core

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setFwmark returns a net.ListenConfig.Control hook that tags the bound
// socket with mark, mirroring WireGuard's fwmark trick: outbound tunnel
// traffic carries the mark so host policy routing can steer it through
// the physical interface even when the default route points back
// through the tunnel, avoiding routing loops.
func setFwmark(mark uint32) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_MARK, int(mark))
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
