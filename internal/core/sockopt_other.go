//go:build !linux

package core

import "syscall"

// setFwmark is a no-op outside Linux: SO_MARK and policy routing are
// Linux-specific facilities.
func setFwmark(_ uint32) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, _ syscall.RawConn) error { return nil }
}
