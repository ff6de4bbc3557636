// Package hostrt applies and reverses the host-side policy routing a
// vqn node needs so that tunneled traffic does not loop back out
// through the tunnel itself: a dedicated routing table carrying one
// route per allowed IP, and two `ip rule` entries that send everything
// except fwmark-tagged (i.e. vqn's own QUIC) traffic through it.
package hostrt

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"strconv"

	"github.com/vqn-io/vqn/internal/vqnlog"
)

// Table is the routing table vqn installs its routes into. It matches
// the fwmark value so a single sysctl-free config covers both.
const Table = 19988

// AssignAddress sets tun's local address and brings the link up. It
// runs before Up, mirroring the order the original CLI configures a
// freshly created TUN device in.
func AssignAddress(ctx context.Context, tun string, addr netip.Prefix) error {
	ipv := "-4"
	if addr.Addr().Is6() {
		ipv = "-6"
	}
	if err := run(ctx, "ip", ipv, "addr", "add", addr.String(), "dev", tun); err != nil {
		return err
	}
	return run(ctx, "ip", "link", "set", tun, "up")
}

// Up installs the allowed-IP routes for tun into Table, then layers the
// two `ip rule` entries that divert all non-fwmarked traffic through
// it, and points tun's resolver at resolver (skipped if empty).
func Up(ctx context.Context, tun string, fwmark uint32, allowedIPs []netip.Prefix, resolver string) error {
	for _, p := range allowedIPs {
		if err := routeAllowedIP(ctx, "add", tun, p); err != nil {
			return err
		}
	}

	for _, ipv := range []string{"-4", "-6"} {
		if err := run(ctx, "ip", ipv, "rule", "add", "not", "fwmark", fmtMark(fwmark), "table", fmtTable()); err != nil {
			return err
		}
		if err := run(ctx, "ip", ipv, "rule", "add", "table", "main", "suppress_prefixlength", "0"); err != nil {
			return err
		}
	}

	if resolver != "" {
		if err := run(ctx, "resolvectl", "dns", tun, resolver); err != nil {
			return err
		}
	}
	return nil
}

// Down reverses exactly what Up installed for tun: the per-allowed-IP
// routes first, then the two `ip rule` entries per address family. It
// does not rely on the TUN device's own teardown to flush the routing
// table - cmd/vqn may exit before the device is destroyed - so routes
// are deleted explicitly, taking tun and allowedIPs from the persisted
// host state rather than a freshly re-read config, so an edit to the
// config file between startup and shutdown can't leave stale rules or
// routes behind.
func Down(ctx context.Context, tun string, fwmark uint32, allowedIPs []netip.Prefix) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, p := range allowedIPs {
		record(routeAllowedIP(ctx, "delete", tun, p))
	}

	for _, ipv := range []string{"-4", "-6"} {
		record(run(ctx, "ip", ipv, "rule", "delete", "not", "fwmark", fmtMark(fwmark), "table", fmtTable()))
		record(run(ctx, "ip", ipv, "rule", "delete", "table", "main", "suppress_prefixlength", "0"))
	}
	return firstErr
}

func routeAllowedIP(ctx context.Context, action, tun string, p netip.Prefix) error {
	ipv := "-4"
	if p.Addr().Is6() {
		ipv = "-6"
	}
	return run(ctx, "ip", ipv, "route", action, p.String(), "dev", tun, "table", fmtTable())
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		vqnlog.Warnf("%s %v failed: %v (%s)", name, args, err, out)
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

func fmtMark(mark uint32) string {
	return strconv.FormatUint(uint64(mark), 10)
}

func fmtTable() string {
	return strconv.Itoa(Table)
}
