package core

import "net/netip"

const (
	ipv4MinHeaderSize = 20
	ipv4DstOffset     = 16
	ipv4AddrSize      = 4

	ipv6MinHeaderSize = 40
	ipv6DstOffset     = 24
	ipv6AddrSize      = 16
)

// DstAddr extracts the destination address of an IPv4 or IPv6 packet.
// It does not validate header checksum, options or length fields beyond
// the minimum size check - it is a parser, not a filter. Malformed
// packets that still satisfy the minimum size are still reported.
func DstAddr(packet []byte) (netip.Addr, bool) {
	if len(packet) == 0 {
		return netip.Addr{}, false
	}

	switch packet[0] >> 4 {
	case 4:
		if len(packet) < ipv4MinHeaderSize {
			return netip.Addr{}, false
		}
		var b [ipv4AddrSize]byte
		copy(b[:], packet[ipv4DstOffset:ipv4DstOffset+ipv4AddrSize])
		return netip.AddrFrom4(b), true
	case 6:
		if len(packet) < ipv6MinHeaderSize {
			return netip.Addr{}, false
		}
		var b [ipv6AddrSize]byte
		copy(b[:], packet[ipv6DstOffset:ipv6DstOffset+ipv6AddrSize])
		return netip.AddrFrom16(b), true
	default:
		return netip.Addr{}, false
	}
}
