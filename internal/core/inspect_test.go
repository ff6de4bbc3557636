package core

import (
	"net/netip"
	"testing"
)

func ipv4Packet(dst netip.Addr) []byte {
	pkt := make([]byte, ipv4MinHeaderSize)
	pkt[0] = 0x45
	b := dst.As4()
	copy(pkt[ipv4DstOffset:], b[:])
	return pkt
}

func ipv6Packet(dst netip.Addr) []byte {
	pkt := make([]byte, ipv6MinHeaderSize)
	pkt[0] = 0x60
	b := dst.As16()
	copy(pkt[ipv6DstOffset:], b[:])
	return pkt
}

func TestDstAddrIPv4(t *testing.T) {
	want := netip.MustParseAddr("10.10.0.7")
	got, ok := DstAddr(ipv4Packet(want))
	if !ok {
		t.Fatal("DstAddr returned false for a well-formed IPv4 packet")
	}
	if got != want {
		t.Fatalf("DstAddr = %s, want %s", got, want)
	}
}

func TestDstAddrIPv6(t *testing.T) {
	want := netip.MustParseAddr("fd00::7")
	got, ok := DstAddr(ipv6Packet(want))
	if !ok {
		t.Fatal("DstAddr returned false for a well-formed IPv6 packet")
	}
	if got != want {
		t.Fatalf("DstAddr = %s, want %s", got, want)
	}
}

func TestDstAddrEmptyPacket(t *testing.T) {
	if _, ok := DstAddr(nil); ok {
		t.Fatal("DstAddr should reject an empty packet")
	}
}

func TestDstAddrTruncatedIPv4(t *testing.T) {
	pkt := ipv4Packet(netip.MustParseAddr("10.0.0.1"))[:ipv4MinHeaderSize-1]
	if _, ok := DstAddr(pkt); ok {
		t.Fatal("DstAddr should reject a truncated IPv4 header")
	}
}

func TestDstAddrTruncatedIPv6(t *testing.T) {
	pkt := ipv6Packet(netip.MustParseAddr("fd00::1"))[:ipv6MinHeaderSize-1]
	if _, ok := DstAddr(pkt); ok {
		t.Fatal("DstAddr should reject a truncated IPv6 header")
	}
}

func TestDstAddrUnknownVersion(t *testing.T) {
	pkt := make([]byte, ipv4MinHeaderSize)
	pkt[0] = 0x00
	if _, ok := DstAddr(pkt); ok {
		t.Fatal("DstAddr should reject an unrecognized IP version nibble")
	}
}
