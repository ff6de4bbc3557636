package core

import (
	"net/netip"
	"testing"
)

func TestAllowedIPsLongestPrefixMatch(t *testing.T) {
	var a AllowedIPs[string]
	a.Insert(netip.MustParseAddr("10.0.0.0"), 8, "wide")
	a.Insert(netip.MustParseAddr("10.10.0.0"), 16, "narrow")
	a.Insert(netip.MustParseAddr("10.10.0.5"), 32, "exact")

	cases := []struct {
		addr string
		want string
	}{
		{"10.10.0.5", "exact"},
		{"10.10.0.6", "narrow"},
		{"10.20.0.1", "wide"},
	}
	for _, tc := range cases {
		got, ok := a.LongestMatch(netip.MustParseAddr(tc.addr))
		if !ok {
			t.Fatalf("LongestMatch(%s): no match", tc.addr)
		}
		if got != tc.want {
			t.Errorf("LongestMatch(%s) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

func TestAllowedIPsNoMatch(t *testing.T) {
	var a AllowedIPs[string]
	a.Insert(netip.MustParseAddr("10.0.0.0"), 8, "ten")
	if _, ok := a.LongestMatch(netip.MustParseAddr("192.168.0.1")); ok {
		t.Fatal("expected no match outside any inserted network")
	}
}

func TestAllowedIPsInsertDisplacesExact(t *testing.T) {
	var a AllowedIPs[string]
	old, existed := a.Insert(netip.MustParseAddr("10.0.0.0"), 8, "first")
	if existed {
		t.Fatalf("first insert reported a displaced value: %q", old)
	}
	old, existed = a.Insert(netip.MustParseAddr("10.0.0.0"), 8, "second")
	if !existed || old != "first" {
		t.Fatalf("second insert: got (%q, %v), want (%q, true)", old, existed, "first")
	}
	got, _ := a.LongestMatch(netip.MustParseAddr("10.1.2.3"))
	if got != "second" {
		t.Fatalf("LongestMatch after displacement = %q, want %q", got, "second")
	}
}

func TestAllowedIPsSeparatesFamilies(t *testing.T) {
	var a AllowedIPs[string]
	a.Insert(netip.MustParseAddr("0.0.0.0"), 0, "v4-default")
	a.Insert(netip.MustParseAddr("::"), 0, "v6-default")

	v4, ok := a.LongestMatch(netip.MustParseAddr("8.8.8.8"))
	if !ok || v4 != "v4-default" {
		t.Fatalf("v4 lookup = (%q, %v), want (%q, true)", v4, ok, "v4-default")
	}
	v6, ok := a.LongestMatch(netip.MustParseAddr("2001:db8::1"))
	if !ok || v6 != "v6-default" {
		t.Fatalf("v6 lookup = (%q, %v), want (%q, true)", v6, ok, "v6-default")
	}
}

func TestAllowedIPsIterAndExtend(t *testing.T) {
	var a AllowedIPs[string]
	a.Insert(netip.MustParseAddr("10.0.0.0"), 8, "a")
	a.Insert(netip.MustParseAddr("fd00::"), 64, "b")

	entries := a.Iter()
	if len(entries) != 2 {
		t.Fatalf("len(Iter()) = %d, want 2", len(entries))
	}

	var b AllowedIPs[string]
	b.Extend(entries)
	got, ok := b.LongestMatch(netip.MustParseAddr("10.1.2.3"))
	if !ok || got != "a" {
		t.Fatalf("after Extend, LongestMatch = (%q, %v), want (%q, true)", got, ok, "a")
	}
}
