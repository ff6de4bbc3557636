package core

import (
	"net/netip"

	"github.com/gaissmai/bart"
)

// AllowedIPs is a longest-prefix-match associative container over IP
// networks. It is the generic trie that both the static permission
// table and the live-routes table are built from (spec: "Separate
// logical namespaces for IPv4 and IPv6").
//
// The underlying storage is github.com/gaissmai/bart's Fast table,
// which already keeps separate v4/v6 roots internally; AllowedIPs stays
// visible about the split at the API level rather than hiding it, since
// callers (the router) need to reason about family-correct lookups.
type AllowedIPs[D any] struct {
	trie bart.Fast[D]
}

// Insert truncates host bits below prefix and records value under the
// given network. It returns the previously displaced value, if the
// exact CIDR was already present.
func (a *AllowedIPs[D]) Insert(ip netip.Addr, prefix int, value D) (D, bool) {
	pfx := netip.PrefixFrom(ip, prefix)
	old, existed := a.trie.Get(pfx)
	a.trie.Insert(pfx, value)
	return old, existed
}

// LongestMatch returns the value for the most specific network
// containing ip, or false if none does.
func (a *AllowedIPs[D]) LongestMatch(ip netip.Addr) (D, bool) {
	return a.trie.Lookup(ip)
}

// Entry is one (value, network) pair yielded by Iter.
type Entry[D any] struct {
	Value  D
	IP     netip.Addr
	Prefix int
}

// Iter returns every (value, ip, prefix) triple currently stored, in no
// particular order.
func (a *AllowedIPs[D]) Iter() []Entry[D] {
	var out []Entry[D]
	for pfx, v := range a.trie.All4() {
		out = append(out, Entry[D]{Value: v, IP: pfx.Addr(), Prefix: pfx.Bits()})
	}
	for pfx, v := range a.trie.All6() {
		out = append(out, Entry[D]{Value: v, IP: pfx.Addr(), Prefix: pfx.Bits()})
	}
	return out
}

// Extend is an insert-all convenience.
func (a *AllowedIPs[D]) Extend(entries []Entry[D]) {
	for _, e := range entries {
		a.Insert(e.IP, e.Prefix, e.Value)
	}
}
