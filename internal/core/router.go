package core

import (
	"net/netip"
	"sync"
	"weak"

	"github.com/quic-go/quic-go"
)

// Router binds peer identities to their static permissions, and, once a
// peer's connection is live, installs weak references to it in the
// live-routes table so that destination lookups resolve to a
// connection without keeping it alive past its natural lifetime.
//
// add_peer is only ever called during startup, before any connect or
// lookup runs; connect and lookup may then run concurrently from many
// goroutines, guarded by a read/write lock over the live-routes table
// only (never held across I/O).
type Router struct {
	static map[PeerIdentity]*AllowedIPs[struct{}]

	liveMu sync.RWMutex
	live   AllowedIPs[weak.Pointer[quic.Conn]]
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{static: make(map[PeerIdentity]*AllowedIPs[struct{}])}
}

// AddPeer pre-registers a peer's static permissions. Duplicate
// identities merge their permission sets; later CIDRs displace prior
// entries with the identical prefix.
func (r *Router) AddPeer(id PeerIdentity, cidrs []netip.Prefix) {
	perms, ok := r.static[id]
	if !ok {
		perms = &AllowedIPs[struct{}]{}
		r.static[id] = perms
	}
	for _, pfx := range cidrs {
		perms.Insert(pfx.Addr(), pfx.Bits(), struct{}{})
	}
}

// Connect is called once per newly accepted, handshake-complete
// connection. If the peer's certificate chain is unknown, conn is
// returned unchanged with no routes installed - it stays usable but
// unreachable by destination-based forwarding (spec: "permissive
// inbound, strict outbound"). If known, every CIDR in the peer's
// static set is installed as a live route pointing weakly at conn,
// displacing any prior entry for the same prefix.
func (r *Router) Connect(conn *quic.Conn) *quic.Conn {
	chain := conn.ConnectionState().TLS.PeerCertificates
	if len(chain) == 0 {
		return conn
	}
	raw := make([][]byte, len(chain))
	for i, c := range chain {
		raw[i] = c.Raw
	}
	id := IdentityFromChain(raw)

	perms, known := r.static[id]
	if !known {
		return conn
	}

	wp := weak.Make(conn)
	r.liveMu.Lock()
	for _, e := range perms.Iter() {
		r.live.Insert(e.IP, e.Prefix, wp)
	}
	r.liveMu.Unlock()

	return conn
}

// Lookup performs a longest-prefix match on the live-routes table. If
// the matched entry's weak reference is still alive it is returned,
// otherwise stale entries are tolerated and lookup reports absence.
func (r *Router) Lookup(ip netip.Addr) (*quic.Conn, bool) {
	r.liveMu.RLock()
	wp, ok := r.live.LongestMatch(ip)
	r.liveMu.RUnlock()
	if !ok {
		return nil, false
	}
	conn := wp.Value()
	if conn == nil {
		return nil, false
	}
	return conn, true
}
