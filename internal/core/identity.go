package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// PeerIdentity is the primary key of a peer record: the ordered
// certificate chain presented during the TLS handshake, reduced to a
// fixed-size comparable value.
//
// The spec requires byte-wise identical chains, in order, to compare
// equal - "do not hash by subject or public key alone". Hashing the
// length-prefixed concatenation of the raw DER bytes preserves that:
// two chains hash identically only if they have the same length and
// byte-identical certificates in the same order.
type PeerIdentity [sha256.Size]byte

// IdentityFromChain builds a PeerIdentity from an ordered chain of raw
// (DER-encoded) certificates, as returned by
// tls.ConnectionState.PeerCertificates[i].Raw.
func IdentityFromChain(chain [][]byte) PeerIdentity {
	h := sha256.New()
	var lenBuf [4]byte
	for _, cert := range chain {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(cert)))
		h.Write(lenBuf[:])
		h.Write(cert)
	}
	var id PeerIdentity
	copy(id[:], h.Sum(nil))
	return id
}

func (id PeerIdentity) String() string {
	return hex.EncodeToString(id[:8])
}
