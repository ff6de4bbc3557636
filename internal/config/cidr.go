package config

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// Cidr is an (address, prefix-length) pair parsed from the text form
// "<addr>/<prefix>". The address keeps its host bits as written;
// Prefixes truncates them to zero.
type Cidr struct {
	Addr   netip.Addr
	Prefix int
}

// ParseCidr parses the text form of a CIDR, validating that the prefix
// length does not exceed the address family's bit width.
func ParseCidr(s string) (Cidr, error) {
	addrStr, prefixStr, ok := strings.Cut(s, "/")
	if !ok {
		return Cidr{}, fmt.Errorf("invalid CIDR format: %q", s)
	}

	addr, err := netip.ParseAddr(addrStr)
	if err != nil {
		return Cidr{}, fmt.Errorf("invalid IP address in %q: %w", s, err)
	}

	prefix, err := strconv.Atoi(prefixStr)
	if err != nil {
		return Cidr{}, fmt.Errorf("invalid prefix length in %q: %w", s, err)
	}

	maxPrefix := 32
	if addr.Is6() && !addr.Is4In6() {
		maxPrefix = 128
	}
	if prefix < 0 || prefix > maxPrefix {
		return Cidr{}, fmt.Errorf("prefix length must be in range 0-%d: %q", maxPrefix, s)
	}

	return Cidr{Addr: addr, Prefix: prefix}, nil
}

func (c Cidr) String() string {
	return fmt.Sprintf("%s/%d", c.Addr, c.Prefix)
}

// Netmask returns the dotted-quad netmask for an IPv4 CIDR's prefix
// length, as used when configuring the TUN device's address.
func (c Cidr) Netmask() [4]byte {
	if c.Prefix >= 32 {
		return [4]byte{255, 255, 255, 255}
	}
	mask := uint32((uint64(1)<<c.Prefix)-1) << (32 - c.Prefix)
	return [4]byte{
		byte(mask >> 24),
		byte(mask >> 16),
		byte(mask >> 8),
		byte(mask),
	}
}

func (c *Cidr) UnmarshalTOML(data any) error {
	s, ok := data.(string)
	if !ok {
		return fmt.Errorf("config: expected string for CIDR, got %T", data)
	}
	parsed, err := ParseCidr(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// AllowedIPs is a comma-separated list of CIDRs, as used in
// "allowed_ips" configuration fields.
type AllowedIPs []Cidr

// ParseAllowedIPs parses a comma-separated list of CIDRs, ignoring
// surrounding whitespace and empty entries.
func ParseAllowedIPs(s string) (AllowedIPs, error) {
	fields := strings.Split(s, ",")
	out := make(AllowedIPs, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		c, err := ParseCidr(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (a AllowedIPs) String() string {
	parts := make([]string, len(a))
	for i, c := range a {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// Prefixes converts the allowed set to netip.Prefix values with host
// bits truncated to zero, the form the router and host routes consume.
func (a AllowedIPs) Prefixes() []netip.Prefix {
	out := make([]netip.Prefix, len(a))
	for i, c := range a {
		out[i] = netip.PrefixFrom(c.Addr, c.Prefix).Masked()
	}
	return out
}

func (a *AllowedIPs) UnmarshalTOML(data any) error {
	s, ok := data.(string)
	if !ok {
		return fmt.Errorf("config: expected string for allowed_ips, got %T", data)
	}
	parsed, err := ParseAllowedIPs(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
