package config

import (
	"fmt"
	"net/netip"
)

// parseIPv4Prefix parses a CIDR and rejects IPv6 and host bits being set.
func parseIPv4Prefix(cidr string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR %q: %w", cidr, err)
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("only IPv4 CIDRs are supported, got %s", cidr)
	}
	if prefix.Masked() != prefix {
		return netip.Prefix{}, fmt.Errorf("CIDR %s has host bits set, did you mean %s?", cidr, prefix.Masked())
	}
	return prefix, nil
}

// CIDRsOverlap reports whether two IPv4 CIDRs share any address.
func CIDRsOverlap(a, b string) (bool, error) {
	pa, err := parseIPv4Prefix(a)
	if err != nil {
		return false, err
	}
	pb, err := parseIPv4Prefix(b)
	if err != nil {
		return false, err
	}
	return pa.Overlaps(pb), nil
}
