package ipallow

import (
	"strconv"
	"strings"
)

// AllowList is the set of sources permitted to reach a microservice directly.
// It is parsed once at process start and read-only afterwards, so concurrent
// use needs no locking.
//
// Entries are either literal addresses/hosts (exact match; the literal
// "localhost" matches any candidate) or IPv4 CIDR blocks like "172.18.0.0/16".
// IPv6 ranges are NOT supported: the surrounding network topology (container
// and cluster subnets) is IPv4, and matching deliberately stays IPv4-only.
type AllowList struct {
	literals []string
	cidrs    []cidrBlock
}

type cidrBlock struct {
	network uint32
	mask    uint32
}

// Parse builds an AllowList from config entries. Malformed CIDR entries are
// dropped rather than failing startup; they can never match anyway.
func Parse(entries []string) *AllowList {
	al := &AllowList{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			if b, ok := parseCIDR(e); ok {
				al.cidrs = append(al.cidrs, b)
			}
			continue
		}
		al.literals = append(al.literals, e)
	}
	return al
}

// ParseCSV builds an AllowList from a comma-separated config value.
func ParseCSV(s string) *AllowList {
	return Parse(strings.Split(s, ","))
}

// Contains reports whether ip is allow-listed. IPv4-mapped IPv6 candidates
// ("::ffff:1.2.3.4") are normalized first. Unparseable candidates only ever
// match literal entries.
func (al *AllowList) Contains(ip string) bool {
	ip = StripMappedPrefix(ip)

	for _, lit := range al.literals {
		if lit == "localhost" || lit == ip {
			return true
		}
	}

	n, ok := parseIPv4(ip)
	if !ok {
		return false
	}
	for _, b := range al.cidrs {
		if n&b.mask == b.network&b.mask {
			return true
		}
	}
	return false
}

// StripMappedPrefix removes the IPv4-mapped IPv6 prefix if present.
func StripMappedPrefix(ip string) string {
	return strings.TrimPrefix(ip, "::ffff:")
}

func parseCIDR(s string) (cidrBlock, bool) {
	network, prefix, ok := strings.Cut(s, "/")
	if !ok {
		return cidrBlock{}, false
	}
	n, ok := parseIPv4(network)
	if !ok {
		return cidrBlock{}, false
	}
	bits, err := strconv.Atoi(prefix)
	if err != nil || bits < 0 || bits > 32 {
		return cidrBlock{}, false
	}
	var mask uint32
	if bits > 0 {
		mask = ^uint32(0) << (32 - bits)
	}
	return cidrBlock{network: n, mask: mask}, true
}

func parseIPv4(s string) (uint32, bool) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, false
	}
	var n uint32
	for _, p := range parts {
		octet, err := strconv.Atoi(p)
		if err != nil || octet < 0 || octet > 255 {
			return 0, false
		}
		n = n<<8 | uint32(octet)
	}
	return n, true
}
