package ipallow

import (
	"net/http/httptest"
	"testing"
)

func TestContains_CIDR(t *testing.T) {
	al := Parse([]string{"172.18.0.0/16"})

	if !al.Contains("172.18.5.9") {
		t.Fatalf("expected 172.18.5.9 inside 172.18.0.0/16")
	}
	if al.Contains("172.19.0.1") {
		t.Fatalf("expected 172.19.0.1 outside 172.18.0.0/16")
	}
}

func TestContains_MappedPrefixStripped(t *testing.T) {
	al := Parse([]string{"127.0.0.1"})
	if !al.Contains("::ffff:127.0.0.1") {
		t.Fatalf("expected mapped prefix to be stripped before matching")
	}
}

func TestContains_LocalhostWildcard(t *testing.T) {
	al := Parse([]string{"localhost"})
	if !al.Contains("203.0.113.7") {
		t.Fatalf("localhost entry matches any candidate")
	}
}

func TestContains_LiteralExactMatch(t *testing.T) {
	al := Parse([]string{"10.1.2.3", "::1"})

	if !al.Contains("10.1.2.3") {
		t.Fatalf("expected literal match")
	}
	if !al.Contains("::1") {
		t.Fatalf("expected IPv6 loopback literal match")
	}
	if al.Contains("10.1.2.4") {
		t.Fatalf("expected non-listed literal to fail")
	}
}

func TestContains_MalformedEntriesNeverMatch(t *testing.T) {
	al := Parse([]string{"10.0.0.0/notanumber", "300.1.1.1/8", "10.0.0.0/40", ""})

	if al.Contains("10.1.2.3") {
		t.Fatalf("malformed CIDR entries must not match")
	}
}

func TestContains_NonIPv4CandidateOnlyMatchesLiterals(t *testing.T) {
	al := Parse([]string{"10.0.0.0/8"})
	if al.Contains("fe80::1") {
		t.Fatalf("IPv6 candidate cannot match an IPv4 CIDR")
	}
}

func TestContains_WideAndNarrowPrefixes(t *testing.T) {
	al := Parse([]string{"10.0.0.0/8"})
	if !al.Contains("10.255.0.9") {
		t.Fatalf("expected /8 to cover the whole 10.x space")
	}

	host := Parse([]string{"192.168.1.10/32"})
	if !host.Contains("192.168.1.10") {
		t.Fatalf("expected /32 to match the exact host")
	}
	if host.Contains("192.168.1.11") {
		t.Fatalf("expected /32 to reject neighbors")
	}
}

func TestClientIP_HeaderPreference(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:41234"

	if got := ClientIP(r); got != "10.0.0.9" {
		t.Fatalf("expected peer address fallback, got %q", got)
	}

	r.Header.Set("X-Real-Ip", "172.18.0.2")
	if got := ClientIP(r); got != "172.18.0.2" {
		t.Fatalf("expected x-real-ip, got %q", got)
	}

	r.Header.Set("X-Forwarded-For", "::ffff:203.0.113.50, 172.18.0.2")
	if got := ClientIP(r); got != "203.0.113.50" {
		t.Fatalf("expected first forwarded entry without mapped prefix, got %q", got)
	}
}
