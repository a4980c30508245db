package signature

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignThenVerify(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := NewCodec("gateway-secret").WithClock(fixedClock(now))

	ts := now.UnixMilli()
	sig := c.Sign("GET", "/api/catalog/products", ts)

	if len(sig) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Fatalf("expected lowercase hex")
	}
	if !c.Verify(sig, "GET", "/api/catalog/products", ts) {
		t.Fatalf("expected fresh signature to verify")
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := NewCodec("gateway-secret")

	ts := now.UnixMilli()
	sig := c.Sign("GET", "/x", ts)

	// 6 minutes later the byte-correct signature must be rejected.
	late := c.WithClock(fixedClock(now.Add(6 * time.Minute)))
	if late.Verify(sig, "GET", "/x", ts) {
		t.Fatalf("expected stale signature to fail")
	}

	// Just inside the window it still verifies.
	edge := c.WithClock(fixedClock(now.Add(4 * time.Minute)))
	if !edge.Verify(sig, "GET", "/x", ts) {
		t.Fatalf("expected in-window signature to pass")
	}
}

func TestVerifyRejectsMalformedHex(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := NewCodec("s").WithClock(fixedClock(now))

	if c.Verify("not-hex-at-all", "GET", "/x", now.UnixMilli()) {
		t.Fatalf("expected malformed hex to fail")
	}
	if c.Verify("", "GET", "/x", now.UnixMilli()) {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := NewCodec("gateway-secret").WithClock(fixedClock(now))
	other := NewCodec("gateway-secret2").WithClock(fixedClock(now))

	rnd := rand.New(rand.NewSource(42))
	const hexDigits = "0123456789abcdef"

	for i := 0; i < 10000; i++ {
		method := []string{"GET", "POST", "PUT", "DELETE"}[rnd.Intn(4)]
		url := "/api/orders/" + string(hexDigits[rnd.Intn(16)])
		ts := now.UnixMilli() - rnd.Int63n(60_000)

		sig := c.Sign(method, url, ts)

		// Flip one hex digit.
		pos := rnd.Intn(len(sig))
		repl := hexDigits[rnd.Intn(16)]
		for repl == sig[pos] {
			repl = hexDigits[rnd.Intn(16)]
		}
		tampered := sig[:pos] + string(repl) + sig[pos+1:]

		if c.Verify(tampered, method, url, ts) {
			t.Fatalf("tampered signature accepted at trial %d", i)
		}
		if other.Verify(sig, method, url, ts) {
			t.Fatalf("wrong-secret signature accepted at trial %d", i)
		}
	}
}

func TestVerifyBindsMethodAndURL(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	c := NewCodec("s").WithClock(fixedClock(now))

	ts := now.UnixMilli()
	sig := c.Sign("GET", "/a", ts)

	if c.Verify(sig, "POST", "/a", ts) {
		t.Fatalf("signature must be bound to the method")
	}
	if c.Verify(sig, "GET", "/b", ts) {
		t.Fatalf("signature must be bound to the url")
	}
	if c.Verify(sig, "GET", "/a", ts+1) {
		t.Fatalf("signature must be bound to the timestamp")
	}
}
