package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// MaxAge is how long a gateway signature stays acceptable.
// Verification rejects anything older regardless of cryptographic validity.
const MaxAge = 5 * time.Minute

// Codec signs and verifies gateway-origin proofs over (method, url, timestamp).
// It is a pure function of its inputs plus wall-clock time; the clock is
// injectable so freshness behavior is testable.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the verification clock. Intended for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	out := *c
	out.now = now
	return &out
}

// Sign computes the hex-encoded HMAC-SHA256 of "METHOD:URL:TS".
// tsMillis is Unix milliseconds and travels alongside the signature.
func (c *Codec) Sign(method, url string, tsMillis int64) string {
	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%s:%s:%d", method, url, tsMillis)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a fresh, correct signature for the given
// request line. It fails closed: stale timestamps, malformed hex, and
// mismatched MACs all return false, never an error or panic.
// The comparison is constant-time.
func (c *Codec) Verify(sig, method, url string, tsMillis int64) bool {
	age := c.now().UnixMilli() - tsMillis
	if age > MaxAge.Milliseconds() {
		return false
	}

	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, c.secret)
	fmt.Fprintf(mac, "%s:%s:%d", method, url, tsMillis)
	want := mac.Sum(nil)

	return hmac.Equal(got, want)
}
