package proxy

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRequestID generates a correlation id in the gateway's wire format:
// req_<unix millis>_<9 random base36 chars>.
func NewRequestID() string {
	var b strings.Builder
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return fmt.Sprintf("req_%d_%s", time.Now().UnixMilli(), b.String())
}
