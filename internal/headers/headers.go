// Package headers names the HTTP headers that cross the gateway-to-service
// boundary. Both sides must agree on these exactly; matching is
// case-insensitive per HTTP convention.
package headers

const (
	// InternalToken carries the short-lived signed identity claims.
	// Absent when the original caller is unauthenticated.
	InternalToken = "X-Internal-Token"

	// GatewaySignature is the lowercase hex HMAC-SHA256 gateway-origin proof.
	GatewaySignature = "X-Gateway-Signature"

	// GatewayTimestamp is the signing time as decimal Unix milliseconds.
	GatewayTimestamp = "X-Gateway-Timestamp"

	// GatewayService names the target service the gateway routed to.
	GatewayService = "X-Gateway-Service"

	// RequestID correlates a request across gateway and service logs.
	RequestID = "X-Request-Id"
)
