package audit

import "time"

// Event is an immutable, append-only security log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Capture is best-effort; admission decisions never block on audit failures.
//
// Storage recommendation (Postgres):
// - Table security_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates which trust-boundary check rejected the request.
	Type EventType `json:"type" db:"type"`

	// Service is the microservice whose ingress gate produced the event.
	Service string `json:"service,omitempty" db:"service"`

	// IPAddress is the resolved client IP at the time of rejection.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	Method string `json:"method,omitempty" db:"method"`
	Path   string `json:"path,omitempty" db:"path"`

	// RequestID correlates the event with gateway logs.
	RequestID string `json:"request_id,omitempty" db:"request_id"`

	// Actor fields are populated only when a token was presented and decoded
	// far enough to know who the caller claimed to be.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAccessDenied     EventType = "access_denied"
	EventTypeInvalidSignature EventType = "invalid_signature"
	EventTypeInvalidToken     EventType = "invalid_token"
	EventTypeInsufficientRole EventType = "insufficient_permissions"
)
