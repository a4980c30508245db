package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for security events.
//
// It MUST be append-only. No Update/Delete methods exist.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records trust-boundary rejections for internal ops.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to end users.
// - Callers should treat audit logging as best-effort; a failed append must
//   never change an admission decision.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogRejection records an ingress-gate rejection.
func (s *Service) LogRejection(ctx context.Context, typ EventType, service, ip, method, path, requestID, message string) error {
	return s.Append(ctx, Event{
		Type:      typ,
		Service:   service,
		IPAddress: ip,
		Method:    method,
		Path:      path,
		RequestID: requestID,
		Message:   message,
	})
}

// LogDeniedActor records a rejection where the caller's claimed identity is
// known (role check failures after a token verified).
func (s *Service) LogDeniedActor(ctx context.Context, typ EventType, service, ip, userID, role, requestID, message string) error {
	return s.Append(ctx, Event{
		Type:        typ,
		Service:     service,
		IPAddress:   ip,
		ActorUserID: userID,
		ActorRole:   role,
		RequestID:   requestID,
		Message:     message,
	})
}
