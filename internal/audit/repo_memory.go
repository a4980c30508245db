package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps security events in process memory. It backs tests and
// local runs of a service without a DB; rejected requests can still be
// inspected, they just do not survive a restart.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a snapshot of everything appended so far, oldest first.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
