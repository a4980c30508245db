package identity

import "context"

// Identity is the request-scoped authenticated caller, bound only after the
// ingress gate has verified both the gateway signature and the internal
// token. It lives exactly as long as the request; never persist or cache it.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

type ctxKey struct{}

// WithIdentity binds id onto ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the bound identity, if any. Anonymous requests on
// optional-auth routes legitimately have none.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
