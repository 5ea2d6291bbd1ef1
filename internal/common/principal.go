package common

import (
	"context"
)

// Principal identifies the authenticated caller of a request. A nil
// Principal means the request is anonymous; public portfolios remain
// readable, everything else is gated.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

// IsAdmin returns true when the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}

type contextKey int

const principalKey contextKey = iota

// WithPrincipal stores a Principal in the request context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the Principal from context, or nil when
// the request is anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
