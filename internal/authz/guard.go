package authz

import (
	"context"
	"errors"

	"github.com/societyhub/societyhub/internal/roles"
)

// ErrUnauthorized is returned by Check when the resolved role does not
// grant the requested action.
var ErrUnauthorized = errors.New("unauthorized: insufficient permissions")

// Guard answers permission questions for concrete users by resolving their
// role through the same caching path as the rest of the application.
type Guard struct {
	resolver *roles.Resolver
}

// NewGuard constructs a Guard.
func NewGuard(resolver *roles.Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// HasPermission resolves the user's role and checks action membership.
// Unknown actions and unassigned roles yield false; the resolution chain
// never fails, so neither does this.
func (g *Guard) HasPermission(ctx context.Context, userID int64, action string) bool {
	res := g.resolver.Resolve(ctx, userID)
	return Allows(res.Role, action)
}

// Check returns a predicate that guards a privileged operation: it returns
// ErrUnauthorized when the user's resolved role does not grant action.
func (g *Guard) Check(action string) func(ctx context.Context, userID int64) error {
	return func(ctx context.Context, userID int64) error {
		if !g.HasPermission(ctx, userID, action) {
			return ErrUnauthorized
		}
		return nil
	}
}

// Resolve exposes the underlying resolution so callers can inspect
// provenance before trusting a role for sensitive work.
func (g *Guard) Resolve(ctx context.Context, userID int64) roles.Resolution {
	return g.resolver.Resolve(ctx, userID)
}
