package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/societyhub/societyhub/internal/roles"
)

type staticStore struct {
	role roles.Role
	err  error
}

func (s staticStore) RoleOf(ctx context.Context, userID int64) (roles.Role, error) {
	return s.role, s.err
}

func newGuard(store roles.ProfileStore) *Guard {
	return NewGuard(roles.NewResolver(roles.ResolverConfig{
		Cache: roles.NewCache(),
		Store: store,
	}))
}

func TestGuardChecksResolvedRole(t *testing.T) {
	guard := newGuard(staticStore{role: roles.RoleStudent})
	ctx := context.Background()

	if !guard.HasPermission(ctx, 1, PermViewEID) {
		t.Fatalf("student should view their e-id")
	}
	if guard.HasPermission(ctx, 1, PermCreateUsers) {
		t.Fatalf("student must not create users")
	}

	check := guard.Check(PermCreateUsers)
	if err := check(ctx, 1); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := guard.Check(PermJoinEvents)(ctx, 1); err != nil {
		t.Fatalf("granted action should pass: %v", err)
	}
}

func TestGuardDefaultsToStudentOnBackendFailure(t *testing.T) {
	guard := newGuard(staticStore{err: &roles.LookupError{Kind: roles.KindOther}})
	ctx := context.Background()

	res := guard.Resolve(ctx, 2)
	if res.Source != roles.SourceDefault {
		t.Fatalf("expected default-source resolution, got %+v", res)
	}
	if guard.HasPermission(ctx, 2, PermApproveMemberships) {
		t.Fatalf("degraded resolution must not grant admin actions")
	}
	if !guard.HasPermission(ctx, 2, PermJoinEvents) {
		t.Fatalf("degraded resolution still grants student actions")
	}
}
