package bootstrap

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/societyhub/societyhub/internal/roles"
)

type stubStore struct {
	role  roles.Role
	err   error
	calls int
}

func (s *stubStore) RoleOf(ctx context.Context, userID int64) (roles.Role, error) {
	s.calls++
	return s.role, s.err
}

type recordingProvider struct {
	signOuts int
	err      error
}

func (p *recordingProvider) SignOut(ctx context.Context, sess *Session) error {
	p.signOuts++
	return p.err
}

func newTestBootstrapper(t *testing.T, store roles.ProfileStore, provider Provider) (*Bootstrapper, *roles.FallbackStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	local := roles.NewFallbackStore(client)
	resolver := roles.NewResolver(roles.ResolverConfig{
		Cache: roles.NewCache(),
		Store: store,
		Local: local,
	})
	return New(Config{Resolver: resolver, Provider: provider}), local, mr
}

func TestBootstrapAnonymousSession(t *testing.T) {
	boot, _, _ := newTestBootstrapper(t, &stubStore{}, nil)

	snap, err := boot.Bootstrap(context.Background(), nil)
	if err != nil {
		t.Fatalf("anonymous bootstrap: %v", err)
	}
	if snap.User != nil || snap.Role != roles.RoleNone || snap.Loading {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if boot.State() != StateReady {
		t.Fatalf("expected Ready state, got %d", boot.State())
	}
}

func TestBootstrapPersistsFallbackAfterFreshResolution(t *testing.T) {
	boot, local, _ := newTestBootstrapper(t, &stubStore{role: roles.RoleStaff}, nil)
	ctx := context.Background()

	snap, err := boot.Bootstrap(ctx, &Session{UserID: 21})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if snap.Role != roles.RoleStaff || snap.Source != roles.SourceDatabase {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	role, ok, err := local.Load(ctx, 21)
	if err != nil || !ok || role != roles.RoleStaff {
		t.Fatalf("expected persisted fallback record: role=%q ok=%v err=%v", role, ok, err)
	}
}

func TestBootstrapFailsClosedOnLookupError(t *testing.T) {
	store := &stubStore{err: &roles.LookupError{Kind: roles.KindTimeout}}
	boot, _, _ := newTestBootstrapper(t, store, nil)

	_, err := boot.Bootstrap(context.Background(), &Session{UserID: 3})
	if !errors.Is(err, ErrRoleLookup) {
		t.Fatalf("expected ErrRoleLookup, got %v", err)
	}
}

func TestBootstrapMissingRoleIsNotAFailure(t *testing.T) {
	store := &stubStore{err: &roles.LookupError{Kind: roles.KindNotFound}}
	boot, _, _ := newTestBootstrapper(t, store, nil)

	snap, err := boot.Bootstrap(context.Background(), &Session{UserID: 4})
	if err != nil {
		t.Fatalf("missing role must not fail the bootstrap: %v", err)
	}
	if snap.Role != roles.RoleNone {
		t.Fatalf("expected no role, got %q", snap.Role)
	}
}

func TestSignOutClearsEverythingAndEndsTerminal(t *testing.T) {
	provider := &recordingProvider{}
	boot, local, mr := newTestBootstrapper(t, &stubStore{role: roles.RoleAdmin}, provider)
	ctx := context.Background()

	sess := &Session{UserID: 9}
	if _, err := boot.Bootstrap(ctx, sess); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !mr.Exists("user_role_9") {
		t.Fatalf("expected fallback record before sign-out")
	}

	boot.SignOut(ctx, sess)
	if provider.signOuts != 1 {
		t.Fatalf("expected one provider sign-out, got %d", provider.signOuts)
	}
	if _, ok, _ := local.Load(ctx, 9); ok {
		t.Fatalf("fallback record should be cleared on sign-out")
	}
	if boot.State() != StateSignedOut {
		t.Fatalf("sign-out state is terminal, got %d", boot.State())
	}
}

func TestSignOutFallsBackToProviderOnFailure(t *testing.T) {
	provider := &recordingProvider{err: errors.New("backend down")}
	boot, _, _ := newTestBootstrapper(t, &stubStore{}, provider)

	boot.SignOut(context.Background(), &Session{UserID: 1})
	// The full path fails, the direct provider sign-out is attempted anyway.
	if provider.signOuts != 2 {
		t.Fatalf("expected full-path and direct provider calls, got %d", provider.signOuts)
	}
	if boot.State() != StateSignedOut {
		t.Fatalf("state must end SignedOut even when cleanup fails")
	}
}
