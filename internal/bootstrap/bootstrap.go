// Package bootstrap derives the authenticated principal for a session:
// it resolves the user's role, persists fallback records after successful
// database resolutions, and fails closed when the role lookup errors.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/societyhub/societyhub/internal/roles"
)

// State tracks the bootstrap lifecycle.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateReady
	// StateSignedOut is terminal: a role-lookup failure forced a sign-out.
	StateSignedOut
)

// ErrRoleLookup reports that the role query failed (not merely that no
// role is assigned). The caller must sign the user out and send them to
// the login screen with the missing-role reason.
var ErrRoleLookup = errors.New("bootstrap: role lookup failed")

// LoginErrorReason is the reason carried to the login route after a
// forced sign-out.
const LoginErrorReason = "missing-role"

// Session identifies the signed-in user as reported by the auth layer.
type Session struct {
	UserID int64
	Email  string
}

// Snapshot is the principal surface published to the rest of the
// application.
type Snapshot struct {
	User    *Session
	Role    roles.Role
	Source  roles.Source
	Loading bool
}

// Provider performs the auth-layer part of a sign-out.
type Provider interface {
	SignOut(ctx context.Context, sess *Session) error
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, sess *Session) error

// SignOut calls f.
func (f ProviderFunc) SignOut(ctx context.Context, sess *Session) error {
	return f(ctx, sess)
}

// Config collects Bootstrapper dependencies.
type Config struct {
	Resolver *roles.Resolver
	Provider Provider
	Logger   *slog.Logger
}

// Bootstrapper runs the session bootstrap procedure.
type Bootstrapper struct {
	resolver *roles.Resolver
	provider Provider
	logger   *slog.Logger
	state    atomic.Int32
}

// New constructs a Bootstrapper in the Idle state.
func New(cfg Config) *Bootstrapper {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bootstrapper{resolver: cfg.Resolver, provider: cfg.Provider, logger: logger}
}

// State reports the current lifecycle state.
func (b *Bootstrapper) State() State {
	return State(b.state.Load())
}

// Bootstrap resolves the principal for sess. A nil session yields an
// anonymous Ready snapshot. A role query failure returns ErrRoleLookup;
// a missing role assignment does not.
func (b *Bootstrapper) Bootstrap(ctx context.Context, sess *Session) (Snapshot, error) {
	b.state.Store(int32(StateLoading))

	if sess == nil {
		b.state.Store(int32(StateReady))
		return Snapshot{User: nil, Role: roles.RoleNone, Loading: false}, nil
	}

	res, err := b.resolver.ResolveStrict(ctx, sess.UserID)
	if err != nil {
		b.logger.Error("session bootstrap role lookup",
			slog.Int64("user_id", sess.UserID), slog.Any("error", err))
		return Snapshot{}, fmt.Errorf("%w: %v", ErrRoleLookup, err)
	}

	if res.Source == roles.SourceDatabase && !res.FromCache && res.HasRole() {
		if local := b.resolver.Local(); local != nil {
			if err := local.Save(ctx, sess.UserID, res.Role); err != nil {
				b.logger.Warn("persist fallback record",
					slog.Int64("user_id", sess.UserID), slog.Any("error", err))
			}
		}
	}

	b.state.Store(int32(StateReady))
	return Snapshot{User: sess, Role: res.Role, Source: res.Source, Loading: false}, nil
}

// SignOut runs the full cleanup path: clear every role cache, then the
// provider sign-out. When the full path fails the provider sign-out is
// still attempted directly. The state ends terminal SignedOut either way;
// the caller is responsible for navigating to the login route.
func (b *Bootstrapper) SignOut(ctx context.Context, sess *Session) {
	defer b.state.Store(int32(StateSignedOut))
	if err := b.fullSignOut(ctx, sess); err != nil {
		b.logger.Warn("full sign-out failed, falling back to provider sign-out", slog.Any("error", err))
		if b.provider != nil {
			if err := b.provider.SignOut(ctx, sess); err != nil {
				b.logger.Error("provider sign-out", slog.Any("error", err))
			}
		}
	}
}

func (b *Bootstrapper) fullSignOut(ctx context.Context, sess *Session) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("bootstrap: sign-out panicked: %v", rec)
		}
	}()
	b.resolver.ClearAll(ctx)
	if b.provider != nil {
		return b.provider.SignOut(ctx, sess)
	}
	return nil
}
