package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrorKind classifies a profile lookup failure. The classification happens
// once at the storage boundary so downstream logic matches on a tag instead
// of inspecting error strings.
type ErrorKind int

const (
	// KindNotFound means the profile record does not exist. This is a
	// legitimate terminal state, not a transient failure.
	KindNotFound ErrorKind = iota + 1
	// KindTimeout means the lookup exceeded its deadline.
	KindTimeout
	// KindOther covers every remaining backend failure.
	KindOther
)

// LookupError is the tagged error returned by ProfileStore implementations.
type LookupError struct {
	Kind ErrorKind
	Err  error
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return "roles: profile not found"
	case KindTimeout:
		return "roles: lookup timed out"
	}
	return fmt.Sprintf("roles: lookup failed: %v", e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// AsLookupError extracts a *LookupError from err when present.
func AsLookupError(err error) (*LookupError, bool) {
	var le *LookupError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// ProfileStore fetches the role assigned to a user profile. Implementations
// must return *LookupError so callers can match on the failure kind.
type ProfileStore interface {
	RoleOf(ctx context.Context, userID int64) (Role, error)
}

// PGStore resolves roles from the profiles table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// RoleOf fetches the role column for one profile. A NULL role column is a
// successful lookup yielding RoleNone.
func (s *PGStore) RoleOf(ctx context.Context, userID int64) (Role, error) {
	var role *string
	err := s.pool.QueryRow(ctx, `SELECT role FROM profiles WHERE user_id = $1`, userID).Scan(&role)
	if err != nil {
		return RoleNone, classify(err)
	}
	if role == nil {
		return RoleNone, nil
	}
	return Role(*role), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return &LookupError{Kind: KindNotFound, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &LookupError{Kind: KindTimeout, Err: err}
	}
	return &LookupError{Kind: KindOther, Err: err}
}
