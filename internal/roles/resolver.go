package roles

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// LookupTimeout bounds the database leg of a resolution.
const LookupTimeout = 3 * time.Second

// ResolverConfig collects dependencies for a Resolver.
type ResolverConfig struct {
	Cache   *Cache
	Store   ProfileStore
	Local   *FallbackStore
	Logger  *slog.Logger
	Timeout time.Duration
	// Observe, when set, is called with the source of every resolution.
	Observe func(Source)
}

// Resolver walks the fallback chain cache -> database -> durable record ->
// default. Concurrent resolutions for the same user are coalesced into one
// database round trip.
type Resolver struct {
	cache   *Cache
	store   ProfileStore
	local   *FallbackStore
	logger  *slog.Logger
	timeout time.Duration
	observe func(Source)
	group   singleflight.Group
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = LookupTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cache:   cfg.Cache,
		store:   cfg.Store,
		local:   cfg.Local,
		logger:  logger,
		timeout: timeout,
		observe: cfg.Observe,
	}
}

// Resolve returns the role for userID. It never returns an error: any
// failure along the chain degrades to the next source and an unexpected
// panic degrades to the default role tagged with SourceError.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (res Resolution) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("role resolution panicked", slog.Int64("user_id", userID), slog.Any("panic", rec))
			res = Resolution{Role: DefaultRole, Source: SourceError, FromCache: false}
		}
		if r.observe != nil {
			r.observe(res.Source)
		}
	}()

	if role, ok := r.cache.Get(userID); ok {
		return Resolution{Role: role, Source: SourceDatabase, FromCache: true}
	}

	role, err := r.fetch(ctx, userID)
	if err == nil {
		r.cache.Put(userID, role)
		return Resolution{Role: role, Source: SourceDatabase, FromCache: false}
	}
	if le, ok := AsLookupError(err); ok && le.Kind == KindNotFound {
		// Legitimate null result: the profile simply does not exist.
		// Do not fall through to the durable record or the default.
		r.cache.Put(userID, RoleNone)
		return Resolution{Role: RoleNone, Source: SourceDatabase, FromCache: false}
	}
	r.logger.Warn("role lookup failed, trying fallback record",
		slog.Int64("user_id", userID), slog.Any("error", err))

	if r.local != nil {
		role, ok, lerr := r.local.Load(ctx, userID)
		if lerr != nil {
			r.logger.Warn("fallback record read failed", slog.Int64("user_id", userID), slog.Any("error", lerr))
		} else if ok {
			return Resolution{Role: role, Source: SourceLocal, FromCache: false}
		}
	}

	r.cache.PutDefault(userID, DefaultRole)
	return Resolution{Role: DefaultRole, Source: SourceDefault, FromCache: false}
}

// ResolveStrict consults only the cache and the database. It reports
// lookup failures to the caller instead of degrading, which is what the
// session bootstrap needs to fail closed. A missing profile is not an
// error: it yields a resolution with no role.
func (r *Resolver) ResolveStrict(ctx context.Context, userID int64) (Resolution, error) {
	if role, ok := r.cache.Get(userID); ok {
		return Resolution{Role: role, Source: SourceDatabase, FromCache: true}, nil
	}
	role, err := r.fetch(ctx, userID)
	if err == nil {
		r.cache.Put(userID, role)
		return Resolution{Role: role, Source: SourceDatabase, FromCache: false}, nil
	}
	if le, ok := AsLookupError(err); ok && le.Kind == KindNotFound {
		r.cache.Put(userID, RoleNone)
		return Resolution{Role: RoleNone, Source: SourceDatabase, FromCache: false}, nil
	}
	return Resolution{}, err
}

// ClearUser drops both the memory entry and the durable record for one user.
func (r *Resolver) ClearUser(ctx context.Context, userID int64) {
	r.cache.Remove(userID)
	if r.local != nil {
		if err := r.local.Clear(ctx, userID); err != nil {
			r.logger.Warn("clear fallback record", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}
}

// ClearAll drops every cached entry and durable record. Used on global
// sign-out.
func (r *Resolver) ClearAll(ctx context.Context) {
	r.cache.Clear()
	if r.local != nil {
		if err := r.local.ClearAll(ctx); err != nil {
			r.logger.Warn("clear fallback records", slog.Any("error", err))
		}
	}
}

// Local exposes the durable record store so the session bootstrap can
// persist records after a successful database resolution.
func (r *Resolver) Local() *FallbackStore {
	return r.local
}

func (r *Resolver) fetch(ctx context.Context, userID int64) (Role, error) {
	result, err, _ := r.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.store.RoleOf(fetchCtx, userID)
	})
	if err != nil {
		return RoleNone, err
	}
	return result.(Role), nil
}
