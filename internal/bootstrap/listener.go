package bootstrap

import (
	"context"
	"log/slog"

	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/roles"
)

// Listener re-runs role resolution on every auth-state change: a sign-in
// warms the role cache for the new session's user, a sign-out invalidates
// it. The subscription is released when Run returns.
type Listener struct {
	hub      *auth.Hub
	boot     *Bootstrapper
	resolver *roles.Resolver
	logger   *slog.Logger
}

// NewListener constructs a Listener.
func NewListener(hub *auth.Hub, boot *Bootstrapper, resolver *roles.Resolver, logger *slog.Logger) *Listener {
	return &Listener{hub: hub, boot: boot, resolver: resolver, logger: logger}
}

// Run consumes auth events until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	events, cancel := l.hub.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			l.handle(ctx, event)
		}
	}
}

func (l *Listener) handle(ctx context.Context, event auth.Event) {
	switch event.Kind {
	case auth.EventSignedOut:
		l.resolver.ClearUser(ctx, event.UserID)
	case auth.EventSignedIn, auth.EventRefreshed:
		if _, err := l.boot.Bootstrap(ctx, &Session{UserID: event.UserID}); err != nil {
			l.logger.Warn("warm role cache on auth event",
				slog.Int64("user_id", event.UserID), slog.Any("error", err))
		}
	}
}
