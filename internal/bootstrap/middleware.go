package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/societyhub/societyhub/internal/shared"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the bootstrapped snapshot in context.
func ContextWithPrincipal(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, principalContextKey{}, snap)
}

// PrincipalFromContext extracts the snapshot placed by the middleware.
func PrincipalFromContext(ctx context.Context) (Snapshot, bool) {
	snap, ok := ctx.Value(principalContextKey{}).(Snapshot)
	return snap, ok
}

// Middleware runs the bootstrap procedure for every request carrying a
// signed-in session and publishes the principal on the request context.
// A role-lookup failure destroys the session and redirects to the login
// route with the missing-role reason.
type Middleware struct {
	Boot     *Bootstrapper
	Sessions *shared.SessionManager
	Logger   *slog.Logger
}

// Handler wraps next with principal resolution.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		bootSess := &Session{UserID: userID}
		snap, err := m.Boot.Bootstrap(r.Context(), bootSess)
		if err != nil {
			m.Boot.SignOut(r.Context(), bootSess)
			m.Sessions.Destroy(sess)
			if m.Logger != nil {
				m.Logger.Warn("forced sign-out after role lookup failure", slog.Int64("user_id", userID))
			}
			http.Redirect(w, r, "/auth/login?error="+LoginErrorReason, http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), snap)))
	})
}
