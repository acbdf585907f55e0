package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/societyhub/societyhub/internal/roles"
	"github.com/societyhub/societyhub/internal/shared"
)

// Middleware wires permission checks into the HTTP layer.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// Require ensures the current user holds at least one of the listed
// actions. Resolutions tagged with the error source are never trusted.
func (m Middleware) Require(actions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := CurrentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			res := m.Guard.Resolve(r.Context(), userID)
			if res.Source == roles.SourceError {
				if m.Logger != nil {
					m.Logger.Warn("denying request on error-sourced role", slog.Int64("user_id", userID))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			for _, action := range actions {
				if Allows(res.Role, action) {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// CurrentUserID extracts the authenticated user id from the request session.
func CurrentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
