package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/bootstrap"
	"github.com/societyhub/societyhub/internal/events"
	"github.com/societyhub/societyhub/internal/membership"
	"github.com/societyhub/societyhub/internal/notifications"
	"github.com/societyhub/societyhub/internal/observability"
	"github.com/societyhub/societyhub/internal/payments"
	"github.com/societyhub/societyhub/internal/platform/httpx"
	"github.com/societyhub/societyhub/internal/shared"
	"github.com/societyhub/societyhub/internal/users"
	"github.com/societyhub/societyhub/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	SessionManager       *shared.SessionManager
	Bootstrap            *bootstrap.Middleware
	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	MembershipHandler    *membership.Handler
	EventsHandler        *events.Handler
	PaymentsHandler      *payments.Handler
	NotificationsHandler *notifications.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Bootstrap:      params.Bootstrap,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Who-am-I endpoint for signed-in clients.
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := bootstrap.PrincipalFromContext(r.Context())
		if !ok {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		httpx.JSON(w, http.StatusOK, snap)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.MembershipHandler != nil {
		r.Route("/memberships", params.MembershipHandler.MountRoutes)
	}
	if params.EventsHandler != nil {
		r.Route("/events", params.EventsHandler.MountRoutes)
	}
	if params.PaymentsHandler != nil {
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
	}
	if params.NotificationsHandler != nil {
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
