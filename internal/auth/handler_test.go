package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/societyhub/societyhub/internal/auth"
	"github.com/societyhub/societyhub/internal/shared"
	_ "github.com/societyhub/societyhub/internal/testing/guard"
)

type stubRepo struct {
	user     *auth.User
	sessions int
	deleted  int
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions++
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.deleted++
	return nil
}

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *auth.Hub) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	hub := auth.NewHub()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo, hub), sessions)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return r, hub
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 42, Email: "member@example.com", Name: "Member", PasswordHash: string(hash), IsActive: true}
}

func TestLoginSuccessPublishesSignIn(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	router, hub := newAuthRouter(t, repo)

	events, cancel := hub.Subscribe()
	defer cancel()

	body := strings.NewReader(`{"email":"member@example.com","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"user_id":42`)
	require.Equal(t, 1, repo.sessions)

	select {
	case event := <-events:
		require.Equal(t, auth.EventSignedIn, event.Kind)
		require.Equal(t, int64(42), event.UserID)
	case <-time.After(time.Second):
		t.Fatalf("expected a signed-in event")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	router, _ := newAuthRouter(t, repo)

	body := strings.NewReader(`{"email":"member@example.com","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Zero(t, repo.sessions)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	router, _ := newAuthRouter(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"member@example.com","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestShowLoginEchoesForcedSignOutReason(t *testing.T) {
	router, _ := newAuthRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/login?error=missing-role", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"error":"missing-role"`)
}
