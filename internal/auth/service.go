package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/societyhub/societyhub/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
	hub  *Hub
}

// NewService constructs a Service.
func NewService(repo Repository, hub *Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata and announces the sign-in.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if err := s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua); err != nil {
		return err
	}
	s.hub.Publish(Event{Kind: EventSignedIn, UserID: userID})
	return nil
}

// RemoveSession deletes a session record and announces the sign-out.
func (s *Service) RemoveSession(ctx context.Context, id string, userID int64) error {
	err := s.repo.DeleteSession(ctx, id)
	s.hub.Publish(Event{Kind: EventSignedOut, UserID: userID})
	return err
}
