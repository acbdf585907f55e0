package users

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/societyhub/societyhub/internal/roles"
	"github.com/societyhub/societyhub/internal/shared"
)

// Service wraps profile management rules.
type Service struct {
	repo     *Repository
	resolver *roles.Resolver
	audit    *shared.AuditLogger
}

// NewService constructs a Service. audit may be nil.
func NewService(repo *Repository, resolver *roles.Resolver, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, resolver: resolver, audit: audit}
}

// Create registers a new profile with an optional role assignment.
func (s *Service) Create(ctx context.Context, email, name, password string, role *roles.Role, studentNo string) (*Profile, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var roleValue *string
	if role != nil {
		value := string(*role)
		roleValue = &value
	}
	id, err := s.repo.Create(ctx, CreateInput{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Role:         roleValue,
		StudentNo:    strings.TrimSpace(studentNo),
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get fetches one profile.
func (s *Service) Get(ctx context.Context, id int64) (*Profile, error) {
	return s.repo.Get(ctx, id)
}

// List returns all profiles.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// ListActiveIDs returns the ids of every active profile.
func (s *Service) ListActiveIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListActiveIDs(ctx)
}

// AssignRole changes a profile's role. Cached resolutions for the user are
// invalidated so the change takes effect on the next request.
func (s *Service) AssignRole(ctx context.Context, actorID, id int64, role roles.Role) error {
	value := string(role)
	if err := s.repo.SetRole(ctx, id, &value); err != nil {
		return err
	}
	s.resolver.ClearUser(ctx, id)
	s.recordAudit(ctx, actorID, "user.assign_role", id, map[string]any{"role": role})
	return nil
}

// Deactivate disables a profile and drops its cached role.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.resolver.ClearUser(ctx, id)
	s.recordAudit(ctx, actorID, "user.deactivate", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "profile",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
