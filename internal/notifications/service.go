package notifications

import (
	"context"
	"log/slog"

	"github.com/societyhub/societyhub/internal/users"
)

// EmailEnqueuer queues a transactional email for background delivery.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, to, subject, body string) error
}

// Directory looks up member profiles for delivery addressing.
type Directory interface {
	Get(ctx context.Context, id int64) (*users.Profile, error)
	ListActiveIDs(ctx context.Context) ([]int64, error)
}

// Service stores notifications and fans them out: inbox row, change-feed
// announcement, background email. The row insert is the primary write;
// feed and email failures are logged and swallowed.
type Service struct {
	repo      *Repository
	feed      *Feed
	mail      EmailEnqueuer
	directory Directory
	logger    *slog.Logger
}

// NewService constructs a Service. feed and mail may be nil in tests.
func NewService(repo *Repository, feed *Feed, mail EmailEnqueuer, directory Directory, logger *slog.Logger) *Service {
	return &Service{repo: repo, feed: feed, mail: mail, directory: directory, logger: logger}
}

// Notify delivers one notification to one member.
func (s *Service) Notify(ctx context.Context, userID int64, title, body string) error {
	if _, err := s.repo.Insert(ctx, userID, title, body); err != nil {
		return err
	}
	s.announce(ctx, userID)
	s.email(ctx, userID, title, body)
	return nil
}

// Broadcast delivers a notification to every active member.
func (s *Service) Broadcast(ctx context.Context, title, body string) (int, error) {
	ids, err := s.directory.ListActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, id := range ids {
		if err := s.Notify(ctx, id, title, body); err != nil {
			s.logger.Warn("broadcast delivery failed", slog.Int64("user_id", id), slog.Any("error", err))
			continue
		}
		delivered++
	}
	return delivered, nil
}

// ListFor returns a member's notifications.
func (s *Service) ListFor(ctx context.Context, userID int64) ([]Notification, error) {
	return s.repo.ListFor(ctx, userID)
}

// MarkRead flags a notification as read.
func (s *Service) MarkRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) announce(ctx context.Context, userID int64) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, userID); err != nil {
		s.logger.Warn("feed publish failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) email(ctx context.Context, userID int64, title, body string) {
	if s.mail == nil || s.directory == nil {
		return
	}
	profile, err := s.directory.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("notification address lookup failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	if err := s.mail.EnqueueSendEmail(ctx, profile.Email, title, body); err != nil {
		s.logger.Warn("notification email enqueue failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}
