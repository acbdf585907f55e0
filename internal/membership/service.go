package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/societyhub/societyhub/internal/eid"
	"github.com/societyhub/societyhub/internal/shared"
)

// ErrInvalidTier indicates an unknown membership tier.
var ErrInvalidTier = errors.New("membership: invalid tier")

// ErrNotRenewable indicates the membership is outside its renewal window.
var ErrNotRenewable = errors.New("membership: not eligible for renewal")

// ErrNotOwner indicates the membership belongs to another user.
var ErrNotOwner = errors.New("membership: not owned by user")

// Notifier delivers a notification to one member. Implemented by the
// notifications service; failures here never fail the primary action.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

// Service wraps membership lifecycle rules.
type Service struct {
	repo     *Repository
	notifier Notifier
	audit    *shared.AuditLogger
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. audit may be nil for contexts that do
// not record administrator decisions.
func NewService(repo *Repository, notifier Notifier, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, audit: audit, logger: logger, now: time.Now}
}

// Apply creates a pending membership application with its pending payment.
func (s *Service) Apply(ctx context.Context, userID int64, tier Tier) (*Membership, error) {
	if !tier.Valid() {
		return nil, ErrInvalidTier
	}
	return s.repo.CreatePending(ctx, userID, tier, tier.Price())
}

// Approve activates a pending membership: credential, one-year validity
// window, payment settlement. The member notification is best effort; the
// approval reports success once the primary write committed.
func (s *Service) Approve(ctx context.Context, actorID, id int64) (*Membership, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	start := s.now().UTC()
	end := start.AddDate(1, 0, 0)
	credential := eid.Generate(string(current.Tier), start.Year())

	approved, err := s.repo.Activate(ctx, id, credential, start, end)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "membership.approve", id, map[string]any{
		"tier": approved.Tier,
		"eid":  approved.EID,
	})
	s.notify(ctx, approved.UserID, "Membership approved",
		fmt.Sprintf("Your %s membership is active until %s. Your E-ID is %s.",
			approved.Tier, end.Format("2 January 2006"), approved.EID))
	return approved, nil
}

// Reject declines a pending membership.
func (s *Service) Reject(ctx context.Context, actorID, id int64) (*Membership, error) {
	rejected, err := s.repo.Reject(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "membership.reject", id, nil)
	s.notify(ctx, rejected.UserID, "Membership rejected",
		"Your membership application was not approved. Contact the society office for details.")
	return rejected, nil
}

// Renew opens a new pending application for a membership inside its
// renewal window. Expired memberships remain renewable.
func (s *Service) Renew(ctx context.Context, userID, id int64) (*Membership, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, ErrNotOwner
	}
	if !current.EligibleForRenewal(s.now()) {
		return nil, ErrNotRenewable
	}
	return s.repo.CreatePending(ctx, userID, current.Tier, current.Tier.Price())
}

// Current returns the user's latest membership.
func (s *Service) Current(ctx context.Context, userID int64) (*Membership, error) {
	return s.repo.Current(ctx, userID)
}

// HistoryFor returns all memberships of one user.
func (s *Service) HistoryFor(ctx context.Context, userID int64) ([]Membership, error) {
	return s.repo.HistoryFor(ctx, userID)
}

// PendingQueue returns applications awaiting an administrator decision.
func (s *Service) PendingQueue(ctx context.Context) ([]Membership, error) {
	return s.repo.ListByStatus(ctx, StatusPendingApproval)
}

// ExpireDue transitions overdue active memberships to expired and
// notifies each member. Driven by the daily expiry job.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, m := range expired {
		s.notify(ctx, m.UserID, "Membership expired",
			"Your membership has expired. You can renew it from your dashboard.")
	}
	return len(expired), nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "membership",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) notify(ctx context.Context, userID int64, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body); err != nil {
		s.logger.Warn("membership notification failed",
			slog.Int64("user_id", userID), slog.String("title", title), slog.Any("error", err))
	}
}
