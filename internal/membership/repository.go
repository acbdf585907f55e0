package membership

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/societyhub/societyhub/internal/platform/db"
)

// ErrNotFound indicates the membership does not exist.
var ErrNotFound = errors.New("membership: not found")

// ErrAlreadyOpen indicates the user already has a pending or active
// membership.
var ErrAlreadyOpen = errors.New("membership: open membership exists")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const membershipColumns = `id, user_id, tier, status, start_date, end_date, COALESCE(eid, ''), created_at, updated_at`

func scanMembership(row pgx.Row) (*Membership, error) {
	var m Membership
	err := row.Scan(&m.ID, &m.UserID, &m.Tier, &m.Status, &m.StartDate, &m.EndDate, &m.EID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Get fetches one membership by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id))
}

// Current returns the user's most recent membership, or ErrNotFound.
func (r *Repository) Current(ctx context.Context, userID int64) (*Membership, error) {
	return scanMembership(r.pool.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID))
}

// HistoryFor returns every membership of one user, newest first.
func (r *Repository) HistoryFor(ctx context.Context, userID int64) ([]Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByStatus returns memberships filtered by status, oldest first so the
// approval queue is processed in order.
func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Membership, error) {
	defer rows.Close()
	var memberships []Membership
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.Tier, &m.Status, &m.StartDate, &m.EndDate, &m.EID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// CreatePending inserts a pending membership together with its pending
// payment row in one transaction. A partial unique index on open
// memberships rejects a second application.
func (r *Repository) CreatePending(ctx context.Context, userID int64, tier Tier, amount int64) (*Membership, error) {
	now := time.Now().UTC()
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO memberships (user_id, tier, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4) RETURNING id`,
			userID, tier, StatusPendingApproval, now).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_memberships_open" {
				return ErrAlreadyOpen
			}
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO payments (membership_id, user_id, amount, status, created_at, updated_at)
VALUES ($1, $2, $3, 'pending', $4, $4)`,
			id, userID, amount, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Activate marks a pending membership active, assigning its credential and
// validity window, and settles the pending payment — one transaction, so
// an approval is never half applied.
func (r *Repository) Activate(ctx context.Context, id int64, eid string, start, end time.Time) (*Membership, error) {
	now := time.Now().UTC()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE memberships SET status = $2, eid = $3, start_date = $4, end_date = $5, updated_at = $6
WHERE id = $1 AND status = $7`,
			id, StatusActive, eid, start, end, now, StatusPendingApproval)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE payments SET status = 'paid', paid_at = $2, updated_at = $2 WHERE membership_id = $1 AND status = 'pending'`,
			id, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Reject marks a pending membership rejected and voids its pending payment.
func (r *Repository) Reject(ctx context.Context, id int64) (*Membership, error) {
	now := time.Now().UTC()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE memberships SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
			id, StatusRejected, now, StatusPendingApproval)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE payments SET status = 'refunded', updated_at = $2 WHERE membership_id = $1 AND status = 'pending'`,
			id, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// ExpireDue marks active memberships past their end date as expired and
// returns the affected rows.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) ([]Membership, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE memberships SET status = $1, updated_at = $2
WHERE status = $3 AND end_date < $2 RETURNING `+membershipColumns,
		StatusExpired, now.UTC(), StatusActive)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
