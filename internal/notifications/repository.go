package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the notification does not exist.
var ErrNotFound = errors.New("notifications: not found")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a notification and returns its id.
func (r *Repository) Insert(ctx context.Context, userID int64, title, body string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (user_id, title, body, read, created_at)
VALUES ($1, $2, $3, FALSE, $4) RETURNING id`,
		userID, title, body, time.Now().UTC()).Scan(&id)
	return id, err
}

// ListFor returns a user's notifications, newest first.
func (r *Repository) ListFor(ctx context.Context, userID int64) ([]Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, body, read, created_at FROM notifications
WHERE user_id = $1 ORDER BY created_at DESC LIMIT 100`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead flags one notification as read, scoped to its owner.
func (r *Repository) MarkRead(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
