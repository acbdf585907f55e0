package events

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the event or registration does not exist.
var ErrNotFound = errors.New("events: not found")

// ErrAlreadyRegistered indicates a duplicate registration.
var ErrAlreadyRegistered = errors.New("events: already registered")

// ErrFull indicates the event reached capacity.
var ErrFull = errors.New("events: event is full")

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, description, location, starts_at, ends_at, capacity, created_by, created_at, updated_at`

// CreateInput carries the fields for a new event.
type CreateInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      time.Time
	Capacity    int
	CreatedBy   int64
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Event, error) {
	now := time.Now().UTC()
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO events (title, description, location, starts_at, ends_at, capacity, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		input.Title, input.Description, input.Location, input.StartsAt, input.EndsAt,
		input.Capacity, input.CreatedBy, now).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update modifies an existing event.
func (r *Repository) Update(ctx context.Context, id int64, input CreateInput) (*Event, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE events SET title = $2, description = $3, location = $4, starts_at = $5, ends_at = $6, capacity = $7, updated_at = $8
WHERE id = $1`,
		id, input.Title, input.Description, input.Location, input.StartsAt, input.EndsAt,
		input.Capacity, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes an event and its registrations.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get fetches one event.
func (r *Repository) Get(ctx context.Context, id int64) (*Event, error) {
	var e Event
	err := r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns one page of events, upcoming first, and the total count.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Event, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
			&e.Capacity, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// Register adds a member to an event. A duplicate registration trips the
// primary key on (event_id, user_id).
func (r *Repository) Register(ctx context.Context, eventID, userID int64) error {
	var capacity, registered int
	err := r.pool.QueryRow(ctx,
		`SELECT e.capacity, COUNT(reg.user_id)
FROM events e LEFT JOIN event_registrations reg ON reg.event_id = e.id
WHERE e.id = $1 GROUP BY e.capacity`, eventID).Scan(&capacity, &registered)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if capacity > 0 && registered >= capacity {
		return ErrFull
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO event_registrations (event_id, user_id, attended, registered_at) VALUES ($1, $2, FALSE, $3)`,
		eventID, userID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "pk_event_registrations" {
			return ErrAlreadyRegistered
		}
		return err
	}
	return nil
}

// MarkAttendance flags a registration as attended.
func (r *Repository) MarkAttendance(ctx context.Context, eventID, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE event_registrations SET attended = TRUE WHERE event_id = $1 AND user_id = $2`,
		eventID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Registrations lists everyone registered for an event.
func (r *Repository) Registrations(ctx context.Context, eventID int64) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_id, user_id, attended, registered_at FROM event_registrations WHERE event_id = $1 ORDER BY registered_at`,
		eventID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

// HistoryFor lists every registration of one user, newest event first.
func (r *Repository) HistoryFor(ctx context.Context, userID int64) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT reg.event_id, reg.user_id, reg.attended, reg.registered_at
FROM event_registrations reg JOIN events e ON e.id = reg.event_id
WHERE reg.user_id = $1 ORDER BY e.starts_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectRegistrations(rows)
}

func collectRegistrations(rows pgx.Rows) ([]Registration, error) {
	defer rows.Close()
	var registrations []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.EventID, &reg.UserID, &reg.Attended, &reg.RegisteredAt); err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	return registrations, rows.Err()
}
