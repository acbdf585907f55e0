package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/societyhub/societyhub/internal/roles"
)

// ErrNotFound indicates the profile does not exist.
var ErrNotFound = errors.New("users: not found")

// ErrEmailTaken indicates a profile already uses the email.
var ErrEmailTaken = errors.New("users: email already registered")

// Repository provides PostgreSQL backed persistence for profiles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateInput carries the fields for a new profile.
type CreateInput struct {
	Email        string
	Name         string
	PasswordHash string
	Role         *string
	StudentNo    string
}

// Create inserts a new profile and returns its id.
func (r *Repository) Create(ctx context.Context, input CreateInput) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO profiles (email, name, password_hash, role, student_no, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6) RETURNING user_id`,
		input.Email, input.Name, input.PasswordHash, input.Role, input.StudentNo, now).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_profiles_email" {
			return 0, ErrEmailTaken
		}
		return 0, err
	}
	return id, nil
}

// Get fetches one profile by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Profile, error) {
	var p Profile
	var role *string
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, email, name, role, COALESCE(student_no, ''), is_active, created_at, updated_at
FROM profiles WHERE user_id = $1`, id).
		Scan(&p.ID, &p.Email, &p.Name, &role, &p.StudentNo, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.Role = toRole(role)
	return &p, nil
}

// List returns all profiles ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, email, name, role, COALESCE(student_no, ''), is_active, created_at, updated_at
FROM profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []Profile
	for rows.Next() {
		var p Profile
		var role *string
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &role, &p.StudentNo, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Role = toRole(role)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ListActiveIDs returns the ids of every active profile.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM profiles WHERE is_active ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetRole updates the role column for one profile.
func (r *Repository) SetRole(ctx context.Context, id int64, role *string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET role = $2, updated_at = $3 WHERE user_id = $1`,
		id, role, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate disables a profile.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET is_active = FALSE, updated_at = $2 WHERE user_id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func toRole(value *string) *roles.Role {
	if value == nil {
		return nil
	}
	role := roles.Role(*value)
	return &role
}
