package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smart-nutrition/internal/database"
)

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository is a database-backed store of users.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Create inserts a user and returns it with its assigned ID.
func (r *Repository) Create(ctx context.Context, email, username, passwordHash string) (User, error) {
	now := time.Now().UTC().Truncate(time.Second)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		email, username, passwordHash, database.FormatTime(now),
	)
	if err != nil {
		return User{}, fmt.Errorf("failed to insert user %s: %w", email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("failed to read new user id: %w", err)
	}

	return User{ID: id, Email: email, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// GetByID returns the user with the given ID, or ErrUserNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

// GetByEmail returns the user with the given email, or ErrUserNotFound.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `WHERE email = ?`, email)
}

// GetByUsername returns the user with the given username, or ErrUserNotFound.
func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, `WHERE username = ?`, username)
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (User, error) {
	var (
		u       User
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}

	u.CreatedAt, err = database.ParseTime(created)
	if err != nil {
		return User{}, err
	}
	return u, nil
}
