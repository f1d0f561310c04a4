package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

const userColumns = `id, email, name, password_hash, created_at, updated_at`

// CreateUser inserts a new user.
func (q *Queries) CreateUser(ctx context.Context, email, name, passwordHash string) (domain.User, error) {
	const query = `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns
	var u domain.User
	err := q.db.QueryRowContext(ctx, query, email, name, passwordHash).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByEmail fetches a user by email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var u domain.User
	err := q.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByID fetches a user by id.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var u domain.User
	err := q.db.QueryRowContext(ctx, query, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// UpdateUserPassword replaces a user's password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, passwordHash)
	return err
}

// CreateSession stores a session with a hashed token.
func (q *Queries) CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (domain.Session, error) {
	const query = `
		INSERT INTO sessions (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token_hash, expires_at, created_at`
	var s domain.Session
	err := q.db.QueryRowContext(ctx, query, userID, tokenHash, expiresAt).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

// GetSessionByTokenHash fetches a session by its hashed token.
func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.Session, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM sessions WHERE token_hash = $1`
	var s domain.Session
	err := q.db.QueryRowContext(ctx, query, tokenHash).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

// DeleteSession removes a session (logout).
func (q *Queries) DeleteSession(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM sessions WHERE token_hash = $1`
	_, err := q.db.ExecContext(ctx, query, tokenHash)
	return err
}

// DeleteUserSessions removes every session for one user.
func (q *Queries) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	const query = `DELETE FROM sessions WHERE user_id = $1`
	_, err := q.db.ExecContext(ctx, query, userID)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry.
func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < now()`
	res, err := q.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
