// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, AI providers,
// and domain logic. They are responsible for:
// - Input validation
// - Quota enforcement before side effects
// - Business rule enforcement
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/repository"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 takes roughly 250ms on modern hardware, which is acceptable
	// for login flows. Not configurable at runtime so it cannot be
	// accidentally weakened.
	BcryptCost = 12

	// MinPasswordLength is the minimum password length per NIST SP 800-63B.
	MinPasswordLength = 8

	// MaxPasswordLength matches the bcrypt input limit.
	MaxPasswordLength = 72
)

// =============================================================================
// Interface Definition
// =============================================================================

// RegisterParams are the inputs for creating an account.
type RegisterParams struct {
	Email    string
	Name     string
	Password string
}

// LoginResult carries the authenticated user and the raw session token.
// The token is only available here; the database stores its hash.
type LoginResult struct {
	User  *domain.User
	Token string
}

// UserService defines the interface for account and session operations.
type UserService interface {
	// Register creates a new user account.
	// Returns domain.ECONFLICT if email already exists.
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)

	// Login authenticates a user and issues a new bearer token.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken resolves a raw bearer token to its user.
	// Returns domain.EUNAUTHORIZED if the token is unknown or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// ChangePassword verifies the current password, stores the new one,
	// and invalidates every session for the user.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error

	// DeleteExpiredSessions removes expired sessions. Run periodically.
	DeleteExpiredSessions(ctx context.Context) error
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(queries *repository.Queries, logger *slog.Logger) UserService {
	return &userService{
		queries: queries,
		logger:  logger,
	}
}

// Register creates a new user account.
//
// The password is always hashed even when the email is already taken, so
// duplicate-email responses take the same time as successful ones.
func (s *userService) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := validateEmail(params.Email); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	user, err := s.queries.CreateUser(ctx, params.Email, params.Name, string(passwordHash))
	if err != nil {
		// Unique constraint race between the existence check and the insert
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user.PasswordHash = ""
	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)

	return &user, nil
}

// Login authenticates a user and issues a new session.
//
// The raw token is returned exactly once; only its SHA-256 hash is stored,
// so a leaked sessions table cannot be replayed.
func (s *userService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Compare against a dummy hash so unknown emails take the
			// same time as wrong passwords.
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	_, err = s.queries.CreateSession(ctx, user.ID, hashSessionToken(token), time.Now().Add(domain.SessionDuration))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return &LoginResult{User: &user, Token: token}, nil
}

// Logout invalidates a session. Idempotent: unknown tokens are accepted.
func (s *userService) Logout(ctx context.Context, token string) error {
	if len(token) != domain.SessionTokenBytes*2 {
		return nil
	}

	if err := s.queries.DeleteSession(ctx, hashSessionToken(token)); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to delete session", "error", err)
		}
	}
	return nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	user, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user.PasswordHash = ""
	return &user, nil
}

// GetBySessionToken resolves a raw bearer token to its user.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if len(token) != domain.SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	session, err := s.queries.GetSessionByTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	if session.IsExpired() {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	user, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user.PasswordHash = ""
	return &user, nil
}

// ChangePassword verifies the current password and replaces it. All
// sessions are invalidated so stolen tokens die with the old password.
func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	const op = "UserService.ChangePassword"

	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user")
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return domain.Unauthorized(op, "Current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	if err := s.queries.UpdateUserPassword(ctx, userID, string(newHash)); err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	if err := s.queries.DeleteUserSessions(ctx, userID); err != nil {
		// Password already changed; log and move on.
		s.logger.Warn("failed to delete user sessions after password change", "user_id", userID, "error", err)
	}

	s.logger.Info("user password changed", "user_id", userID)
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "UserService.DeleteExpiredSessions"

	count, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired sessions")
	}

	s.logger.Info("expired sessions cleaned up", "count", count)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken creates a cryptographically secure session token,
// hex encoded to 64 characters.
func generateSessionToken() (string, error) {
	bytes := make([]byte, domain.SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashSessionToken hashes a session token for storage. SHA-256 is enough
// here: tokens are high-entropy random values, unlike passwords.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// commonPasswords are rejected regardless of other rules.
var commonPasswords = map[string]bool{
	"password1":   true,
	"password123": true,
	"qwerty123":   true,
	"letmein1":    true,
	"welcome1":    true,
	"admin123":    true,
	"iloveyou1":   true,
	"sunshine1":   true,
}

// validateEmail validates an email address format.
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	at := strings.Count(email, "@")
	if at != 1 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	idx := strings.Index(email, "@")
	if idx == 0 || idx == len(email)-1 {
		return domain.Invalid("", "Email must have a local part and a domain")
	}
	if !strings.Contains(email[idx+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}
	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}

	return nil
}

// validatePassword validates password strength requirements.
//
// Rules:
// - 8 to 72 characters (NIST minimum, bcrypt maximum)
// - At least one letter and one number
// - Not on the common password list
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	var hasLetter, hasNumber bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			hasLetter = true
		case c >= '0' && c <= '9':
			hasNumber = true
		}
	}
	if !hasLetter {
		return domain.Invalid("", "Password must contain at least one letter")
	}
	if !hasNumber {
		return domain.Invalid("", "Password must contain at least one number")
	}

	if commonPasswords[strings.ToLower(password)] {
		return domain.Invalid("", "Password is too common, choose something less guessable")
	}

	return nil
}

// Ensure userService implements UserService
var _ UserService = (*userService)(nil)
