package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrRateLimited        = errors.New("too many requests")
)

const (
	RoleStudent   = "student"
	RoleModerator = "moderator"
)

type Service struct {
	db                *sql.DB
	sessionTTL        time.Duration
	bcryptCost        int
	loginMaxFailures  int
	loginLockDuration time.Duration
}

type ServiceConfig struct {
	SessionTTL        time.Duration
	BcryptCost        int
	LoginMaxFailures  int
	LoginLockDuration time.Duration
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 72 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.LoginMaxFailures <= 0 {
		cfg.LoginMaxFailures = 5
	}
	if cfg.LoginLockDuration <= 0 {
		cfg.LoginLockDuration = 15 * time.Minute
	}

	return &Service{
		db:                db,
		sessionTTL:        cfg.SessionTTL,
		bcryptCost:        cfg.BcryptCost,
		loginMaxFailures:  cfg.LoginMaxFailures,
		loginLockDuration: cfg.LoginLockDuration,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = RoleStudent
	}

	if username == "" || len(username) > 60 {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidInput
	}
	if len(in.Password) < 8 {
		return nil, ErrInvalidInput
	}
	if !isValidRole(role) {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (email) DO NOTHING
		RETURNING id, username, email, role, created_at
	`, username, email, string(hash), role)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *Service) AuthenticatePassword(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	guardKey := normalizeGuardKey(identifier)
	locked, err := s.isGuardLocked(ctx, guardKey)
	if err != nil {
		return nil, fmt.Errorf("check login guard: %w", err)
	}
	if locked {
		return nil, ErrRateLimited
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, created_at, password_hash
		FROM users
		WHERE username = $1 OR email = lower($1)
		LIMIT 1
	`, identifier)

	var u User
	var passwordHash string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &passwordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = s.registerFailure(ctx, guardKey)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		_ = s.registerFailure(ctx, guardKey)
		return nil, ErrInvalidCredentials
	}

	_ = s.clearGuard(ctx, guardKey)
	return &u, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, role, created_at
		FROM users
		WHERE id = $1
	`, userID)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (s *Service) CreateSession(ctx context.Context, userID int64, ipAddress, userAgent string) (string, time.Time, error) {
	token, err := generateToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	tokenHash := hashToken(token)
	expiresAt := time.Now().Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (
			user_id, token_hash, expires_at, ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, now()
		)
	`, userID, tokenHash, expiresAt, nullableString(ipAddress), nullableString(userAgent))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *Service) GetSessionUser(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthorized
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.role, u.created_at
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		LIMIT 1
	`, hashToken(token))

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query session user: %w", err)
	}
	return &u, nil
}

func (s *Service) RevokeSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE auth_sessions
		SET revoked_at = now()
		WHERE token_hash = $1
		  AND revoked_at IS NULL
	`, hashToken(token))
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *Service) isGuardLocked(ctx context.Context, subjectKey string) (bool, error) {
	var lockedUntil sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT locked_until
		FROM auth_guards
		WHERE subject_key = $1
	`, subjectKey).Scan(&lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if !lockedUntil.Valid {
		return false, nil
	}
	return time.Now().Before(lockedUntil.Time), nil
}

func (s *Service) registerFailure(ctx context.Context, subjectKey string) error {
	var failedCount int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO auth_guards (subject_key, failed_count, updated_at, created_at)
		VALUES ($1, 1, now(), now())
		ON CONFLICT (subject_key)
		DO UPDATE SET
			failed_count = auth_guards.failed_count + 1,
			updated_at = now()
		RETURNING failed_count
	`, subjectKey).Scan(&failedCount)
	if err != nil {
		return err
	}

	if failedCount >= s.loginMaxFailures {
		_, err = s.db.ExecContext(ctx, `
			UPDATE auth_guards
			SET locked_until = now() + ($2 || ' seconds')::interval,
				failed_count = 0,
				updated_at = now()
			WHERE subject_key = $1
		`, subjectKey, int(s.loginLockDuration.Seconds()))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) clearGuard(ctx context.Context, subjectKey string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM auth_guards
		WHERE subject_key = $1
	`, subjectKey)
	return err
}

func isValidRole(role string) bool {
	return role == RoleStudent || role == RoleModerator
}

func normalizeGuardKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nullableString(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
