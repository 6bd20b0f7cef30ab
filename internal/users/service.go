package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/internal/notify"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

const resetKeyPrefix = "pwdreset:"

// AuthConfig carries the token parameters for the auth service.
type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	PublicBaseURL   string
}

// Service implements registration, login and password recovery.
type Service struct {
	repo   Repository
	rdb    *redis.Client
	mailer notify.EmailSender
	cfg    AuthConfig
	logger *logging.Logger
}

// NewService wires the auth service. rdb and mailer may be nil in tests;
// password recovery then degrades to an error.
func NewService(repo Repository, rdb *redis.Client, mailer notify.EmailSender, cfg AuthConfig, logger *logging.Logger) *Service {
	return &Service{repo: repo, rdb: rdb, mailer: mailer, cfg: cfg, logger: logger}
}

// Register validates and creates an account.
func (s *Service) Register(ctx context.Context, req *CreateUserRequest) (*User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, req, hash)
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return s.issuePair(u)
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := middleware.ParseToken(s.cfg.JWTSecret, refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return s.issuePair(u)
}

func (s *Service) issuePair(u *User) (*TokenPair, error) {
	access, err := middleware.IssueToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("users: sign access token: %w", err)
	}
	refresh, err := middleware.IssueToken(s.cfg.JWTSecret, u.ID, u.Role, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("users: sign refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// RequestPasswordReset stores a one-time token in Redis and emails it to
// the user. Unknown emails succeed silently so the endpoint does not leak
// which addresses exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.rdb == nil || s.mailer == nil {
		return errors.New("users: password recovery not configured")
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}
	if u.HasPlaceholderEmail() {
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, resetKeyPrefix+token, u.ID, s.cfg.ResetTokenTTL).Err(); err != nil {
		return fmt.Errorf("users: store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PublicBaseURL, token)
	msg := notify.PasswordResetEmail(u.Email, u.FullName(), link, s.cfg.ResetTokenTTL)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send reset email", "error", err, "user_id", u.ID)
		return fmt.Errorf("users: send reset email: %w", err)
	}
	s.logger.Info("password reset requested", "user_id", u.ID)
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.rdb == nil {
		return errors.New("users: password recovery not configured")
	}
	if len(newPassword) < 8 {
		return fielderr.New("password", "Password must be at least 8 characters long.")
	}

	key := resetKeyPrefix + token
	userID, err := s.rdb.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("users: load reset token: %w", err)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	// Token is single use.
	s.rdb.Del(ctx, key)
	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("users: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
