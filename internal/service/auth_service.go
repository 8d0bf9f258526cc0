package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/log"
	"expensetracker/internal/mail"
	"expensetracker/internal/model"
	"expensetracker/internal/repository"
)

const bcryptCost = 10

// Session is an issued session token together with its owner.
type Session struct {
	Token  string
	Claims *auth.Claims
	User   *model.User
}

// AuthService handles signup, login, logout and password reset.
type AuthService interface {
	Signup(ctx context.Context, email, password, name string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type authService struct {
	users       repository.UserRepository
	resetTokens repository.ResetTokenRepository
	jwtService  *auth.JWTService
	revocations auth.RevocationStore
	mailer      mail.Mailer
	profiles    UserService
	logger      *log.Logger
	clientURL   string
	now         func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	resetTokens repository.ResetTokenRepository,
	jwtService *auth.JWTService,
	revocations auth.RevocationStore,
	mailer mail.Mailer,
	profiles UserService,
	logger *log.Logger,
	clientURL string,
) AuthService {
	return &authService{
		users:       users,
		resetTokens: resetTokens,
		jwtService:  jwtService,
		revocations: revocations,
		mailer:      mailer,
		profiles:    profiles,
		logger:      logger.WithComponent(log.ComponentAuth),
		clientURL:   clientURL,
		now:         utcNow,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user with a hashed password and opens a session.
func (s *authService) Signup(ctx context.Context, email, password, name string) (*Session, error) {
	email = NormalizeEmail(email)

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, apperrors.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(name),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)

	return s.issue(user)
}

// Login verifies credentials, records the login time and opens a session.
func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	user.LastLogin = &now
	s.profiles.Invalidate(ctx, user.ID)

	return s.issue(user)
}

// Logout revokes the session token for the rest of its lifetime.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrUnauthorized
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.RemainingTTL(s.now())); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.logger.InfoContext(ctx, "session revoked", "user_id", claims.UserID, "jti", claims.ID)
	return nil
}

// RequestPasswordReset stores a one-hour reset token and mails its link.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, tokenHash, err := auth.NewResetToken()
	if err != nil {
		return err
	}

	record := &model.PasswordResetToken{
		TokenHash: tokenHash,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(auth.ResetTokenExpiry),
	}
	if err := s.resetTokens.Create(ctx, record); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, s.resetLink(token)); err != nil {
		return fmt.Errorf("mail reset link: %w", err)
	}
	s.logger.InfoContext(ctx, "password reset requested", "user_id", user.ID, "expires_at", record.ExpiresAt)
	return nil
}

// ResetPassword consumes a reset token and replaces the user's password.
func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	record, err := s.resetTokens.FindByHash(ctx, auth.HashResetToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return fmt.Errorf("find reset token: %w", err)
	}
	if record.Expired(s.now()) {
		return apperrors.ErrInvalidResetToken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.resetTokens.Redeem(ctx, record, string(hashedPassword)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidResetToken
		}
		return fmt.Errorf("redeem reset token: %w", err)
	}
	s.profiles.Invalidate(ctx, record.UserID)
	s.logger.InfoContext(ctx, "password reset", "user_id", record.UserID)
	return nil
}

func (s *authService) issue(user *model.User) (*Session, error) {
	token, claims, err := s.jwtService.GenerateSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	return &Session{Token: token, Claims: claims, User: user}, nil
}

func (s *authService) resetLink(token string) string {
	return strings.TrimSuffix(s.clientURL, "/") + "/password-reset/" + token
}

func utcNow() time.Time {
	return time.Now().UTC()
}
