package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/log"
	"expensetracker/internal/model"
)

var fixedNow = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

type authFixture struct {
	users       *MockUserRepository
	resetTokens *MockResetTokenRepository
	revocations *MockRevocationStore
	mailer      *MockMailer
	profiles    *stubProfiles
	logs        *bytes.Buffer
	service     *authService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:       new(MockUserRepository),
		resetTokens: new(MockResetTokenRepository),
		revocations: new(MockRevocationStore),
		mailer:      new(MockMailer),
		profiles:    &stubProfiles{},
		logs:        &bytes.Buffer{},
	}
	logger := log.New(log.Config{Format: "text", Output: f.logs})
	svc := NewAuthService(f.users, f.resetTokens, auth.NewJWTService("test-secret"), f.revocations, f.mailer, f.profiles, logger, "http://localhost:5173/")
	f.service = svc.(*authService)
	f.service.now = func() time.Time { return fixedNow }
	return f
}

func (f *authFixture) assertExpectations(t *testing.T) {
	f.users.AssertExpectations(t)
	f.resetTokens.AssertExpectations(t)
	f.revocations.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
}

func hashed(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthService_LogsUnderAuthComponent(t *testing.T) {
	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("Create", mock.Anything, mock.Anything).Return(nil)

	session, err := f.service.Signup(context.Background(), "ana@example.com", "password123", "Ana")

	require.NoError(t, err)
	assert.Contains(t, f.logs.String(), "component=auth")
	assert.Contains(t, f.logs.String(), "user signed up")
	assert.Contains(t, f.logs.String(), session.User.ID.String())
	assert.NotContains(t, f.logs.String(), "password123")
	f.assertExpectations(t)
}

func TestAuthService_Signup(t *testing.T) {
	tests := []struct {
		name          string
		email         string
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:  "successful signup",
			email: "  Ana@Example.COM ",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "ana@example.com" && u.Role == model.RoleUser && u.PasswordHash != "password123"
				})).Return(nil)
			},
		},
		{
			name:  "email already registered",
			email: "ana@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(&model.User{Email: "ana@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name:  "concurrent signup hits unique index",
			email: "ana@example.com",
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			tt.setupMock(f.users)

			session, err := f.service.Signup(context.Background(), tt.email, "password123", " Ana ")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, session)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, session.Token)
				assert.Equal(t, "ana@example.com", session.User.Email)
				assert.Equal(t, "Ana", session.User.Name)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(session.User.PasswordHash), []byte("password123")))
				assert.Equal(t, session.User.ID.String(), session.Claims.UserID)
			}
			f.assertExpectations(t)
		})
	}
}

func TestAuthService_Signup_StoreFailure(t *testing.T) {
	f := newAuthFixture()
	f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(nil, errors.New("connection reset"))

	_, err := f.service.Signup(context.Background(), "ana@example.com", "password123", "Ana")
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 500, apperrors.MapErrorToHTTP(err).StatusCode)
}

func TestAuthService_Login(t *testing.T) {
	userID := uuid.New()
	stored := func(t *testing.T) *model.User {
		return &model.User{ID: userID, Email: "ana@example.com", PasswordHash: hashed(t, "password123"), Role: model.RoleUser}
	}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*testing.T, *MockUserRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "ANA@example.com",
			password: "password123",
			setupMock: func(t *testing.T, m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(stored(t), nil)
				m.On("TouchLastLogin", mock.Anything, userID, fixedNow).Return(nil)
			},
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			setupMock: func(t *testing.T, m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "ana@example.com",
			password: "not-the-password",
			setupMock: func(t *testing.T, m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "ana@example.com").Return(stored(t), nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			tt.setupMock(t, f.users)

			session, err := f.service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, session)
				assert.Empty(t, f.profiles.invalidated)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, session.Token)
				require.NotNil(t, session.User.LastLogin)
				assert.Equal(t, fixedNow, *session.User.LastLogin)
				assert.Equal(t, []uuid.UUID{userID}, f.profiles.invalidated)
			}
			f.assertExpectations(t)
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture()

	t.Run("revokes for the remaining lifetime", func(t *testing.T) {
		_, issued, err := auth.NewJWTService("test-secret").GenerateSessionToken(&model.User{ID: uuid.New()})
		require.NoError(t, err)

		f.revocations.On("Revoke", mock.Anything, issued.ID, mock.MatchedBy(func(ttl time.Duration) bool {
			return ttl > 0 && ttl <= auth.SessionTokenExpiry
		})).Return(nil).Once()
		f.service.now = time.Now

		require.NoError(t, f.service.Logout(context.Background(), issued))
	})

	t.Run("missing claims", func(t *testing.T) {
		assert.ErrorIs(t, f.service.Logout(context.Background(), nil), apperrors.ErrUnauthorized)
	})

	f.revocations.AssertExpectations(t)
}

func TestAuthService_RequestPasswordReset(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)

		err := f.service.RequestPasswordReset(context.Background(), "nobody@example.com")
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
		f.assertExpectations(t)
	})

	t.Run("stores hash and mails link", func(t *testing.T) {
		f := newAuthFixture()
		user := &model.User{ID: uuid.New(), Email: "ana@example.com"}
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(user, nil)

		var stored *model.PasswordResetToken
		f.resetTokens.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*model.PasswordResetToken) }).
			Return(nil)

		var link string
		f.mailer.On("SendPasswordReset", mock.Anything, "ana@example.com", mock.Anything).
			Run(func(args mock.Arguments) { link = args.String(2) }).
			Return(nil)

		require.NoError(t, f.service.RequestPasswordReset(context.Background(), "Ana@Example.com"))

		require.True(t, strings.HasPrefix(link, "http://localhost:5173/password-reset/"), link)
		token := strings.TrimPrefix(link, "http://localhost:5173/password-reset/")
		require.NotNil(t, stored)
		assert.Equal(t, auth.HashResetToken(token), stored.TokenHash)
		assert.NotEqual(t, token, stored.TokenHash)
		assert.Equal(t, user.ID, stored.UserID)
		assert.Equal(t, fixedNow.Add(time.Hour), stored.ExpiresAt)
		f.assertExpectations(t)
	})

	t.Run("mail failure surfaces", func(t *testing.T) {
		f := newAuthFixture()
		f.users.On("FindByEmail", mock.Anything, "ana@example.com").Return(&model.User{ID: uuid.New(), Email: "ana@example.com"}, nil)
		f.resetTokens.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.mailer.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		err := f.service.RequestPasswordReset(context.Background(), "ana@example.com")
		assert.ErrorContains(t, err, "smtp down")
	})
}

func TestAuthService_ResetPassword(t *testing.T) {
	userID := uuid.New()
	token := "abc123"
	hash := auth.HashResetToken(token)

	tests := []struct {
		name          string
		setupMock     func(*MockResetTokenRepository)
		expectedError error
	}{
		{
			name: "successful reset",
			setupMock: func(m *MockResetTokenRepository) {
				record := &model.PasswordResetToken{ID: uuid.New(), TokenHash: hash, UserID: userID, ExpiresAt: fixedNow.Add(time.Minute)}
				m.On("FindByHash", mock.Anything, hash).Return(record, nil)
				m.On("Redeem", mock.Anything, record, mock.MatchedBy(func(h string) bool {
					return bcrypt.CompareHashAndPassword([]byte(h), []byte("new-password")) == nil
				})).Return(nil)
			},
		},
		{
			name: "unknown token",
			setupMock: func(m *MockResetTokenRepository) {
				m.On("FindByHash", mock.Anything, hash).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidResetToken,
		},
		{
			name: "expired token",
			setupMock: func(m *MockResetTokenRepository) {
				record := &model.PasswordResetToken{ID: uuid.New(), TokenHash: hash, UserID: userID, ExpiresAt: fixedNow.Add(-time.Second)}
				m.On("FindByHash", mock.Anything, hash).Return(record, nil)
			},
			expectedError: apperrors.ErrInvalidResetToken,
		},
		{
			name: "token consumed concurrently",
			setupMock: func(m *MockResetTokenRepository) {
				record := &model.PasswordResetToken{ID: uuid.New(), TokenHash: hash, UserID: userID, ExpiresAt: fixedNow.Add(time.Minute)}
				m.On("FindByHash", mock.Anything, hash).Return(record, nil)
				m.On("Redeem", mock.Anything, record, mock.Anything).Return(gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidResetToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			tt.setupMock(f.resetTokens)

			err := f.service.ResetPassword(context.Background(), token, "new-password")

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Empty(t, f.profiles.invalidated)
			} else {
				require.NoError(t, err)
				assert.Equal(t, []uuid.UUID{userID}, f.profiles.invalidated)
			}
			f.assertExpectations(t)
		})
	}
}
