package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/domain"
	"github.com/cityflow/crm/internal/repository"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// AuthService coordinates staff login and logout. A login stores one session snapshot that
// every later request with the issued token resolves to.
type AuthService struct {
	profiles repository.ProfileRepository
	sessions auth.SessionStore
	tokens   *auth.TokenManager
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	ProfileRepo  repository.ProfileRepository
	SessionStore auth.SessionStore
	TokenManager *auth.TokenManager
	Logger       *zap.Logger
	Now          func() time.Time
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *domain.Session
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		profiles: deps.ProfileRepo,
		sessions: deps.SessionStore,
		tokens:   deps.TokenManager,
		logger:   logger,
		now:      now,
	}
}

var errInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// Login verifies email and password and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			auth.CompareDecoy(password)
			return nil, errInvalidCredentials
		}
		return nil, apperrors.MapError(err)
	}
	if !profile.IsActive {
		return nil, apperrors.NewForbidden("account is deactivated")
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials
	}

	sessionID := uuid.NewString()
	token, expiresAt, err := s.tokens.GenerateToken(sessionID, profile.ID, profile.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	session := &domain.Session{
		ID:        sessionID,
		ProfileID: profile.ID,
		FullName:  profile.FullName,
		Email:     profile.Email,
		Role:      profile.Role,
		TeamID:    profile.TeamID,
		IssuedAt:  s.now().UTC(),
		ExpiresAt: expiresAt,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("staff signed in", zap.String("profile_id", profile.ID), zap.String("session_id", sessionID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

// Logout ends a session. Unknown sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, auth.ErrSessionNotFound) {
		return apperrors.NewInternalError(err)
	}
	return nil
}
