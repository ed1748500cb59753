package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/domain"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

const sessionKeyLocal = "auth_session"

// AuthMiddleware validates bearer tokens and injects the stored session. Profiles are not
// re-read per request.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions SessionStore
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions SessionStore) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	session, err := m.sessions.Get(c.UserContext(), claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return apperrors.NewUnauthorized("session expired or signed out")
		}
		return apperrors.MapError(err)
	}
	if session.ProfileID != claims.Subject {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(sessionKeyLocal, session)
	return c.Next()
}

// SessionFromContext retrieves the authenticated session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKeyLocal)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok
}

// WithSession stores session on the context. Handler tests use it to skip token parsing.
func WithSession(c *fiber.Ctx, session *domain.Session) {
	c.Locals(sessionKeyLocal, session)
}
