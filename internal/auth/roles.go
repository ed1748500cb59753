package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cityflow/crm/internal/domain"
	apperrors "github.com/cityflow/crm/pkg/util/errorutil"
)

// RequireRole ensures the session has one of the allowed roles. With no roles it only
// requires a session.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[session.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireManager allows managers and admins.
func RequireManager() fiber.Handler {
	return RequireRole(domain.RoleManager, domain.RoleAdmin)
}

// RequireAdmin allows admins only.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}
