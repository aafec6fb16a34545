package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campusdesk/internal/domain"
	apperrors "github.com/spec-kit/campusdesk/pkg/util/errorutil"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return apperrors.NewUnauthorized("insufficient role")
		}
		return c.Next()
	}
}

// RequirePrivileged admits admins and superadmins.
func RequirePrivileged() fiber.Handler {
	return RequireRole(domain.RoleAdmin, domain.RoleSuperadmin)
}
