package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-desk/internal/domain"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

// RequireEditor ensures the caller may mutate tickets and suppliers.
func RequireEditor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !actor.Role.CanEdit() {
			return apperrors.NewForbidden("editor role required")
		}
		return c.Next()
	}
}

// RequireApprovedEditor guards status changes: admins always pass, editors
// only once their account is approved.
func RequireApprovedEditor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !actor.Role.CanEdit() {
			return apperrors.NewForbidden("editor role required")
		}
		if actor.Role != domain.RoleAdmin && !actor.Approved {
			return apperrors.NewForbidden("account pending approval")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
