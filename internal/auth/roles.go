package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-advisor/internal/domain"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// RequireScope ensures the caller's token grants scope. Anonymous principals
// admitted by a disabled middleware pass.
func RequireScope(scope domain.Scope) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Claims == nil {
			return c.Next()
		}
		if !principal.Claims.HasScope(scope) {
			return apperrors.NewForbidden("missing scope " + string(scope))
		}
		return c.Next()
	}
}
