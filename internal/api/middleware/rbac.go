package middleware

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/labstack/echo/v4"

	"github.com/relaychat/relay-api/internal/core/domain"
)

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := set.From(allowedRoles)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claim, ok := ClaimFrom(c)
			if !ok {
				return domain.ErrInvalidToken
			}
			if !claim.Role.Valid() || !allowed.Contains(claim.Role) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
