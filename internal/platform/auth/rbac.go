package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/appointease/appointease/internal/platform/apierror"
)

// RequireUserType returns middleware that admits callers whose user type is
// one of types. Admins are always admitted. Must run after Authenticate.
func RequireUserType(types ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return apierror.Unauthorized("access token required")
			}
			if p.IsAdmin() {
				return next(c)
			}
			for _, t := range types {
				if p.UserType == t {
					return next(c)
				}
			}
			return apierror.Forbidden("requires user type: " + strings.Join(types, " or "))
		}
	}
}
