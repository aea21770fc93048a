package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// claimsMiddleware lets the request through when allow accepts the caller's token claims.
func claimsMiddleware(allow func(claims Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !allow(claims) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// adminMiddleware requires an admin holding at least one of roles (any admin when roles is empty).
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return claimsMiddleware(func(claims Claims) bool {
		return claims.IsAdmin && hasAnyRole(claims.Roles, roles)
	})
}

var teacherMiddleware = claimsMiddleware(func(claims Claims) bool {
	return claims.IsTeacher
})
