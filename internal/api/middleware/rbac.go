package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// MinRole enforces role-rank access control: the caller's role must rank at
// or above the given role.
func MinRole(min domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if !domain.Role(role).AtLeast(min) {
				return c.JSON(http.StatusForbidden, map[string]any{
					"success": false,
					"message": "forbidden",
				})
			}
			return next(c)
		}
	}
}
