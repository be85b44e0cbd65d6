package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// ctxCaller extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must be a known role (presence proves the middleware ran).
//   - every role below super-admin requires a tenant id; without it the JWT
//     is structurally valid but operationally unusable, reject with 401.
func ctxCaller(c echo.Context) (domain.Caller, error) {
	role, _ := c.Get("role").(string)
	if !domain.Role(role).Valid() {
		return domain.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	userID, _ := c.Get("user_id").(string)
	tenantID, _ := c.Get("tenant_id").(string)
	department, _ := c.Get("department").(string)

	if domain.Role(role) != domain.RoleSuperSuperAdmin && tenantID == "" {
		return domain.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing tenant identity")
	}

	return domain.Caller{
		UserID:     userID,
		Role:       domain.Role(role),
		TenantID:   tenantID,
		Department: department,
	}, nil
}
