package service

import (
	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// ResolveScope derives the mandatory query restriction for a caller. It is
// the single canonical implementation: every read and write path, mutation
// and analytics alike, goes through this function before any refinement,
// pagination, or limit is applied.
//
// Rules are ordered; the first matching role wins.
func ResolveScope(caller domain.Caller) (domain.Scope, error) {
	if caller.Role == domain.RoleSuperSuperAdmin {
		return domain.Scope{All: true}, nil
	}

	// Every non-super caller must belong to a tenant.
	if caller.TenantID == "" {
		return domain.Scope{}, domain.ErrForbidden
	}

	switch caller.Role {
	case domain.RoleMunicipalityAdmin:
		return domain.Scope{TenantID: caller.TenantID}, nil
	case domain.RoleDepartmentManager, domain.RoleSupervisor:
		// Both roles see exactly their department. A caller without a
		// department claim would otherwise widen to the whole tenant, so
		// the claim is mandatory.
		if caller.Department == "" {
			return domain.Scope{}, domain.ErrForbidden
		}
		return domain.Scope{TenantID: caller.TenantID, Department: caller.Department}, nil
	case domain.RoleEmployee:
		return domain.Scope{TenantID: caller.TenantID, AssignedOrReporterID: caller.UserID}, nil
	case domain.RoleCitizen:
		return domain.Scope{TenantID: caller.TenantID, ReporterID: caller.UserID}, nil
	default:
		return domain.Scope{}, domain.ErrForbidden
	}
}
