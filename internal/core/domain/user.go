package domain

import "time"

// Role is a position in the ranked role hierarchy.
type Role string

const (
	RoleSuperSuperAdmin   Role = "super_super_admin"
	RoleMunicipalityAdmin Role = "municipality_admin"
	RoleDepartmentManager Role = "department_manager"
	RoleSupervisor        Role = "supervisor"
	RoleEmployee          Role = "employee"
	RoleCitizen           Role = "citizen"
)

// roleRanks is the single source of truth for role ordering. Higher rank
// manages lower; unknown roles rank zero and fail every AtLeast check.
var roleRanks = map[Role]int{
	RoleSuperSuperAdmin:   100,
	RoleMunicipalityAdmin: 80,
	RoleDepartmentManager: 60,
	RoleSupervisor:        40,
	RoleEmployee:          20,
	RoleCitizen:           10,
}

// Rank returns the numeric rank of the role (0 for unknown roles).
func (r Role) Rank() int {
	return roleRanks[r]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && roleRanks[r] >= roleRanks[other]
}

// RolesAtLeast returns every known role ranking at or above min.
func RolesAtLeast(min Role) []Role {
	var out []Role
	for r, rank := range roleRanks {
		if rank >= roleRanks[min] {
			out = append(out, r)
		}
	}
	return out
}

// IsStaff reports whether the role belongs to municipal staff.
func (r Role) IsStaff() bool {
	return r.Valid() && r != RoleCitizen
}

// User models an actor in the system. TenantID is empty only for the
// super-admin role; every other user belongs to exactly one tenant.
type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	TenantID     string    `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	Department   string    `json:"department,omitempty" bson:"department,omitempty"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Caller is the authenticated identity attached to every request.
type Caller struct {
	UserID     string
	Role       Role
	TenantID   string
	Department string
}
