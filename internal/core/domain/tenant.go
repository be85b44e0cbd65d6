package domain

import "time"

// TenantSettings holds per-municipality configuration.
type TenantSettings struct {
	WorkingHoursStart string `json:"working_hours_start,omitempty" bson:"working_hours_start,omitempty"`
	WorkingHoursEnd   string `json:"working_hours_end,omitempty" bson:"working_hours_end,omitempty"`
	AutoAssignment    bool   `json:"auto_assignment" bson:"auto_assignment"`
}

// Tenant is an isolated municipality instance. Tenants are created by a
// super-admin and soft-deactivated, never hard-deleted.
type Tenant struct {
	ID        string         `json:"id" bson:"_id,omitempty"`
	Code      string         `json:"code" bson:"code"`
	Name      string         `json:"name" bson:"name"`
	City      string         `json:"city" bson:"city"`
	Country   string         `json:"country" bson:"country"`
	Settings  TenantSettings `json:"settings" bson:"settings"`
	IsActive  bool           `json:"is_active" bson:"is_active"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}
