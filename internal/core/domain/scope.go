package domain

// Scope is the mandatory query restriction derived from a caller's role.
// It is produced by exactly one resolver and translated into a store filter
// in exactly one place; handlers and services never build their own.
type Scope struct {
	// All grants unrestricted access (super-admin only).
	All bool
	// TenantID restricts to a single tenant. Always set unless All.
	TenantID string
	// Department additionally restricts to one department (department managers).
	Department string
	// AssignedOrReporterID restricts to reports the user is assigned to or
	// reported (employees).
	AssignedOrReporterID string
	// ReporterID restricts to reports the user filed (citizens).
	ReporterID string
}

// Notification is the message handed to the external delivery channel.
type Notification struct {
	DeliveryID  string
	RecipientID string
	Title       string
	Body        string
	Priority    Priority
	Link        string
}

// Recipient identifies a user who must be told about a transition.
type Recipient struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}
