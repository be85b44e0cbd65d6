package ports

import (
	"context"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// UserRepository is the user directory consumed by assignment validation,
// recipient resolution, and top-contributor name joins.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// FindByIDs returns the users that still exist; missing ids are simply
	// absent from the result.
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	// ListByMinRole returns the active users of the tenant whose role ranks
	// at or above minRole.
	ListByMinRole(ctx context.Context, tenantID string, minRole domain.Role) ([]*domain.User, error)
	// Deactivate soft-disables the account; users are never hard-deleted.
	Deactivate(ctx context.Context, id string) error
}

// TenantRepository persists municipality tenants.
type TenantRepository interface {
	Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	FindByID(ctx context.Context, id string) (*domain.Tenant, error)
	List(ctx context.Context, includeInactive bool) ([]*domain.Tenant, error)
	// Deactivate soft-disables the tenant; tenants are never hard-deleted.
	Deactivate(ctx context.Context, id string) error
}
