package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// TenantService manages municipality tenants. All operations are restricted
// to the super-admin role.
type TenantService struct {
	repo   ports.TenantRepository
	logger zerolog.Logger
}

func NewTenantService(repo ports.TenantRepository, logger zerolog.Logger) *TenantService {
	return &TenantService{repo: repo, logger: logger}
}

// Create registers a new tenant with a unique code.
func (s *TenantService) Create(ctx context.Context, caller domain.Caller, t *domain.Tenant) (*domain.Tenant, error) {
	if caller.Role != domain.RoleSuperSuperAdmin {
		return nil, domain.ErrForbidden
	}
	if t.Code == "" || t.Name == "" {
		return nil, fmt.Errorf("%w: code and name are required", domain.ErrValidation)
	}

	now := time.Now().UTC()
	t.IsActive = true
	t.CreatedAt = now
	t.UpdatedAt = now

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("tenant_code", created.Code).Str("tenant_id", created.ID).Msg("tenant created")
	return created, nil
}

// List returns all tenants, optionally including deactivated ones.
func (s *TenantService) List(ctx context.Context, caller domain.Caller, includeInactive bool) ([]*domain.Tenant, error) {
	if caller.Role != domain.RoleSuperSuperAdmin {
		return nil, domain.ErrForbidden
	}
	return s.repo.List(ctx, includeInactive)
}

// Deactivate soft-disables a tenant. Tenants are never hard-deleted.
func (s *TenantService) Deactivate(ctx context.Context, caller domain.Caller, id string) error {
	if caller.Role != domain.RoleSuperSuperAdmin {
		return domain.ErrForbidden
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("tenant_id", id).Msg("tenant deactivated")
	return nil
}
