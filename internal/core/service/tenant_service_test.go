package service

import (
	"context"
	"errors"
	"testing"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

type stubTenantRepo struct {
	byID   map[string]*domain.Tenant
	nextID int
}

func newStubTenantRepo() *stubTenantRepo {
	return &stubTenantRepo{byID: make(map[string]*domain.Tenant)}
}

func (r *stubTenantRepo) Create(_ context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	for _, existing := range r.byID {
		if existing.Code == t.Code {
			return nil, domain.ErrTenantExists
		}
	}
	r.nextID++
	t.ID = "tenant_" + t.Code
	r.byID[t.ID] = t
	return t, nil
}

func (r *stubTenantRepo) FindByID(_ context.Context, id string) (*domain.Tenant, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t, nil
}

func (r *stubTenantRepo) List(_ context.Context, includeInactive bool) ([]*domain.Tenant, error) {
	var out []*domain.Tenant
	for _, t := range r.byID {
		if !includeInactive && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *stubTenantRepo) Deactivate(_ context.Context, id string) error {
	t, ok := r.byID[id]
	if !ok {
		return domain.ErrTenantNotFound
	}
	t.IsActive = false
	return nil
}

func superCaller() domain.Caller {
	return domain.Caller{UserID: "root", Role: domain.RoleSuperSuperAdmin}
}

func TestTenantService_SuperAdminOnly(t *testing.T) {
	repo := newStubTenantRepo()
	svc := NewTenantService(repo, discardLogger)
	admin := adminCaller("adm_1", "t1")

	if _, err := svc.Create(context.Background(), admin, &domain.Tenant{Code: "mad", Name: "Madrid"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("create by admin: got %v, want ErrForbidden", err)
	}
	if _, err := svc.List(context.Background(), admin, false); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("list by admin: got %v, want ErrForbidden", err)
	}
	if err := svc.Deactivate(context.Background(), admin, "tenant_mad"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("deactivate by admin: got %v, want ErrForbidden", err)
	}
}

func TestTenantService_Lifecycle(t *testing.T) {
	repo := newStubTenantRepo()
	svc := NewTenantService(repo, discardLogger)

	created, err := svc.Create(context.Background(), superCaller(), &domain.Tenant{Code: "mad", Name: "Madrid", City: "Madrid", Country: "ES"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created.IsActive {
		t.Error("new tenants must start active")
	}

	// Duplicate code is rejected.
	if _, err := svc.Create(context.Background(), superCaller(), &domain.Tenant{Code: "mad", Name: "Other"}); !errors.Is(err, domain.ErrTenantExists) {
		t.Errorf("duplicate code: got %v, want ErrTenantExists", err)
	}

	if err := svc.Deactivate(context.Background(), superCaller(), created.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	active, err := svc.List(context.Background(), superCaller(), false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("deactivated tenant still listed as active: %+v", active)
	}

	all, err := svc.List(context.Background(), superCaller(), true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("deactivated tenant must remain stored, got %d", len(all))
	}
}

func TestTenantService_Create_RequiresCodeAndName(t *testing.T) {
	svc := NewTenantService(newStubTenantRepo(), discardLogger)
	_, err := svc.Create(context.Background(), superCaller(), &domain.Tenant{Name: "Madrid"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}
