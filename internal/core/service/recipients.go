package service

import (
	"context"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// RecipientResolver computes who must be told about a completed transition:
// the report's reporter, its current assignee, and every municipality admin
// (or higher) of the same tenant, deduplicated. Delivery is not its concern.
type RecipientResolver struct {
	users ports.UserRepository
}

func NewRecipientResolver(users ports.UserRepository) *RecipientResolver {
	return &RecipientResolver{users: users}
}

// Resolve returns the deduplicated recipient set for the report's current
// state. An anonymized reporter (empty id) is skipped.
func (r *RecipientResolver) Resolve(ctx context.Context, report *domain.Report) ([]domain.Recipient, error) {
	seen := make(map[string]struct{})
	var out []domain.Recipient

	add := func(userID string, name string, role domain.Role) {
		if userID == "" {
			return
		}
		if _, ok := seen[userID]; ok {
			return
		}
		seen[userID] = struct{}{}
		out = append(out, domain.Recipient{UserID: userID, Name: name, Role: role})
	}

	ids := make([]string, 0, 2)
	if report.ReporterID != "" {
		ids = append(ids, report.ReporterID)
	}
	if report.AssignedTo != "" {
		ids = append(ids, report.AssignedTo)
	}
	direct, err := r.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if u, ok := direct[id]; ok {
			add(u.ID, u.Name, u.Role)
		}
	}

	admins, err := r.users.ListByMinRole(ctx, report.TenantID, domain.RoleMunicipalityAdmin)
	if err != nil {
		return nil, err
	}
	for _, u := range admins {
		add(u.ID, u.Name, u.Role)
	}

	return out, nil
}
