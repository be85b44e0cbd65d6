package ports

import (
	"context"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// RegisterInput carries a new-account request. Creator is the authenticated
// caller for staff registrations; zero-valued for citizen self-signup.
type RegisterInput struct {
	Creator    domain.Caller
	Name       string
	Email      string
	Password   string
	Role       domain.Role
	TenantID   string
	Department string
}

// AuthService handles registration, login and account removal.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// Deactivate soft-disables the account so it can no longer log in.
	Deactivate(ctx context.Context, userID string) error
}
