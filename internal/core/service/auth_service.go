package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// AuthService implements registration and login.
type AuthService struct {
	users     ports.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(users ports.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates a new account. Citizens self-register into a tenant;
// staff accounts can only be created by a caller whose role outranks the
// requested one, inside the caller's own tenant (super-admins excepted).
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role", domain.ErrValidation)
	}

	tenantID := in.TenantID
	if in.Role != domain.RoleCitizen {
		creator := in.Creator
		if creator.Role.Rank() <= in.Role.Rank() {
			return nil, domain.ErrForbidden
		}
		if creator.Role != domain.RoleSuperSuperAdmin {
			tenantID = creator.TenantID
		}
	}
	if in.Role != domain.RoleSuperSuperAdmin && tenantID == "" {
		return nil, fmt.Errorf("%w: tenant is required", domain.ErrValidation)
	}
	// Department-scoped roles cannot resolve a scope without a department,
	// so the account may not be created without one.
	if (in.Role == domain.RoleDepartmentManager || in.Role == domain.RoleSupervisor) && in.Department == "" {
		return nil, fmt.Errorf("%w: department is required", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		TenantID:     tenantID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Department:   in.Department,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.users.Create(ctx, user)
}

// Login authenticates a user and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, domain.ErrForbidden
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

// Deactivate soft-disables the account. Existing tokens expire naturally;
// Login refuses inactive accounts immediately.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	return s.users.Deactivate(ctx, userID)
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    user.ID,
		"role":       string(user.Role),
		"tenant_id":  user.TenantID,
		"department": user.Department,
		"exp":        time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
