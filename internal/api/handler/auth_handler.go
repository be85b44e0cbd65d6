package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

type registerRequest struct {
	Name       string `json:"name"       validate:"required,max=120"`
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required,min=8"`
	Role       string `json:"role"       validate:"omitempty,oneof=citizen employee supervisor department_manager municipality_admin"`
	TenantID   string `json:"tenant_id"`
	Department string `json:"department"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantID   string `json:"tenant_id,omitempty"`
	Department string `json:"department,omitempty"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       string(u.Role),
		TenantID:   u.TenantID,
		Department: u.Department,
	}
}

// AuthHandler handles registration, login and account deletion.
type AuthHandler struct {
	service ports.AuthService
	reports ports.ReportService
}

func NewAuthHandler(service ports.AuthService, reports ports.ReportService) *AuthHandler {
	return &AuthHandler{service: service, reports: reports}
}

// Register handles POST /v1/auth/register. Citizens self-register without a
// token; staff roles require an authenticated creator who outranks them.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleCitizen
	}

	// Creator is zero-valued for unauthenticated citizen signup; the
	// service enforces the rank rule for anything above citizen.
	creator, _ := ctxCaller(c)

	user, err := h.service.Register(c.Request().Context(), ports.RegisterInput{
		Creator:    creator,
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       role,
		TenantID:   req.TenantID,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ok(toUserResponse(user)))
}

// Login handles POST /v1/auth/login.
//
// @Summary      Authenticate and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  successResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(loginResponse{Token: token, User: toUserResponse(user)}))
}

// DeleteAccount handles DELETE /v1/auth/me. The account is deactivated so
// it can no longer log in; the caller's reports stay but their reporter
// identity is blanked.
//
// @Summary      Delete the caller's account and anonymize their reports
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  successResponse
// @Router       /v1/auth/me [delete]
func (h *AuthHandler) DeleteAccount(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	if err := h.service.Deactivate(c.Request().Context(), caller.UserID); err != nil {
		return err
	}
	n, err := h.reports.AnonymizeReporter(c.Request().Context(), caller.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(map[string]int64{"reports_anonymized": n}))
}
