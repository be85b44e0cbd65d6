package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/service"
)

type createTenantRequest struct {
	Code    string `json:"code"    validate:"required,alphanum,max=32"`
	Name    string `json:"name"    validate:"required,max=120"`
	City    string `json:"city"    validate:"required"`
	Country string `json:"country" validate:"required"`
}

// TenantHandler handles municipality administration. Every route is guarded
// by the super-admin middleware; the service re-checks the caller anyway.
type TenantHandler struct {
	service *service.TenantService
}

func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{service: svc}
}

// Create handles POST /v1/tenants.
//
// @Summary      Create a municipality
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createTenantRequest  true  "Municipality details"
// @Success      201   {object}  successResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/tenants [post]
func (h *TenantHandler) Create(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	var req createTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	tenant, err := h.service.Create(c.Request().Context(), caller, &domain.Tenant{
		Code:    req.Code,
		Name:    req.Name,
		City:    req.City,
		Country: req.Country,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ok(tenant))
}

// List handles GET /v1/tenants.
//
// @Summary      List municipalities
// @Tags         tenants
// @Produce      json
// @Security     BearerAuth
// @Param        include_inactive  query  bool  false  "Include deactivated tenants"
// @Success      200  {object}  successResponse
// @Router       /v1/tenants [get]
func (h *TenantHandler) List(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	tenants, err := h.service.List(c.Request().Context(), caller, c.QueryParam("include_inactive") == "true")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(tenants))
}

// Deactivate handles DELETE /v1/tenants/:id (soft deactivate).
//
// @Summary      Deactivate a municipality
// @Tags         tenants
// @Security     BearerAuth
// @Param        id  path  string  true  "Tenant id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /v1/tenants/{id} [delete]
func (h *TenantHandler) Deactivate(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	if err := h.service.Deactivate(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
