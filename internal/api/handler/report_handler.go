package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicfix/municipal-reports/internal/api/metrics"
	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// ReportHandler handles HTTP requests for report operations.
type ReportHandler struct {
	service ports.ReportService
}

func NewReportHandler(service ports.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Create handles POST /v1/reports.
//
// @Summary      File a new report
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createReportRequest  true  "Report details"
// @Success      201   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/reports [post]
func (h *ReportHandler) Create(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := ports.CreateReportInput{
		Caller:      caller,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		Address:     req.Address,
		District:    req.District,
		Department:  req.Department,
		Tags:        req.Tags,
	}
	if req.Coordinates != nil {
		in.Coordinates = &ports.CoordinatesInput{Lat: req.Coordinates.Lat, Lng: req.Coordinates.Lng}
	}

	report, err := h.service.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}

	metrics.ReportsCreatedTotal.WithLabelValues(report.Type).Inc()
	return c.JSON(http.StatusCreated, ok(toReportResponse(report)))
}

// Get handles GET /v1/reports/:id.
//
// @Summary      Get a report by id
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id  path      string  true  "Report id"
// @Success      200 {object}  successResponse
// @Failure      404 {object}  errorResponse
// @Router       /v1/reports/{id} [get]
func (h *ReportHandler) Get(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	report, err := h.service.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(toReportResponse(report)))
}

// List handles GET /v1/reports.
//
// @Summary      List reports inside the caller's scope
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        status    query  string  false  "Filter by status"
// @Param        type      query  string  false  "Filter by type"
// @Param        priority  query  string  false  "Filter by priority"
// @Param        page      query  int     false  "Page (1-based)"
// @Param        limit     query  int     false  "Page size (max 100)"
// @Success      200  {object}  successResponse
// @Router       /v1/reports [get]
func (h *ReportHandler) List(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	filter := ports.ListReportsFilter{
		Status:   c.QueryParam("status"),
		Type:     c.QueryParam("type"),
		Priority: c.QueryParam("priority"),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 20),
	}
	if filter.DateFrom, err = parseDateQuery(c, "start_date"); err != nil {
		return err
	}
	if filter.DateTo, err = parseDateQuery(c, "end_date"); err != nil {
		return err
	}

	result, err := h.service.List(c.Request().Context(), ports.ListReportsInput{Caller: caller, Filter: filter})
	if err != nil {
		return err
	}

	items := make([]reportResponse, 0, len(result.Items))
	for _, r := range result.Items {
		items = append(items, toReportResponse(r))
	}
	return c.JSON(http.StatusOK, ok(listReportsResponse{
		Items: items,
		Pagination: paginationResponse{
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			TotalPages: result.TotalPages,
		},
	}))
}

// Patch handles PATCH /v1/reports/:id — the state machine entry point.
//
// @Summary      Transition a report to a new status
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Report id"
// @Param        body  body      patchReportRequest  true  "Transition details"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/reports/{id} [patch]
func (h *ReportHandler) Patch(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	var req patchReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.service.Transition(c.Request().Context(), ports.TransitionInput{
		Caller:                caller,
		ReportID:              c.Param("id"),
		Target:                domain.ReportStatus(req.Status),
		Comment:               req.StatusComment,
		AssignedTo:            req.AssignedTo,
		ResolutionDescription: req.ResolutionDescription,
		RejectionReason:       req.RejectionReason,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.TransitionConflictsTotal.Inc()
		}
		return err
	}

	metrics.TransitionsTotal.WithLabelValues(req.Status).Inc()
	return c.JSON(http.StatusOK, ok(transitionResponse{
		Report:     toReportResponse(result.Report),
		Recipients: result.Recipients,
	}))
}

// Delete handles DELETE /v1/reports/:id (soft delete).
//
// @Summary      Soft-delete a report
// @Tags         reports
// @Security     BearerAuth
// @Param        id  path  string  true  "Report id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/reports/{id} [delete]
func (h *ReportHandler) Delete(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Feedback handles POST /v1/reports/:id/feedback.
//
// @Summary      Rate a resolved report
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Report id"
// @Param        body  body      feedbackRequest  true  "Rating"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Router       /v1/reports/{id}/feedback [post]
func (h *ReportHandler) Feedback(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	report, err := h.service.SubmitFeedback(c.Request().Context(), ports.FeedbackInput{
		Caller:   caller,
		ReportID: c.Param("id"),
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(toReportResponse(report)))
}

// --- query helpers ---

func intQuery(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	var n int
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return fallback
		}
		n = n*10 + int(ch-'0')
	}
	return n
}

func parseDateQuery(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be YYYY-MM-DD")
	}
	return t, nil
}
