package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/civicfix/municipal-reports/internal/api/metrics"
	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// AnalyticsHandler serves the on-demand aggregation endpoints.
type AnalyticsHandler struct {
	service ports.AnalyticsService
}

func NewAnalyticsHandler(service ports.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Overview handles GET /v1/analytics/overview.
//
// @Summary      Dashboard overview of the caller's scope
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query  string  false  "YYYY-MM-DD"
// @Param        end_date    query  string  false  "YYYY-MM-DD"
// @Param        department  query  string  false  "Filter by department"
// @Param        type        query  string  false  "Filter by report type"
// @Param        priority    query  string  false  "Filter by priority"
// @Success      200  {object}  successResponse
// @Failure      504  {object}  errorResponse
// @Router       /v1/analytics/overview [get]
func (h *AnalyticsHandler) Overview(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	filter, err := analyticsFilter(c)
	if err != nil {
		return err
	}

	out, err := h.observe(c, "overview", func() (any, error) {
		return h.service.Overview(c.Request().Context(), caller, filter)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(out))
}

// Trends handles GET /v1/analytics/trends.
//
// @Summary      Bucketed time-series of report activity
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        period  query  string  false  "day | week | isoweek | month"  default(month)
// @Param        limit   query  int     false  "Buckets to return (max 90)"
// @Success      200  {object}  successResponse
// @Router       /v1/analytics/trends [get]
func (h *AnalyticsHandler) Trends(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	filter, err := analyticsFilter(c)
	if err != nil {
		return err
	}

	period := c.QueryParam("period")
	if period == "" {
		period = "month"
	}
	if !supportedPeriod(period) {
		return echo.NewHTTPError(http.StatusBadRequest, "period must be one of: "+strings.Join(ports.SupportedPeriods, ", "))
	}

	out, err := h.observe(c, "trends", func() (any, error) {
		return h.service.Trends(c.Request().Context(), caller, filter, period, intQuery(c, "limit", 0))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(out))
}

// Heatmap handles GET /v1/analytics/heatmap.
//
// @Summary      Spatial density of recent reports
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        days        query  int     false  "Lookback window in days"  default(30)
// @Param        types       query  string  false  "Comma-separated report types"
// @Param        priorities  query  string  false  "Comma-separated priorities"
// @Success      200  {object}  successResponse
// @Router       /v1/analytics/heatmap [get]
func (h *AnalyticsHandler) Heatmap(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	out, err := h.observe(c, "heatmap", func() (any, error) {
		return h.service.Heatmap(c.Request().Context(), caller,
			intQuery(c, "days", ports.DefaultHeatmapDays),
			csvQuery(c, "types"),
			csvQuery(c, "priorities"))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(out))
}

// Performance handles GET /v1/analytics/performance.
//
// @Summary      Workload, efficiency and quality of one staff member
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        user_id     query  string  false  "Target user (defaults to the caller)"
// @Param        start_date  query  string  false  "YYYY-MM-DD"
// @Param        end_date    query  string  false  "YYYY-MM-DD"
// @Success      200  {object}  successResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/analytics/performance [get]
func (h *AnalyticsHandler) Performance(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}
	from, err := parseDateQuery(c, "start_date")
	if err != nil {
		return err
	}
	to, err := parseDateQuery(c, "end_date")
	if err != nil {
		return err
	}

	out, err := h.observe(c, "performance", func() (any, error) {
		return h.service.Performance(c.Request().Context(), ports.PerformanceInput{
			Caller:   caller,
			UserID:   c.QueryParam("user_id"),
			DateFrom: from,
			DateTo:   to,
		})
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(out))
}

// Comparative handles GET /v1/analytics/comparative.
//
// @Summary      Compare departments, types or priorities over a trailing window
// @Tags         analytics
// @Produce      json
// @Security     BearerAuth
// @Param        dimension  query  string  false  "departments | types | priorities"  default(departments)
// @Param        months     query  int     false  "Trailing window, 1 or 3"  default(3)
// @Success      200  {object}  successResponse
// @Router       /v1/analytics/comparative [get]
func (h *AnalyticsHandler) Comparative(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	dimension := c.QueryParam("dimension")
	if dimension == "" {
		dimension = "departments"
	}

	out, err := h.observe(c, "comparative", func() (any, error) {
		return h.service.Comparative(c.Request().Context(), caller, dimension, intQuery(c, "months", 3))
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ok(out))
}

// observe wraps one aggregation call with duration and failure metrics.
func (h *AnalyticsHandler) observe(c echo.Context, endpoint string, fn func() (any, error)) (any, error) {
	start := time.Now()
	out, err := fn()
	metrics.AggregationDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		reason := "error"
		if errors.Is(err, domain.ErrAggregationTimeout) {
			reason = "timeout"
		}
		metrics.AggregationErrorsTotal.WithLabelValues(endpoint, reason).Inc()
		return nil, err
	}
	return out, nil
}

func analyticsFilter(c echo.Context) (ports.AnalyticsFilter, error) {
	var f ports.AnalyticsFilter
	var err error
	if f.DateFrom, err = parseDateQuery(c, "start_date"); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDateQuery(c, "end_date"); err != nil {
		return f, err
	}
	f.Department = c.QueryParam("department")
	f.Type = c.QueryParam("type")
	f.Priority = c.QueryParam("priority")
	return f, nil
}

func supportedPeriod(period string) bool {
	for _, p := range ports.SupportedPeriods {
		if p == period {
			return true
		}
	}
	return false
}

func csvQuery(c echo.Context, name string) []string {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
