package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

const defaultAnalyticsBudget = 15 * time.Second

// AnalyticsService computes on-demand aggregate statistics over the report
// store. Every operation resolves the caller's scope first, runs each
// statistic as one store-side grouping pass, and fails as a whole when any
// sub-aggregation fails. Responses may trail concurrent writes by a few
// milliseconds; linearizability is not required here.
type AnalyticsService struct {
	repo      ports.AnalyticsRepository
	directory *Directory
	budget    time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewAnalyticsService(repo ports.AnalyticsRepository, directory *Directory, budget time.Duration, logger zerolog.Logger) *AnalyticsService {
	if budget <= 0 {
		budget = defaultAnalyticsBudget
	}
	return &AnalyticsService{
		repo:      repo,
		directory: directory,
		budget:    budget,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// withBudget bounds an aggregation with the execution time budget and maps a
// blown deadline to domain.ErrAggregationTimeout.
func (s *AnalyticsService) withBudget(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.budget)
	defer cancel()

	err := run(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: budget %s", domain.ErrAggregationTimeout, s.budget)
	}
	return err
}

// Overview implements GET /v1/analytics/overview.
func (s *AnalyticsService) Overview(ctx context.Context, caller domain.Caller, f ports.AnalyticsFilter) (*ports.Overview, error) {
	scope, err := ResolveScope(caller)
	if err != nil {
		return nil, err
	}

	var out ports.Overview
	err = s.withBudget(ctx, func(ctx context.Context) error {
		total, err := s.repo.CountReports(ctx, scope, f)
		if err != nil {
			return fmt.Errorf("overview: total: %w", err)
		}

		byStatus, err := s.repo.CountByField(ctx, scope, f, ports.GroupByStatus)
		if err != nil {
			return fmt.Errorf("overview: by status: %w", err)
		}
		byType, err := s.repo.CountByField(ctx, scope, f, ports.GroupByType)
		if err != nil {
			return fmt.Errorf("overview: by type: %w", err)
		}
		byPriority, err := s.repo.CountByField(ctx, scope, f, ports.GroupByPriority)
		if err != nil {
			return fmt.Errorf("overview: by priority: %w", err)
		}
		byDepartment, err := s.repo.CountByField(ctx, scope, f, ports.GroupByDepartment)
		if err != nil {
			return fmt.Errorf("overview: by department: %w", err)
		}

		res, err := s.repo.ResolutionStats(ctx, scope, f)
		if err != nil {
			return fmt.Errorf("overview: resolution stats: %w", err)
		}

		satAvg, satCount, err := s.repo.SatisfactionAvg(ctx, scope, f)
		if err != nil {
			return fmt.Errorf("overview: satisfaction: %w", err)
		}

		reporters, err := s.topContributors(ctx, scope, f, ports.GroupByReporter)
		if err != nil {
			return fmt.Errorf("overview: top reporters: %w", err)
		}
		resolvers, err := s.topContributors(ctx, scope, f, ports.GroupByResolver)
		if err != nil {
			return fmt.Errorf("overview: top resolvers: %w", err)
		}

		// Closed reports passed through resolved and keep their resolution
		// data, so they count as resolved throughout the engine.
		resolved := byStatus[string(domain.StatusResolved)] + byStatus[string(domain.StatusClosed)]
		out = ports.Overview{
			Summary: ports.OverviewSummary{
				Total:          total,
				Resolved:       resolved,
				ResolutionRate: rate(resolved, total),
			},
			Breakdowns: ports.Breakdowns{
				ByStatus:     byStatus,
				ByType:       byType,
				ByPriority:   byPriority,
				ByDepartment: byDepartment,
			},
			ResolutionMetrics: ports.ResolutionMetrics{
				Count: res.Count,
				Avg:   round2(res.Avg),
				Min:   res.Min,
				Max:   res.Max,
			},
			Satisfaction: ports.Satisfaction{Avg: round2(satAvg), Count: satCount},
			TopContributors: ports.TopContributors{
				Reporters: reporters,
				Resolvers: resolvers,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// topContributors runs one grouped count and joins display names through the
// cached directory.
func (s *AnalyticsService) topContributors(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter, field ports.GroupField) ([]ports.Contributor, error) {
	rows, err := s.repo.TopUsers(ctx, scope, f, field, 10)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	names, err := s.directory.DisplayNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]ports.Contributor, 0, len(rows))
	for _, r := range rows {
		out = append(out, ports.Contributor{
			UserID: r.UserID,
			Name:   names[r.UserID],
			Count:  r.Count,
		})
	}
	return out, nil
}

// Trends implements GET /v1/analytics/trends. Buckets use the creation
// timestamp; at most limit most-recent buckets are returned, newest first.
func (s *AnalyticsService) Trends(ctx context.Context, caller domain.Caller, f ports.AnalyticsFilter, period string, limit int) (*ports.Trends, error) {
	scope, err := ResolveScope(caller)
	if err != nil {
		return nil, err
	}

	switch period {
	case "day", "month":
	case "week", "isoweek":
		period = "isoweek"
	default:
		return nil, fmt.Errorf("%w: unsupported period %q", domain.ErrValidation, period)
	}
	if limit < 1 || limit > 90 {
		limit = 12
	}

	var out ports.Trends
	err = s.withBudget(ctx, func(ctx context.Context) error {
		overall, err := s.repo.TrendBuckets(ctx, scope, f, period, limit, false)
		if err != nil {
			return fmt.Errorf("trends: overall: %w", err)
		}
		byType, err := s.repo.TrendBuckets(ctx, scope, f, period, limit, true)
		if err != nil {
			return fmt.Errorf("trends: by type: %w", err)
		}

		out = ports.Trends{
			Period:  period,
			Overall: renderTrendRows(overall),
			ByType:  renderTrendRows(byType),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func renderTrendRows(rows []ports.TrendRow) []ports.TrendBucket {
	out := make([]ports.TrendBucket, 0, len(rows))
	for _, r := range rows {
		byStatus := r.StatusCounts
		if byStatus == nil {
			byStatus = map[string]int64{}
		}
		out = append(out, ports.TrendBucket{
			Bucket:        r.Bucket,
			Type:          r.Type,
			Total:         r.Total,
			ByStatus:      byStatus,
			AvgResolution: round2(r.AvgResolution),
			Urgent:        r.Urgent,
			High:          r.High,
		})
	}
	return out
}

// Heatmap implements GET /v1/analytics/heatmap. Only reports with
// coordinates participate; points are weighted by priority and clustered by
// the geo-clustering module.
func (s *AnalyticsService) Heatmap(ctx context.Context, caller domain.Caller, days int, types, priorities []string) (*ports.Heatmap, error) {
	scope, err := ResolveScope(caller)
	if err != nil {
		return nil, err
	}

	if days <= 0 {
		days = ports.DefaultHeatmapDays
	}
	since := s.now().AddDate(0, 0, -days)

	var out ports.Heatmap
	err = s.withBudget(ctx, func(ctx context.Context) error {
		points, err := s.repo.HeatmapPoints(ctx, scope, since, types, priorities, ports.MaxHeatmapPoints)
		if err != nil {
			return fmt.Errorf("heatmap: points: %w", err)
		}

		weighted := make([]ports.HeatmapPoint, 0, len(points))
		for _, p := range points {
			weighted = append(weighted, ports.HeatmapPoint{
				Lat:    p.Lat,
				Lng:    p.Lng,
				Weight: p.Priority.Weight(),
			})
		}

		out = ports.Heatmap{
			Points:   weighted,
			Clusters: ClusterPoints(points),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Performance implements GET /v1/analytics/performance. Employees may only
// query themselves; managers may target any user inside their scope.
func (s *AnalyticsService) Performance(ctx context.Context, in ports.PerformanceInput) (*ports.Performance, error) {
	scope, err := ResolveScope(in.Caller)
	if err != nil {
		return nil, err
	}

	target := in.UserID
	if target == "" {
		target = in.Caller.UserID
	}
	if target != in.Caller.UserID && !in.Caller.Role.AtLeast(domain.RoleSupervisor) {
		return nil, domain.ErrForbidden
	}
	// The workload grouping must see all of the target's assignments, not
	// only those the caller reported or was assigned. Managers' scopes
	// already cover the tenant/department; for self-queries the employee
	// restriction collapses to the same tenant filter.
	scope.AssignedOrReporterID = ""
	scope.ReporterID = ""

	f := ports.AnalyticsFilter{DateFrom: in.DateFrom, DateTo: in.DateTo}

	var out ports.Performance
	err = s.withBudget(ctx, func(ctx context.Context) error {
		statusCounts, err := s.repo.AssignedStatusCounts(ctx, scope, target, f)
		if err != nil {
			return fmt.Errorf("performance: workload: %w", err)
		}
		var totalAssigned int64
		for _, n := range statusCounts {
			totalAssigned += n
		}
		resolved := statusCounts[string(domain.StatusResolved)] + statusCounts[string(domain.StatusClosed)]

		eff, err := s.repo.ResolverEfficiency(ctx, scope, target, f)
		if err != nil {
			return fmt.Errorf("performance: efficiency: %w", err)
		}

		ratings, err := s.repo.RatingDistribution(ctx, scope, target, f)
		if err != nil {
			return fmt.Errorf("performance: ratings: %w", err)
		}
		var totalRatings int64
		for _, n := range ratings {
			totalRatings += n
		}

		out = ports.Performance{
			UserID: target,
			Workload: ports.Workload{
				TotalAssigned:  totalAssigned,
				Resolved:       resolved,
				InProgress:     statusCounts[string(domain.StatusInProgress)],
				Pending:        statusCounts[string(domain.StatusPending)],
				ResolutionRate: rate(resolved, totalAssigned),
			},
			Efficiency: ports.Efficiency{
				Avg:     round2(eff.Avg),
				Min:     eff.Min,
				Max:     eff.Max,
				Under24: eff.Under24,
				Under48: eff.Under48,
				Under72: eff.Under72,
			},
			Quality: ports.Quality{
				Ratings:          ratings,
				SatisfactionRate: rate(ratings[5]+ratings[4], totalRatings),
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Comparative implements GET /v1/analytics/comparative over a trailing 1- or
// 3-month window, one row per category sorted by total descending.
func (s *AnalyticsService) Comparative(ctx context.Context, caller domain.Caller, dimension string, months int) ([]ports.ComparativeEntry, error) {
	scope, err := ResolveScope(caller)
	if err != nil {
		return nil, err
	}

	var dim ports.GroupField
	switch dimension {
	case "departments":
		dim = ports.GroupByDepartment
	case "types":
		dim = ports.GroupByType
	case "priorities":
		dim = ports.GroupByPriority
	default:
		return nil, fmt.Errorf("%w: unsupported dimension %q", domain.ErrValidation, dimension)
	}
	if months != 3 {
		months = 1
	}
	since := s.now().AddDate(0, -months, 0)

	var out []ports.ComparativeEntry
	err = s.withBudget(ctx, func(ctx context.Context) error {
		rows, err := s.repo.GroupByDimension(ctx, scope, dim, since)
		if err != nil {
			return fmt.Errorf("comparative: %w", err)
		}
		out = make([]ports.ComparativeEntry, 0, len(rows))
		for _, r := range rows {
			out = append(out, ports.ComparativeEntry{
				Category:       r.Category,
				Total:          r.Total,
				Resolved:       r.Resolved,
				ResolutionRate: rate(r.Resolved, r.Total),
				AvgResolution:  round2(r.AvgResolution),
				Urgent:         r.Urgent,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rate returns part/total as a percentage rounded to 2 decimals, and 0 when
// total is zero.
func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
