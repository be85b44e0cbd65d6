package ports

import (
	"context"
	"time"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// AnalyticsFilter carries the caller refinements layered on top of the
// mandatory scope filter.
type AnalyticsFilter struct {
	DateFrom   time.Time
	DateTo     time.Time
	Department string
	Type       string
	Priority   string
}

// GroupField names a report field aggregations may group by.
type GroupField string

const (
	GroupByStatus     GroupField = "status"
	GroupByType       GroupField = "type"
	GroupByPriority   GroupField = "priority"
	GroupByDepartment GroupField = "department"
	GroupByReporter   GroupField = "reporter_id"
	GroupByResolver   GroupField = "resolution.resolved_by"
)

// ResolutionStats summarizes resolution_time_hours over resolved reports.
type ResolutionStats struct {
	Count int64
	Avg   float64
	Min   int64
	Max   int64
}

// UserCount is one row of a top-contributors grouping.
type UserCount struct {
	UserID string
	Count  int64
}

// TrendRow is a single time bucket emitted by the trend pipeline. When the
// grouping includes the report type, Type is set.
type TrendRow struct {
	Bucket        string
	Type          string
	Total         int64
	StatusCounts  map[string]int64
	AvgResolution float64 // over resolved reports in the bucket; 0 when none
	Urgent        int64
	High          int64
}

// HeatPoint is a raw report location with its priority.
type HeatPoint struct {
	Lat      float64
	Lng      float64
	Priority domain.Priority
}

// EfficiencyStats is a single-pass summary of a resolver's resolution times,
// including SLA threshold buckets.
type EfficiencyStats struct {
	Count   int64
	Avg     float64
	Min     int64
	Max     int64
	Under24 int64
	Under48 int64
	Under72 int64
}

// ComparativeRow groups lifecycle counters by one category of the chosen
// dimension.
type ComparativeRow struct {
	Category      string
	Total         int64
	Resolved      int64
	AvgResolution float64
	Urgent        int64
}

// AnalyticsRepository exposes the single-pass grouping primitives backing the
// aggregation engine. Every method runs exactly one store-side grouping; the
// scope filter is always the first predicate applied.
type AnalyticsRepository interface {
	CountReports(ctx context.Context, scope domain.Scope, f AnalyticsFilter) (int64, error)
	CountByField(ctx context.Context, scope domain.Scope, f AnalyticsFilter, field GroupField) (map[string]int64, error)
	ResolutionStats(ctx context.Context, scope domain.Scope, f AnalyticsFilter) (*ResolutionStats, error)
	// SatisfactionAvg averages feedback.rating where present.
	SatisfactionAvg(ctx context.Context, scope domain.Scope, f AnalyticsFilter) (avg float64, count int64, err error)
	TopUsers(ctx context.Context, scope domain.Scope, f AnalyticsFilter, field GroupField, limit int) ([]UserCount, error)
	// TrendBuckets groups by creation-time bucket (and type when byType),
	// returning at most limit most-recent buckets, newest first.
	TrendBuckets(ctx context.Context, scope domain.Scope, f AnalyticsFilter, period string, limit int, byType bool) ([]TrendRow, error)
	// HeatmapPoints returns raw points for reports that have coordinates,
	// created at or after since, capped at cap.
	HeatmapPoints(ctx context.Context, scope domain.Scope, since time.Time, types, priorities []string, cap int) ([]HeatPoint, error)
	// AssignedStatusCounts groups the user's assigned reports by status.
	AssignedStatusCounts(ctx context.Context, scope domain.Scope, userID string, f AnalyticsFilter) (map[string]int64, error)
	ResolverEfficiency(ctx context.Context, scope domain.Scope, userID string, f AnalyticsFilter) (*EfficiencyStats, error)
	// RatingDistribution counts feedback ratings 1..5 on reports the user resolved.
	RatingDistribution(ctx context.Context, scope domain.Scope, userID string, f AnalyticsFilter) (map[int]int64, error)
	// GroupByDimension is the comparative grouping over a trailing window.
	GroupByDimension(ctx context.Context, scope domain.Scope, dim GroupField, since time.Time) ([]ComparativeRow, error)
}

// Breakdowns are the grouped counts of the overview endpoint.
type Breakdowns struct {
	ByStatus     map[string]int64 `json:"by_status"`
	ByType       map[string]int64 `json:"by_type"`
	ByPriority   map[string]int64 `json:"by_priority"`
	ByDepartment map[string]int64 `json:"by_department"`
}

// OverviewSummary is the headline block of the overview endpoint.
type OverviewSummary struct {
	Total          int64   `json:"total"`
	Resolved       int64   `json:"resolved"`
	ResolutionRate float64 `json:"resolution_rate"`
}

// ResolutionMetrics reports resolution-time statistics in hours.
type ResolutionMetrics struct {
	Count int64   `json:"count"`
	Avg   float64 `json:"avg_hours"`
	Min   int64   `json:"min_hours"`
	Max   int64   `json:"max_hours"`
}

// Satisfaction reports the average feedback rating.
type Satisfaction struct {
	Avg   float64 `json:"avg_rating"`
	Count int64   `json:"count"`
}

// Contributor is one row of the top reporters/resolvers listing. Name is
// "unknown user" when the referenced user no longer resolves.
type Contributor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

// TopContributors lists the ten most active reporters and resolvers.
type TopContributors struct {
	Reporters []Contributor `json:"reporters"`
	Resolvers []Contributor `json:"resolvers"`
}

// Overview is the full response of GET /v1/analytics/overview.
type Overview struct {
	Summary           OverviewSummary   `json:"summary"`
	Breakdowns        Breakdowns        `json:"breakdowns"`
	ResolutionMetrics ResolutionMetrics `json:"resolution_metrics"`
	Satisfaction      Satisfaction      `json:"satisfaction"`
	TopContributors   TopContributors   `json:"top_contributors"`
}

// TrendBucket is one rendered bucket of the trends endpoint.
type TrendBucket struct {
	Bucket        string           `json:"bucket"`
	Type          string           `json:"type,omitempty"`
	Total         int64            `json:"total"`
	ByStatus      map[string]int64 `json:"by_status"`
	AvgResolution float64          `json:"avg_resolution_hours"`
	Urgent        int64            `json:"urgent"`
	High          int64            `json:"high"`
}

// Trends is the response of GET /v1/analytics/trends.
type Trends struct {
	Period  string        `json:"period"`
	Overall []TrendBucket `json:"overall"`
	ByType  []TrendBucket `json:"by_type"`
}

// HeatmapPoint is a weighted raw point.
type HeatmapPoint struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Weight int     `json:"weight"`
}

// HeatmapCluster is a spatial grouping of at least three nearby reports.
type HeatmapCluster struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Count    int     `json:"count"`
	Severity float64 `json:"severity"`
}

// Heatmap is the response of GET /v1/analytics/heatmap.
type Heatmap struct {
	Points   []HeatmapPoint   `json:"points"`
	Clusters []HeatmapCluster `json:"clusters"`
}

// Workload is the assignment block of the performance endpoint.
type Workload struct {
	TotalAssigned  int64   `json:"total_assigned"`
	Resolved       int64   `json:"resolved"`
	InProgress     int64   `json:"in_progress"`
	Pending        int64   `json:"pending"`
	ResolutionRate float64 `json:"resolution_rate"`
}

// Efficiency is the resolution-time block of the performance endpoint.
type Efficiency struct {
	Avg     float64 `json:"avg_hours"`
	Min     int64   `json:"min_hours"`
	Max     int64   `json:"max_hours"`
	Under24 int64   `json:"within_24h"`
	Under48 int64   `json:"within_48h"`
	Under72 int64   `json:"within_72h"`
}

// Quality is the feedback block of the performance endpoint.
type Quality struct {
	Ratings          map[int]int64 `json:"ratings"`
	SatisfactionRate float64       `json:"satisfaction_rate"`
}

// Performance is the response of GET /v1/analytics/performance.
type Performance struct {
	UserID     string     `json:"user_id"`
	Workload   Workload   `json:"workload"`
	Efficiency Efficiency `json:"efficiency"`
	Quality    Quality    `json:"quality"`
}

// ComparativeEntry is one category row of the comparative endpoint.
type ComparativeEntry struct {
	Category       string  `json:"category"`
	Total          int64   `json:"total"`
	Resolved       int64   `json:"resolved"`
	ResolutionRate float64 `json:"resolution_rate"`
	AvgResolution  float64 `json:"avg_resolution_hours"`
	Urgent         int64   `json:"urgent"`
}

// PerformanceInput selects the target user and window for the performance
// endpoint. Employees may only query themselves.
type PerformanceInput struct {
	Caller   domain.Caller
	UserID   string
	DateFrom time.Time
	DateTo   time.Time
}

// AnalyticsService is the on-demand aggregation engine. Every operation
// resolves the caller's scope first and fails as a whole if any
// sub-aggregation fails.
type AnalyticsService interface {
	Overview(ctx context.Context, caller domain.Caller, f AnalyticsFilter) (*Overview, error)
	Trends(ctx context.Context, caller domain.Caller, f AnalyticsFilter, period string, limit int) (*Trends, error)
	Heatmap(ctx context.Context, caller domain.Caller, days int, types, priorities []string) (*Heatmap, error)
	Performance(ctx context.Context, in PerformanceInput) (*Performance, error)
	Comparative(ctx context.Context, caller domain.Caller, dimension string, months int) ([]ComparativeEntry, error)
}
