package mongo

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// AnalyticsRepository implements ports.AnalyticsRepository with MongoDB
// aggregation pipelines. Each method is a single $match + $group pass; the
// scope filter is always the first predicate of the $match stage.
type AnalyticsRepository struct {
	col *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{col: db.Collection(collectionReports)}
}

// analyticsMatch merges the scope filter with the caller refinements. The
// scope predicates always survive the merge: a refinement on a key the scope
// already restricts, such as a department manager querying another
// department, is ANDed in and can only narrow the result.
func analyticsMatch(scope domain.Scope, f ports.AnalyticsFilter) bson.M {
	filter := reportScopeFilter(scope)
	if f.Department != "" {
		refine(filter, "department", f.Department)
	}
	if f.Type != "" {
		refine(filter, "type", f.Type)
	}
	if f.Priority != "" {
		refine(filter, "priority", f.Priority)
	}
	if dateRange := dateRangeFilter(f.DateFrom, f.DateTo); dateRange != nil {
		refine(filter, "created_at", dateRange)
	}
	return filter
}

func (r *AnalyticsRepository) CountReports(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.col.CountDocuments(ctx, analyticsMatch(scope, f))
}

func (r *AnalyticsRepository) CountByField(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter, field ports.GroupField) (map[string]int64, error) {
	pipeline := []bson.M{
		{"$match": analyticsMatch(scope, f)},
		{"$group": bson.M{"_id": "$" + string(field), "count": bson.M{"$sum": 1}}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		key, _ := row["_id"].(string)
		if key == "" {
			key = "unspecified"
		}
		out[key] = toInt64(row["count"])
	}
	return out, nil
}

func (r *AnalyticsRepository) ResolutionStats(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter) (*ports.ResolutionStats, error) {
	match := analyticsMatch(scope, f)
	match["resolution"] = bson.M{"$exists": true}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":   nil,
			"count": bson.M{"$sum": 1},
			"avg":   bson.M{"$avg": "$resolution.resolution_time_hours"},
			"min":   bson.M{"$min": "$resolution.resolution_time_hours"},
			"max":   bson.M{"$max": "$resolution.resolution_time_hours"},
		}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ports.ResolutionStats{}, nil
	}
	return &ports.ResolutionStats{
		Count: toInt64(rows[0]["count"]),
		Avg:   toFloat64(rows[0]["avg"]),
		Min:   toInt64(rows[0]["min"]),
		Max:   toInt64(rows[0]["max"]),
	}, nil
}

func (r *AnalyticsRepository) SatisfactionAvg(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter) (float64, int64, error) {
	match := analyticsMatch(scope, f)
	match["feedback.rating"] = bson.M{"$exists": true}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$feedback.rating"},
			"count": bson.M{"$sum": 1},
		}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return toFloat64(rows[0]["avg"]), toInt64(rows[0]["count"]), nil
}

func (r *AnalyticsRepository) TopUsers(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter, field ports.GroupField, limit int) ([]ports.UserCount, error) {
	match := analyticsMatch(scope, f)
	// For citizens grouping by reporter_id the scope already restricts this
	// key; refine keeps that restriction intact.
	refine(match, string(field), bson.M{"$exists": true, "$ne": ""})

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$" + string(field), "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
		{"$limit": limit},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]ports.UserCount, 0, len(rows))
	for _, row := range rows {
		id, _ := row["_id"].(string)
		out = append(out, ports.UserCount{UserID: id, Count: toInt64(row["count"])})
	}
	return out, nil
}

// bucketFormat maps a trend period to the $dateToString format producing its
// bucket key. isoweek uses the ISO year-week pair.
func bucketFormat(period string) string {
	switch period {
	case "month":
		return "%Y-%m"
	case "isoweek":
		return "%G-W%V"
	default: // day
		return "%Y-%m-%d"
	}
}

// trendStatuses is the fixed set of statuses counted per trend bucket.
var trendStatuses = []domain.ReportStatus{
	domain.StatusNew, domain.StatusAssigned, domain.StatusInProgress,
	domain.StatusPending, domain.StatusResolved, domain.StatusClosed,
	domain.StatusRejected,
}

// trendPipeline builds the aggregation for TrendBuckets. The limit always
// caps buckets: in by-type mode the first grouping yields one row per
// (bucket, type), so the rows are regrouped per bucket before the cap and
// flattened back afterwards.
func trendPipeline(scope domain.Scope, f ports.AnalyticsFilter, period string, limit int, byType bool) []bson.M {
	groupID := bson.M{
		"bucket": bson.M{"$dateToString": bson.M{"format": bucketFormat(period), "date": "$created_at"}},
	}
	if byType {
		groupID["type"] = "$type"
	}

	group := bson.M{
		"_id":   groupID,
		"total": bson.M{"$sum": 1},
		// $avg skips the nulls produced for non-resolved reports.
		"avg_resolution": bson.M{"$avg": bson.M{"$cond": bson.A{
			bson.M{"$ifNull": bson.A{"$resolution", false}},
			"$resolution.resolution_time_hours",
			nil,
		}}},
		"urgent": countIf(bson.M{"$eq": bson.A{"$priority", string(domain.PriorityUrgent)}}),
		"high":   countIf(bson.M{"$eq": bson.A{"$priority", string(domain.PriorityHigh)}}),
	}
	for _, st := range trendStatuses {
		group["status_"+string(st)] = countIf(bson.M{"$eq": bson.A{"$status", string(st)}})
	}

	pipeline := []bson.M{
		{"$match": analyticsMatch(scope, f)},
		{"$group": group},
	}
	if byType {
		pipeline = append(pipeline,
			bson.M{"$group": bson.M{"_id": "$_id.bucket", "rows": bson.M{"$push": "$$ROOT"}}},
			bson.M{"$sort": bson.M{"_id": -1}},
			bson.M{"$limit": limit},
			bson.M{"$unwind": "$rows"},
			bson.M{"$replaceRoot": bson.M{"newRoot": "$rows"}},
			bson.M{"$sort": bson.M{"_id.bucket": -1}},
		)
	} else {
		pipeline = append(pipeline,
			bson.M{"$sort": bson.M{"_id.bucket": -1}},
			bson.M{"$limit": limit},
		)
	}
	return pipeline
}

func (r *AnalyticsRepository) TrendBuckets(ctx context.Context, scope domain.Scope, f ports.AnalyticsFilter, period string, limit int, byType bool) ([]ports.TrendRow, error) {
	rows, err := r.run(ctx, trendPipeline(scope, f, period, limit, byType))
	if err != nil {
		return nil, err
	}

	out := make([]ports.TrendRow, 0, len(rows))
	for _, row := range rows {
		id, _ := row["_id"].(bson.M)
		bucket, _ := id["bucket"].(string)
		typ, _ := id["type"].(string)

		statusCounts := make(map[string]int64, len(trendStatuses))
		for _, st := range trendStatuses {
			if n := toInt64(row["status_"+string(st)]); n > 0 {
				statusCounts[string(st)] = n
			}
		}

		out = append(out, ports.TrendRow{
			Bucket:        bucket,
			Type:          typ,
			Total:         toInt64(row["total"]),
			StatusCounts:  statusCounts,
			AvgResolution: toFloat64(row["avg_resolution"]),
			Urgent:        toInt64(row["urgent"]),
			High:          toInt64(row["high"]),
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) HeatmapPoints(ctx context.Context, scope domain.Scope, since time.Time, types, priorities []string, cap int) ([]ports.HeatPoint, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := reportScopeFilter(scope)
	filter["location.coordinates"] = bson.M{"$exists": true}
	filter["created_at"] = bson.M{"$gte": since}
	if len(types) > 0 {
		filter["type"] = bson.M{"$in": types}
	}
	if len(priorities) > 0 {
		filter["priority"] = bson.M{"$in": priorities}
	}

	pipeline := []bson.M{
		{"$match": filter},
		{"$limit": cap},
		{"$project": bson.M{
			"lat":      "$location.coordinates.lat",
			"lng":      "$location.coordinates.lng",
			"priority": 1,
		}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]ports.HeatPoint, 0, len(rows))
	for _, row := range rows {
		priority, _ := row["priority"].(string)
		out = append(out, ports.HeatPoint{
			Lat:      toFloat64(row["lat"]),
			Lng:      toFloat64(row["lng"]),
			Priority: domain.Priority(priority),
		})
	}
	return out, nil
}

func (r *AnalyticsRepository) AssignedStatusCounts(ctx context.Context, scope domain.Scope, userID string, f ports.AnalyticsFilter) (map[string]int64, error) {
	match := analyticsMatch(scope, f)
	match["assigned_to"] = userID

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		status, _ := row["_id"].(string)
		out[status] = toInt64(row["count"])
	}
	return out, nil
}

func (r *AnalyticsRepository) ResolverEfficiency(ctx context.Context, scope domain.Scope, userID string, f ports.AnalyticsFilter) (*ports.EfficiencyStats, error) {
	match := analyticsMatch(scope, f)
	match["resolution.resolved_by"] = userID

	hours := "$resolution.resolution_time_hours"
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id":      nil,
			"count":    bson.M{"$sum": 1},
			"avg":      bson.M{"$avg": hours},
			"min":      bson.M{"$min": hours},
			"max":      bson.M{"$max": hours},
			"under_24": countIf(bson.M{"$lte": bson.A{hours, 24}}),
			"under_48": countIf(bson.M{"$lte": bson.A{hours, 48}}),
			"under_72": countIf(bson.M{"$lte": bson.A{hours, 72}}),
		}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ports.EfficiencyStats{}, nil
	}
	return &ports.EfficiencyStats{
		Count:   toInt64(rows[0]["count"]),
		Avg:     toFloat64(rows[0]["avg"]),
		Min:     toInt64(rows[0]["min"]),
		Max:     toInt64(rows[0]["max"]),
		Under24: toInt64(rows[0]["under_24"]),
		Under48: toInt64(rows[0]["under_48"]),
		Under72: toInt64(rows[0]["under_72"]),
	}, nil
}

func (r *AnalyticsRepository) RatingDistribution(ctx context.Context, scope domain.Scope, userID string, f ports.AnalyticsFilter) (map[int]int64, error) {
	match := analyticsMatch(scope, f)
	match["resolution.resolved_by"] = userID
	match["feedback.rating"] = bson.M{"$exists": true}

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$feedback.rating", "count": bson.M{"$sum": 1}}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make(map[int]int64, 5)
	for _, row := range rows {
		out[int(toInt64(row["_id"]))] = toInt64(row["count"])
	}
	return out, nil
}

func (r *AnalyticsRepository) GroupByDimension(ctx context.Context, scope domain.Scope, dim ports.GroupField, since time.Time) ([]ports.ComparativeRow, error) {
	filter := reportScopeFilter(scope)
	filter["created_at"] = bson.M{"$gte": since}

	resolvedStatuses := bson.A{string(domain.StatusResolved), string(domain.StatusClosed)}
	pipeline := []bson.M{
		{"$match": filter},
		{"$group": bson.M{
			"_id":      "$" + string(dim),
			"total":    bson.M{"$sum": 1},
			"resolved": countIf(bson.M{"$in": bson.A{"$status", resolvedStatuses}}),
			"avg_resolution": bson.M{"$avg": bson.M{"$cond": bson.A{
				bson.M{"$ifNull": bson.A{"$resolution", false}},
				"$resolution.resolution_time_hours",
				nil,
			}}},
			"urgent": countIf(bson.M{"$eq": bson.A{"$priority", string(domain.PriorityUrgent)}}),
		}},
		{"$sort": bson.M{"total": -1}},
	}

	rows, err := r.run(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]ports.ComparativeRow, 0, len(rows))
	for _, row := range rows {
		category, _ := row["_id"].(string)
		if category == "" {
			category = "unspecified"
		}
		out = append(out, ports.ComparativeRow{
			Category:      category,
			Total:         toInt64(row["total"]),
			Resolved:      toInt64(row["resolved"]),
			AvgResolution: toFloat64(row["avg_resolution"]),
			Urgent:        toInt64(row["urgent"]),
		})
	}
	return out, nil
}

// run executes one pipeline and decodes all rows.
func (r *AnalyticsRepository) run(ctx context.Context, pipeline []bson.M) ([]bson.M, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// countIf builds the $sum-$cond accumulator counting documents matching cond.
func countIf(cond bson.M) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{cond, 1, 0}}}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
