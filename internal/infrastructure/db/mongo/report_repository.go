package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

const collectionReports = "reports"

type ReportRepository struct {
	col *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{col: db.Collection(collectionReports)}
}

// Create inserts a new report document.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if report.ID == "" {
		report.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.col.InsertOne(ctx, report)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateReport
		}
		return err
	}
	return nil
}

// FindByID retrieves a report inside the caller's scope. An id belonging to
// another tenant is indistinguishable from a missing one.
func (r *ReportRepository) FindByID(ctx context.Context, scope domain.Scope, id string) (*domain.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := reportScopeFilter(scope)
	filter["_id"] = id

	var report domain.Report
	err := r.col.FindOne(ctx, filter).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// List returns a page of scoped reports matching the filter and the total count.
func (r *ReportRepository) List(ctx context.Context, scope domain.Scope, f ports.ListReportsFilter) ([]*domain.Report, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := reportScopeFilter(scope)
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if dateRange := dateRangeFilter(f.DateFrom, f.DateTo); dateRange != nil {
		filter["created_at"] = dateRange
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []*domain.Report
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ApplyTransition performs the whole transition as one conditional update:
// the write only matches the version read at load time, so a stale writer
// matches nothing and receives domain.ErrConflict. Exactly one timeline
// entry is pushed; resolution is cleared whenever the target status leaves
// the resolved/closed pair so direct edits cannot strand stale metrics.
func (r *ReportRepository) ApplyTransition(ctx context.Context, scope domain.Scope, upd ports.TransitionUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := reportScopeFilter(scope)
	filter["_id"] = upd.ReportID
	filter["version"] = upd.ExpectedVersion

	set := bson.M{
		"status":     string(upd.Status),
		"updated_at": upd.UpdatedAt,
	}
	if upd.AssignedTo != "" {
		set["assigned_to"] = upd.AssignedTo
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"timeline": upd.Entry},
		"$inc":  bson.M{"version": 1},
	}
	switch {
	case upd.Resolution != nil:
		set["resolution"] = upd.Resolution
	case upd.Status != domain.StatusResolved && upd.Status != domain.StatusClosed:
		update["$unset"] = bson.M{"resolution": ""}
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// The report was loaded under this scope moments ago; a miss here
		// means the version moved underneath us.
		return domain.ErrConflict
	}
	return nil
}

// IncrementViewCount bumps the view counter. Callers treat failure as a
// loggable non-event.
func (r *ReportRepository) IncrementViewCount(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"metadata.view_count": 1}},
	)
	return err
}

// SoftDelete flags the report as deleted; documents are never removed.
func (r *ReportRepository) SoftDelete(ctx context.Context, scope domain.Scope, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := reportScopeFilter(scope)
	filter["_id"] = id

	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"is_deleted": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// SetFeedback stores the reporter's rating.
func (r *ReportRepository) SetFeedback(ctx context.Context, scope domain.Scope, id string, fb domain.Feedback) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := reportScopeFilter(scope)
	filter["_id"] = id

	res, err := r.col.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"feedback": fb, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

// AnonymizeReporter blanks the reporter reference on every report the user
// filed. Reports themselves are kept.
func (r *ReportRepository) AnonymizeReporter(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{"reporter_id": userID},
		bson.M{"$set": bson.M{"reporter_id": "", "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// EnsureIndexes creates the compound, unique, and spatial indexes backing
// scoped queries and aggregations.
func (r *ReportRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "reporter_id", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "assigned_to", Value: 1}}},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "report_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "location.geo", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// dateRangeFilter builds the created_at range predicate, nil when unbounded.
func dateRangeFilter(from, to time.Time) bson.M {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	rangeFilter := bson.M{}
	if !from.IsZero() {
		rangeFilter["$gte"] = from
	}
	if !to.IsZero() {
		rangeFilter["$lte"] = to
	}
	return rangeFilter
}
