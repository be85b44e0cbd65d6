package ports

import (
	"context"
	"time"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// ListReportsFilter carries all query parameters for listing reports.
// The scope is always enforced first; the remaining fields are caller
// refinements on top of it.
type ListReportsFilter struct {
	Status   string
	Type     string
	Priority string
	DateFrom time.Time // optional: created_at >= DateFrom
	DateTo   time.Time // optional: created_at <= DateTo
	Page     int       // 1-based
	Limit    int       // max rows per page (capped at 100 by service)
}

// TransitionUpdate is the single atomic write applied by a validated
// transition. ExpectedVersion implements optimistic concurrency: the write
// only matches a document still at that version.
type TransitionUpdate struct {
	ReportID        string
	ExpectedVersion int64
	Status          domain.ReportStatus
	AssignedTo      string // set only when Status == assigned
	Resolution      *domain.Resolution
	Entry           domain.TimelineEntry
	UpdatedAt       time.Time
}

// ReportRepository defines persistence operations for reports. Every read
// and write takes the caller's scope and applies it before any other
// predicate.
type ReportRepository interface {
	Create(ctx context.Context, r *domain.Report) error
	FindByID(ctx context.Context, scope domain.Scope, id string) (*domain.Report, error)
	// List returns a page of reports matching filter and the total count.
	List(ctx context.Context, scope domain.Scope, filter ListReportsFilter) ([]*domain.Report, int64, error)
	// ApplyTransition performs the conditional update. domain.ErrConflict is
	// returned when ExpectedVersion no longer matches (lost-update race).
	// Resolution fields are cleared whenever the target status is outside
	// resolved/closed, so direct data edits cannot leave stale metrics behind.
	ApplyTransition(ctx context.Context, scope domain.Scope, upd TransitionUpdate) error
	// IncrementViewCount is a best-effort side effect; failures are logged by
	// the caller and never fail the read.
	IncrementViewCount(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, scope domain.Scope, id string) error
	SetFeedback(ctx context.Context, scope domain.Scope, id string, fb domain.Feedback) error
	// AnonymizeReporter blanks the reporter identity on all reports filed by
	// the user and returns the number of reports touched.
	AnonymizeReporter(ctx context.Context, userID string) (int64, error)
}
