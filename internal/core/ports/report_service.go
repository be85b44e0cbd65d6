package ports

import (
	"context"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// CreateReportInput carries all data needed to file a new report.
type CreateReportInput struct {
	Caller      domain.Caller
	Title       string
	Description string
	Type        string
	Priority    string
	Address     string
	District    string
	Coordinates *CoordinatesInput
	Department  string
	Tags        []string
}

// CoordinatesInput holds geographic coordinates supplied by the reporter.
type CoordinatesInput struct {
	Lat float64
	Lng float64
}

// TransitionInput carries a status-change request through the state machine.
type TransitionInput struct {
	Caller   domain.Caller
	ReportID string
	Target   domain.ReportStatus
	Comment  string
	// AssignedTo is required when Target == assigned; it must resolve to a
	// user of the report's tenant.
	AssignedTo string
	// ResolutionDescription must be supplied (may be empty) when
	// Target == resolved. Nil means not supplied.
	ResolutionDescription *string
	// RejectionReason must be non-empty when Target == rejected.
	RejectionReason string
}

// TransitionResult is returned after a committed transition. Delivery of the
// recipient set is external; its failure never rolls the transition back.
type TransitionResult struct {
	Report     *domain.Report
	Recipients []domain.Recipient
}

// FeedbackInput carries the reporter's rating of a resolved report.
type FeedbackInput struct {
	Caller   domain.Caller
	ReportID string
	Rating   int
	Comment  string
}

// ListReportsInput carries all parameters for the list endpoint.
type ListReportsInput struct {
	Caller domain.Caller
	Filter ListReportsFilter
}

// ListReportsResult is returned by ListReports.
type ListReportsResult struct {
	Items      []*domain.Report
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ReportService defines the report lifecycle use cases.
type ReportService interface {
	Create(ctx context.Context, in CreateReportInput) (*domain.Report, error)
	// Get returns the scoped report and increments its view count as a
	// non-blocking side effect.
	Get(ctx context.Context, caller domain.Caller, id string) (*domain.Report, error)
	List(ctx context.Context, in ListReportsInput) (*ListReportsResult, error)
	// Transition validates and applies a status change, appends exactly one
	// timeline entry, and computes the notification recipient set.
	Transition(ctx context.Context, in TransitionInput) (*TransitionResult, error)
	Delete(ctx context.Context, caller domain.Caller, id string) error
	SubmitFeedback(ctx context.Context, in FeedbackInput) (*domain.Report, error)
	// AnonymizeReporter is the self-service account-deletion entry point:
	// reports stay, the reporter identity is blanked.
	AnonymizeReporter(ctx context.Context, userID string) (int64, error)
}

// SupportedPeriods lists the trend bucket periods accepted by the API.
var SupportedPeriods = []string{"day", "week", "isoweek", "month"}

// DefaultHeatmapDays is the default lookback window for the heatmap.
const DefaultHeatmapDays = 30

// MaxHeatmapPoints caps raw heatmap points to bound memory and latency.
const MaxHeatmapPoints = 2000

// MaxListLimit caps page size on listing endpoints.
const MaxListLimit = 100

// MaxListTotal caps how deep pagination may reach on listing endpoints.
const MaxListTotal = 1000
