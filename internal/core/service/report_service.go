package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// ReportService implements the report lifecycle: creation, scoped reads, the
// transition state machine, soft deletion, and feedback.
type ReportService struct {
	repo     ports.ReportRepository
	users    ports.UserRepository
	resolver *RecipientResolver
	notifier ports.Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewReportService(
	repo ports.ReportRepository,
	users ports.UserRepository,
	resolver *RecipientResolver,
	notifier ports.Notifier,
	logger zerolog.Logger,
) *ReportService {
	return &ReportService{
		repo:     repo,
		users:    users,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create files a new report in the caller's tenant with status new and an
// empty timeline. The report number is assigned once and never mutated.
func (s *ReportService) Create(ctx context.Context, in ports.CreateReportInput) (*domain.Report, error) {
	if in.Caller.TenantID == "" && in.Caller.Role != domain.RoleSuperSuperAdmin {
		return nil, domain.ErrForbidden
	}
	if in.Title == "" || in.Type == "" {
		return nil, fmt.Errorf("%w: title and type are required", domain.ErrValidation)
	}

	priority := domain.Priority(in.Priority)
	if in.Priority == "" {
		priority = domain.PriorityMedium
	}

	loc := domain.Location{Address: in.Address, District: in.District}
	if in.Coordinates != nil {
		if in.Coordinates.Lat < -90 || in.Coordinates.Lat > 90 ||
			in.Coordinates.Lng < -180 || in.Coordinates.Lng > 180 {
			return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
		}
		c := domain.Coordinates{Lat: in.Coordinates.Lat, Lng: in.Coordinates.Lng}
		loc.Coordinates = &c
		loc.Geo = domain.NewGeoPoint(c)
	}

	now := s.now()
	report := &domain.Report{
		TenantID:     in.Caller.TenantID,
		ReportNumber: generateReportNumber(),
		Title:        in.Title,
		Description:  in.Description,
		Type:         in.Type,
		Status:       domain.StatusNew,
		Priority:     priority,
		Location:     loc,
		ReporterID:   in.Caller.UserID,
		Department:   in.Department,
		Timeline:     []domain.TimelineEntry{},
		Metadata:     domain.Metadata{Tags: in.Tags},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The (tenant, report_number) index is unique; regenerate on the rare collision.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = s.repo.Create(ctx, report); err == nil {
			s.logger.Info().
				Str("report_number", report.ReportNumber).
				Str("tenant_id", report.TenantID).
				Str("type", report.Type).
				Msg("report created")
			return report, nil
		}
		if !errors.Is(err, domain.ErrDuplicateReport) {
			break
		}
		report.ReportNumber = generateReportNumber()
	}
	s.logger.Error().Err(err).Msg("failed to create report")
	return nil, err
}

// Get loads the scoped report and bumps its view count. The increment is a
// side effect and never blocks or fails the read.
func (s *ReportService) Get(ctx context.Context, caller domain.Caller, id string) (*domain.Report, error) {
	scope, err := ResolveScope(caller)
	if err != nil {
		return nil, err
	}

	report, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.IncrementViewCount(ctx, report.ID); err != nil {
		s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("view count increment failed")
	} else {
		report.Metadata.ViewCount++
	}

	return report, nil
}

// List returns a scoped page of reports.
func (s *ReportService) List(ctx context.Context, in ports.ListReportsInput) (*ports.ListReportsResult, error) {
	scope, err := ResolveScope(in.Caller)
	if err != nil {
		return nil, err
	}

	filter := in.Filter
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > ports.MaxListLimit {
		filter.Limit = ports.MaxListLimit
	}
	if filter.Page*filter.Limit > ports.MaxListTotal {
		return nil, fmt.Errorf("%w: page too deep", domain.ErrValidation)
	}

	items, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}
	return &ports.ListReportsResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// Transition validates and applies a status change. The write is a single
// atomic document update guarded by the version read at load time; a stale
// writer receives domain.ErrConflict and must re-read and retry. On success
// the recipient set is computed and delivery is handed to the notifier
// without ever affecting the committed transition.
func (s *ReportService) Transition(ctx context.Context, in ports.TransitionInput) (*ports.TransitionResult, error) {
	scope, err := ResolveScope(in.Caller)
	if err != nil {
		return nil, err
	}

	report, err := s.repo.FindByID(ctx, scope, in.ReportID)
	if err != nil {
		return nil, err
	}

	if !report.Status.CanTransitionTo(in.Target) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, report.Status, in.Target)
	}

	now := s.now()
	comment := in.Comment
	upd := ports.TransitionUpdate{
		ReportID:        report.ID,
		ExpectedVersion: report.Version,
		Status:          in.Target,
		UpdatedAt:       now,
	}

	switch in.Target {
	case domain.StatusAssigned:
		assignee, err := s.validateAssignee(ctx, report, in.AssignedTo)
		if err != nil {
			return nil, err
		}
		upd.AssignedTo = assignee.ID
		if comment == "" {
			comment = "Assigned to " + assignee.Name
		}

	case domain.StatusResolved:
		if in.ResolutionDescription == nil {
			return nil, fmt.Errorf("%w: resolution description must be supplied", domain.ErrValidation)
		}
		upd.Resolution = &domain.Resolution{
			ResolvedByID:        in.Caller.UserID,
			ResolvedAt:          now,
			ResolutionTimeHours: domain.ResolutionTimeHours(report.CreatedAt, now),
			Description:         *in.ResolutionDescription,
		}
		if comment == "" {
			comment = *in.ResolutionDescription
		}

	case domain.StatusRejected:
		if in.RejectionReason == "" {
			return nil, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
		}
		if comment == "" {
			comment = in.RejectionReason
		}
	}

	upd.Entry = domain.TimelineEntry{
		Status:    in.Target,
		UserID:    in.Caller.UserID,
		Comment:   comment,
		Timestamp: now,
	}

	if err := s.repo.ApplyTransition(ctx, scope, upd); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn().
				Str("report_id", report.ID).
				Int64("version", report.Version).
				Msg("transition lost optimistic-concurrency race")
		}
		return nil, err
	}

	// Reflect the committed write on the loaded copy.
	report.Status = in.Target
	report.UpdatedAt = now
	report.Version++
	report.Timeline = append(report.Timeline, upd.Entry)
	if upd.AssignedTo != "" {
		report.AssignedTo = upd.AssignedTo
	}
	if in.Target == domain.StatusResolved {
		report.Resolution = upd.Resolution
	}

	recipients := s.notify(ctx, report, in.Target, comment)

	s.logger.Info().
		Str("report_id", report.ID).
		Str("report_number", report.ReportNumber).
		Str("status", string(in.Target)).
		Str("actor", in.Caller.UserID).
		Msg("report transitioned")

	return &ports.TransitionResult{Report: report, Recipients: recipients}, nil
}

// validateAssignee checks the assignment target exists, is active, and
// belongs to the report's tenant.
func (s *ReportService) validateAssignee(ctx context.Context, report *domain.Report, assigneeID string) (*domain.User, error) {
	if assigneeID == "" {
		return nil, fmt.Errorf("%w: assigned_to is required", domain.ErrAssignment)
	}
	assignee, err := s.users.FindByID(ctx, assigneeID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", domain.ErrAssignment, assigneeID)
		}
		return nil, err
	}
	if assignee.TenantID != report.TenantID {
		return nil, fmt.Errorf("%w: user %s belongs to another tenant", domain.ErrAssignment, assigneeID)
	}
	if !assignee.IsActive {
		return nil, fmt.Errorf("%w: user %s is inactive", domain.ErrAssignment, assigneeID)
	}
	return assignee, nil
}

// notify computes the recipient set and enqueues delivery. Any failure here
// is logged only; the transition is already committed.
func (s *ReportService) notify(ctx context.Context, report *domain.Report, target domain.ReportStatus, comment string) []domain.Recipient {
	recipients, err := s.resolver.Resolve(ctx, report)
	if err != nil {
		s.logger.Warn().Err(err).Str("report_id", report.ID).Msg("recipient resolution failed")
		return nil
	}

	if s.notifier != nil {
		ns := make([]domain.Notification, 0, len(recipients))
		for _, r := range recipients {
			ns = append(ns, domain.Notification{
				DeliveryID:  uuid.NewString(),
				RecipientID: r.UserID,
				Title:       fmt.Sprintf("Report %s is now %s", report.ReportNumber, target),
				Body:        comment,
				Priority:    report.Priority,
				Link:        "/reports/" + report.ID,
			})
		}
		s.notifier.EnqueueBatch(ns)
	}

	return recipients
}

// Delete soft-deletes the report. Citizens cannot delete reports; their
// account-deletion path anonymizes instead.
func (s *ReportService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if !caller.Role.IsStaff() {
		return domain.ErrForbidden
	}
	scope, err := ResolveScope(caller)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, scope, id); err != nil {
		return err
	}
	s.logger.Info().Str("report_id", id).Str("actor", caller.UserID).Msg("report soft-deleted")
	return nil
}

// SubmitFeedback records the reporter's 1–5 rating once a report is
// resolved or closed.
func (s *ReportService) SubmitFeedback(ctx context.Context, in ports.FeedbackInput) (*domain.Report, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}
	scope, err := ResolveScope(in.Caller)
	if err != nil {
		return nil, err
	}
	report, err := s.repo.FindByID(ctx, scope, in.ReportID)
	if err != nil {
		return nil, err
	}
	if report.ReporterID != in.Caller.UserID {
		return nil, domain.ErrForbidden
	}
	if report.Status != domain.StatusResolved && report.Status != domain.StatusClosed {
		return nil, fmt.Errorf("%w: feedback requires a resolved report", domain.ErrValidation)
	}

	fb := domain.Feedback{Rating: in.Rating, Comment: in.Comment}
	if err := s.repo.SetFeedback(ctx, scope, report.ID, fb); err != nil {
		return nil, err
	}
	report.Feedback = &fb
	return report, nil
}

// AnonymizeReporter blanks the reporter identity on the user's reports.
// Reports are kept; only the link to the account is removed.
func (s *ReportService) AnonymizeReporter(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.AnonymizeReporter(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("user_id", userID).Int64("reports", n).Msg("reporter anonymized")
	return n, nil
}

// generateReportNumber returns a report number in the format RPT-XXXXXXXX.
func generateReportNumber() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("RPT-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("RPT-%08X", b)
}
