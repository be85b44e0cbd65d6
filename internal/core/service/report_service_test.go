package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicfix/municipal-reports/internal/core/domain"
	"github.com/civicfix/municipal-reports/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubReportRepo struct {
	byID       map[string]*domain.Report
	nextID     int
	createErr  error // if set, Create returns this error once, then clears
	updateErr  error // if set, ApplyTransition returns this error
	viewErr    error // if set, IncrementViewCount returns this error
	anonymized map[string]int64
}

func newStubReportRepo() *stubReportRepo {
	return &stubReportRepo{
		byID:       make(map[string]*domain.Report),
		anonymized: make(map[string]int64),
	}
}

func (r *stubReportRepo) Create(_ context.Context, report *domain.Report) error {
	if r.createErr != nil {
		err := r.createErr
		r.createErr = nil
		return err
	}
	r.nextID++
	report.ID = fmt.Sprintf("report_%d", r.nextID)
	clone := *report
	r.byID[report.ID] = &clone
	return nil
}

// inScope mirrors the Mongo scope filter: tenant, department, and identity
// restrictions are applied before anything else.
func inScope(s domain.Scope, report *domain.Report) bool {
	if report.IsDeleted {
		return false
	}
	if s.All {
		return true
	}
	if s.TenantID != "" && report.TenantID != s.TenantID {
		return false
	}
	if s.Department != "" && report.Department != s.Department {
		return false
	}
	if s.AssignedOrReporterID != "" &&
		report.AssignedTo != s.AssignedOrReporterID &&
		report.ReporterID != s.AssignedOrReporterID {
		return false
	}
	if s.ReporterID != "" && report.ReporterID != s.ReporterID {
		return false
	}
	return true
}

func (r *stubReportRepo) FindByID(_ context.Context, scope domain.Scope, id string) (*domain.Report, error) {
	report, ok := r.byID[id]
	if !ok || !inScope(scope, report) {
		return nil, domain.ErrReportNotFound
	}
	clone := *report
	return &clone, nil
}

func (r *stubReportRepo) List(_ context.Context, scope domain.Scope, f ports.ListReportsFilter) ([]*domain.Report, int64, error) {
	var matched []*domain.Report
	for _, report := range r.byID {
		if !inScope(scope, report) {
			continue
		}
		if f.Status != "" && string(report.Status) != f.Status {
			continue
		}
		if f.Type != "" && report.Type != f.Type {
			continue
		}
		clone := *report
		matched = append(matched, &clone)
	}
	return matched, int64(len(matched)), nil
}

func (r *stubReportRepo) ApplyTransition(_ context.Context, scope domain.Scope, upd ports.TransitionUpdate) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	report, ok := r.byID[upd.ReportID]
	if !ok || !inScope(scope, report) {
		return domain.ErrReportNotFound
	}
	if report.Version != upd.ExpectedVersion {
		return domain.ErrConflict
	}
	report.Status = upd.Status
	report.UpdatedAt = upd.UpdatedAt
	report.Version++
	report.Timeline = append(report.Timeline, upd.Entry)
	if upd.AssignedTo != "" {
		report.AssignedTo = upd.AssignedTo
	}
	if upd.Status == domain.StatusResolved || upd.Status == domain.StatusClosed {
		if upd.Resolution != nil {
			report.Resolution = upd.Resolution
		}
	} else {
		report.Resolution = nil
	}
	return nil
}

func (r *stubReportRepo) IncrementViewCount(_ context.Context, id string) error {
	if r.viewErr != nil {
		return r.viewErr
	}
	if report, ok := r.byID[id]; ok {
		report.Metadata.ViewCount++
	}
	return nil
}

func (r *stubReportRepo) SoftDelete(_ context.Context, scope domain.Scope, id string) error {
	report, ok := r.byID[id]
	if !ok || !inScope(scope, report) {
		return domain.ErrReportNotFound
	}
	report.IsDeleted = true
	return nil
}

func (r *stubReportRepo) SetFeedback(_ context.Context, scope domain.Scope, id string, fb domain.Feedback) error {
	report, ok := r.byID[id]
	if !ok || !inScope(scope, report) {
		return domain.ErrReportNotFound
	}
	report.Feedback = &fb
	return nil
}

func (r *stubReportRepo) AnonymizeReporter(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, report := range r.byID {
		if report.ReporterID == userID {
			report.ReporterID = ""
			n++
		}
	}
	r.anonymized[userID] = n
	return n, nil
}

type stubUserRepo struct {
	byID map[string]*domain.User
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[string]*domain.User)}
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return r
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrUserExists
		}
	}
	if u.ID == "" {
		u.ID = "user_" + u.Email
	}
	r.byID[u.ID] = u
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	out := make(map[string]*domain.User)
	for _, id := range ids {
		if u, ok := r.byID[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *stubUserRepo) Deactivate(_ context.Context, id string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsActive = false
	return nil
}

func (r *stubUserRepo) ListByMinRole(_ context.Context, tenantID string, minRole domain.Role) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.byID {
		if u.TenantID == tenantID && u.IsActive && u.Role.AtLeast(minRole) {
			out = append(out, u)
		}
	}
	return out, nil
}

type stubNotifier struct {
	enqueued []domain.Notification
}

func (n *stubNotifier) Enqueue(notif domain.Notification) {
	n.enqueued = append(n.enqueued, notif)
}

func (n *stubNotifier) EnqueueBatch(ns []domain.Notification) {
	n.enqueued = append(n.enqueued, ns...)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func newTestService(repo *stubReportRepo, users *stubUserRepo) (*ReportService, *stubNotifier) {
	notifier := &stubNotifier{}
	svc := NewReportService(repo, users, NewRecipientResolver(users), notifier, discardLogger)
	return svc, notifier
}

func citizenCaller(userID, tenantID string) domain.Caller {
	return domain.Caller{UserID: userID, Role: domain.RoleCitizen, TenantID: tenantID}
}

func adminCaller(userID, tenantID string) domain.Caller {
	return domain.Caller{UserID: userID, Role: domain.RoleMunicipalityAdmin, TenantID: tenantID}
}

func seedReport(repo *stubReportRepo, tenantID, reporterID string, status domain.ReportStatus) *domain.Report {
	now := time.Now().UTC().Add(-48 * time.Hour)
	report := &domain.Report{
		TenantID:     tenantID,
		ReportNumber: "RPT-00000001",
		Title:        "Broken streetlight",
		Type:         "lighting",
		Status:       status,
		Priority:     domain.PriorityMedium,
		Location:     domain.Location{Address: "Main St 1"},
		ReporterID:   reporterID,
		Timeline:     []domain.TimelineEntry{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_ = repo.Create(context.Background(), report)
	return repo.byID[report.ID]
}

// ---------------------------------------------------------------------------
// Create tests
// ---------------------------------------------------------------------------

var reportNumberPattern = regexp.MustCompile(`^RPT-[0-9A-F]{8}$`)

func TestReportService_Create_Defaults(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())

	report, err := svc.Create(context.Background(), ports.CreateReportInput{
		Caller: citizenCaller("cit_1", "t1"),
		Title:  "Pothole on 5th",
		Type:   "pothole",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reportNumberPattern.MatchString(report.ReportNumber) {
		t.Errorf("report number format wrong: %s", report.ReportNumber)
	}
	if report.Status != domain.StatusNew {
		t.Errorf("status = %s, want new", report.Status)
	}
	if report.Priority != domain.PriorityMedium {
		t.Errorf("priority = %s, want medium default", report.Priority)
	}
	if len(report.Timeline) != 0 {
		t.Errorf("new report must start with an empty timeline, got %d entries", len(report.Timeline))
	}
	if report.TenantID != "t1" {
		t.Errorf("tenant_id = %s, want caller tenant", report.TenantID)
	}
	if report.ReporterID != "cit_1" {
		t.Errorf("reporter_id = %s, want caller", report.ReporterID)
	}
	if report.Version != 1 {
		t.Errorf("version = %d, want 1", report.Version)
	}
}

func TestReportService_Create_DerivesGeoPoint(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())

	report, err := svc.Create(context.Background(), ports.CreateReportInput{
		Caller:      citizenCaller("cit_1", "t1"),
		Title:       "Flooded underpass",
		Type:        "drainage",
		Coordinates: &ports.CoordinatesInput{Lat: 40.41, Lng: -3.70},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Location.Geo == nil {
		t.Fatal("geo point must be derived from coordinates")
	}
	if report.Location.Geo.Coordinates[0] != -3.70 || report.Location.Geo.Coordinates[1] != 40.41 {
		t.Errorf("geo coordinates = %v, want [lng lat]", report.Location.Geo.Coordinates)
	}
}

func TestReportService_Create_RejectsOutOfRangeCoordinates(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())

	_, err := svc.Create(context.Background(), ports.CreateReportInput{
		Caller:      citizenCaller("cit_1", "t1"),
		Title:       "x",
		Type:        "other",
		Coordinates: &ports.CoordinatesInput{Lat: 91, Lng: 0},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestReportService_Create_RetriesOnDuplicateNumber(t *testing.T) {
	repo := newStubReportRepo()
	repo.createErr = domain.ErrDuplicateReport // first attempt collides
	svc, _ := newTestService(repo, newStubUserRepo())

	report, err := svc.Create(context.Background(), ports.CreateReportInput{
		Caller: citizenCaller("cit_1", "t1"),
		Title:  "Graffiti",
		Type:   "vandalism",
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !reportNumberPattern.MatchString(report.ReportNumber) {
		t.Errorf("regenerated number format wrong: %s", report.ReportNumber)
	}
}

func TestReportService_Create_NoTenant(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())

	_, err := svc.Create(context.Background(), ports.CreateReportInput{
		Caller: domain.Caller{UserID: "cit_1", Role: domain.RoleCitizen},
		Title:  "x",
		Type:   "other",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}
}

// ---------------------------------------------------------------------------
// Transition tests: assignment
// ---------------------------------------------------------------------------

func TestReportService_Transition_AssignHappyPath(t *testing.T) {
	repo := newStubReportRepo()
	users := newStubUserRepo(
		&domain.User{ID: "emp_1", TenantID: "t1", Name: "Maria", Role: domain.RoleEmployee, IsActive: true},
		&domain.User{ID: "adm_1", TenantID: "t1", Name: "Chief", Role: domain.RoleMunicipalityAdmin, IsActive: true},
		&domain.User{ID: "cit_1", TenantID: "t1", Name: "Ana", Role: domain.RoleCitizen, IsActive: true},
	)
	svc, notifier := newTestService(repo, users)
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	result, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:     adminCaller("adm_1", "t1"),
		ReportID:   report.ID,
		Target:     domain.StatusAssigned,
		AssignedTo: "emp_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Report.Status != domain.StatusAssigned {
		t.Errorf("status = %s, want assigned", result.Report.Status)
	}
	if result.Report.AssignedTo != "emp_1" {
		t.Errorf("assigned_to = %s, want emp_1", result.Report.AssignedTo)
	}
	if len(result.Report.Timeline) != 1 {
		t.Fatalf("expected exactly 1 timeline entry, got %d", len(result.Report.Timeline))
	}
	entry := result.Report.Timeline[0]
	if entry.Status != domain.StatusAssigned || entry.UserID != "adm_1" {
		t.Errorf("timeline entry = %+v", entry)
	}
	if entry.Comment != "Assigned to Maria" {
		t.Errorf("default comment = %q, want %q", entry.Comment, "Assigned to Maria")
	}
	if result.Report.Version != 2 {
		t.Errorf("version = %d, want 2", result.Report.Version)
	}

	// Recipients: reporter + assignee + municipality admin, deduplicated.
	if len(result.Recipients) != 3 {
		t.Fatalf("expected 3 recipients, got %d: %+v", len(result.Recipients), result.Recipients)
	}
	if len(notifier.enqueued) != 3 {
		t.Errorf("expected 3 notifications enqueued, got %d", len(notifier.enqueued))
	}
	for _, n := range notifier.enqueued {
		if n.DeliveryID == "" {
			t.Error("every notification needs a delivery id")
		}
	}
}

func TestReportService_Transition_AssigneeValidation(t *testing.T) {
	repo := newStubReportRepo()
	users := newStubUserRepo(
		&domain.User{ID: "emp_other", TenantID: "t2", Name: "Bob", Role: domain.RoleEmployee, IsActive: true},
		&domain.User{ID: "emp_gone", TenantID: "t1", Name: "Eve", Role: domain.RoleEmployee, IsActive: false},
	)
	svc, _ := newTestService(repo, users)
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	cases := []struct {
		name       string
		assignedTo string
	}{
		{"missing assignee", ""},
		{"unknown assignee", "nobody"},
		{"cross-tenant assignee", "emp_other"},
		{"inactive assignee", "emp_gone"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Transition(context.Background(), ports.TransitionInput{
				Caller:     adminCaller("adm_1", "t1"),
				ReportID:   report.ID,
				Target:     domain.StatusAssigned,
				AssignedTo: tc.assignedTo,
			})
			if !errors.Is(err, domain.ErrAssignment) {
				t.Errorf("got %v, want ErrAssignment", err)
			}
		})
	}

	// No timeline entry may exist after failed attempts.
	if len(repo.byID[report.ID].Timeline) != 0 {
		t.Error("failed transitions must not append timeline entries")
	}
}

func TestReportService_Transition_InvalidEdge(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	desc := "done"
	_, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:                adminCaller("adm_1", "t1"),
		ReportID:              report.ID,
		Target:                domain.StatusResolved, // new -> resolved is not allowed
		ResolutionDescription: &desc,
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("got %v, want ErrInvalidTransition", err)
	}
}

// ---------------------------------------------------------------------------
// Transition tests: resolution
// ---------------------------------------------------------------------------

func TestReportService_Transition_ResolveSetsResolution(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusInProgress)

	desc := "Lamp replaced"
	result, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:                adminCaller("adm_1", "t1"),
		ReportID:              report.ID,
		Target:                domain.StatusResolved,
		ResolutionDescription: &desc,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := result.Report.Resolution
	if res == nil {
		t.Fatal("resolution must be set")
	}
	if res.ResolvedByID != "adm_1" {
		t.Errorf("resolved_by = %s, want adm_1", res.ResolvedByID)
	}
	if res.Description != "Lamp replaced" {
		t.Errorf("description = %q", res.Description)
	}
	// The seeded report was created 48h ago.
	if res.ResolutionTimeHours != 48 {
		t.Errorf("resolution_time_hours = %d, want 48", res.ResolutionTimeHours)
	}
}

func TestReportService_Transition_ResolveRequiresDescription(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusInProgress)

	_, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:   adminCaller("adm_1", "t1"),
		ReportID: report.ID,
		Target:   domain.StatusResolved,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation when description is absent", err)
	}

	// An empty but supplied description is accepted.
	empty := ""
	_, err = svc.Transition(context.Background(), ports.TransitionInput{
		Caller:                adminCaller("adm_1", "t1"),
		ReportID:              report.ID,
		Target:                domain.StatusResolved,
		ResolutionDescription: &empty,
	})
	if err != nil {
		t.Errorf("empty supplied description must be accepted, got %v", err)
	}
}

func TestReportService_Transition_RejectRequiresReason(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	_, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:   adminCaller("adm_1", "t1"),
		ReportID: report.ID,
		Target:   domain.StatusRejected,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}

	result, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:          adminCaller("adm_1", "t1"),
		ReportID:        report.ID,
		Target:          domain.StatusRejected,
		RejectionReason: "duplicate of RPT-00000009",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Report.Timeline[0].Comment != "duplicate of RPT-00000009" {
		t.Errorf("rejection reason must become the timeline comment, got %q", result.Report.Timeline[0].Comment)
	}
}

// ---------------------------------------------------------------------------
// Transition tests: optimistic concurrency
// ---------------------------------------------------------------------------

func TestReportService_Transition_ConcurrentWriterLoses(t *testing.T) {
	repo := newStubReportRepo()
	users := newStubUserRepo(
		&domain.User{ID: "emp_1", TenantID: "t1", Name: "Maria", Role: domain.RoleEmployee, IsActive: true},
	)
	svc, _ := newTestService(repo, users)
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	// The winning writer commits normally.
	_, err := svc.Transition(context.Background(), ports.TransitionInput{
		Caller:     adminCaller("adm_1", "t1"),
		ReportID:   report.ID,
		Target:     domain.StatusAssigned,
		AssignedTo: "emp_1",
	})
	if err != nil {
		t.Fatalf("winning transition failed: %v", err)
	}

	// The losing writer's conditional update misses its expected version.
	repo.updateErr = domain.ErrConflict
	_, err = svc.Transition(context.Background(), ports.TransitionInput{
		Caller:   adminCaller("adm_1", "t1"),
		ReportID: report.ID,
		Target:   domain.StatusInProgress,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("got %v, want ErrConflict for the losing writer", err)
	}
	// Exactly one timeline entry from the winning write.
	if got := len(repo.byID[report.ID].Timeline); got != 1 {
		t.Errorf("expected 1 timeline entry after one committed transition, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Scope isolation tests
// ---------------------------------------------------------------------------

func TestReportService_Get_CitizenCannotSeeForeignReport(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	// Another citizen of the same tenant.
	_, err := svc.Get(context.Background(), citizenCaller("cit_2", "t1"), report.ID)
	if !errors.Is(err, domain.ErrReportNotFound) {
		t.Errorf("foreign citizen read: got %v, want ErrReportNotFound", err)
	}

	// A caller from another tenant, even an admin.
	_, err = svc.Get(context.Background(), adminCaller("adm_2", "t2"), report.ID)
	if !errors.Is(err, domain.ErrReportNotFound) {
		t.Errorf("cross-tenant read: got %v, want ErrReportNotFound", err)
	}

	// The reporter still sees it.
	if _, err := svc.Get(context.Background(), citizenCaller("cit_1", "t1"), report.ID); err != nil {
		t.Errorf("reporter read failed: %v", err)
	}
}

func TestReportService_Get_ViewCountBestEffort(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	got, err := svc.Get(context.Background(), citizenCaller("cit_1", "t1"), report.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Metadata.ViewCount != 1 {
		t.Errorf("view count = %d, want 1", got.Metadata.ViewCount)
	}

	// A failing increment must not fail the read.
	repo.viewErr = errors.New("redis down")
	if _, err := svc.Get(context.Background(), citizenCaller("cit_1", "t1"), report.ID); err != nil {
		t.Errorf("read must survive a failed view-count increment, got %v", err)
	}
}

func TestReportService_List_Caps(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())

	result, err := svc.List(context.Background(), ports.ListReportsInput{
		Caller: adminCaller("adm_1", "t1"),
		Filter: ports.ListReportsFilter{Limit: 500},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Limit != ports.MaxListLimit {
		t.Errorf("limit = %d, want capped at %d", result.Limit, ports.MaxListLimit)
	}

	_, err = svc.List(context.Background(), ports.ListReportsInput{
		Caller: adminCaller("adm_1", "t1"),
		Filter: ports.ListReportsFilter{Page: 100, Limit: 50},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("page depth beyond %d must be rejected, got %v", ports.MaxListTotal, err)
	}
}

// ---------------------------------------------------------------------------
// Delete, feedback, anonymization
// ---------------------------------------------------------------------------

func TestReportService_Delete_CitizenForbidden(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusNew)

	err := svc.Delete(context.Background(), citizenCaller("cit_1", "t1"), report.ID)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("got %v, want ErrForbidden", err)
	}

	if err := svc.Delete(context.Background(), adminCaller("adm_1", "t1"), report.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if !repo.byID[report.ID].IsDeleted {
		t.Error("report must be soft-deleted, not removed")
	}
}

func TestReportService_SubmitFeedback(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusResolved)

	// Only the reporter may rate.
	_, err := svc.SubmitFeedback(context.Background(), ports.FeedbackInput{
		Caller: adminCaller("adm_1", "t1"), ReportID: report.ID, Rating: 5,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-reporter feedback: got %v, want ErrForbidden", err)
	}

	// Rating bounds.
	_, err = svc.SubmitFeedback(context.Background(), ports.FeedbackInput{
		Caller: citizenCaller("cit_1", "t1"), ReportID: report.ID, Rating: 6,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("rating 6: got %v, want ErrValidation", err)
	}

	got, err := svc.SubmitFeedback(context.Background(), ports.FeedbackInput{
		Caller: citizenCaller("cit_1", "t1"), ReportID: report.ID, Rating: 4, Comment: "quick fix",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Feedback == nil || got.Feedback.Rating != 4 {
		t.Errorf("feedback = %+v, want rating 4", got.Feedback)
	}
}

func TestReportService_SubmitFeedback_RequiresResolvedReport(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	report := seedReport(repo, "t1", "cit_1", domain.StatusInProgress)

	_, err := svc.SubmitFeedback(context.Background(), ports.FeedbackInput{
		Caller: citizenCaller("cit_1", "t1"), ReportID: report.ID, Rating: 3,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("got %v, want ErrValidation for unresolved report", err)
	}
}

func TestReportService_AnonymizeReporter(t *testing.T) {
	repo := newStubReportRepo()
	svc, _ := newTestService(repo, newStubUserRepo())
	seedReport(repo, "t1", "cit_1", domain.StatusNew)
	seedReport(repo, "t1", "cit_1", domain.StatusClosed)
	seedReport(repo, "t1", "cit_2", domain.StatusNew)

	n, err := svc.AnonymizeReporter(context.Background(), "cit_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("anonymized %d reports, want 2", n)
	}
	for _, r := range repo.byID {
		if r.ReporterID == "cit_1" {
			t.Error("reporter id must be blanked on all of the user's reports")
		}
	}
}
