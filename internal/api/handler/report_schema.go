package handler

import (
	"time"

	"github.com/civicfix/municipal-reports/internal/core/domain"
)

// successResponse is the standard envelope wrapping all 2xx payloads.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func ok(data any) successResponse {
	return successResponse{Success: true, Data: data}
}

// --- Request types ---

type coordinatesRequest struct {
	Lat float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type createReportRequest struct {
	Title       string              `json:"title"       validate:"required,max=200"`
	Description string              `json:"description" validate:"max=5000"`
	Type        string              `json:"type"        validate:"required"`
	Priority    string              `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	Address     string              `json:"address"     validate:"required"`
	District    string              `json:"district"`
	Coordinates *coordinatesRequest `json:"coordinates" validate:"omitempty"`
	Department  string              `json:"department"`
	Tags        []string            `json:"tags"`
}

// patchReportRequest drives the state machine. Fields beyond status are
// interpreted per target status.
type patchReportRequest struct {
	Status                string  `json:"status" validate:"required,oneof=assigned inProgress resolved closed rejected"`
	AssignedTo            string  `json:"assigned_to"`
	Department            string  `json:"department"`
	StatusComment         string  `json:"status_comment"`
	ResolutionDescription *string `json:"resolution_description"`
	RejectionReason       string  `json:"rejection_reason"`
}

type feedbackRequest struct {
	Rating  int    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// --- Response types ---

type timelineEntryResponse struct {
	Status    string    `json:"status"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type resolutionResponse struct {
	ResolvedBy          string    `json:"resolved_by"`
	ResolvedAt          time.Time `json:"resolved_at"`
	ResolutionTimeHours int64     `json:"resolution_time_hours"`
	Description         string    `json:"description"`
}

type locationResponse struct {
	Address     string              `json:"address"`
	District    string              `json:"district,omitempty"`
	Coordinates *coordinatesRequest `json:"coordinates,omitempty"`
}

type reportResponse struct {
	ID           string                  `json:"id"`
	ReportNumber string                  `json:"report_number"`
	TenantID     string                  `json:"tenant_id"`
	Title        string                  `json:"title"`
	Description  string                  `json:"description,omitempty"`
	Type         string                  `json:"type"`
	Status       string                  `json:"status"`
	Priority     string                  `json:"priority"`
	Location     locationResponse        `json:"location"`
	ReporterID   string                  `json:"reporter_id,omitempty"`
	AssignedTo   string                  `json:"assigned_to,omitempty"`
	Department   string                  `json:"department,omitempty"`
	Timeline     []timelineEntryResponse `json:"timeline"`
	Resolution   *resolutionResponse     `json:"resolution,omitempty"`
	Feedback     *domain.Feedback        `json:"feedback,omitempty"`
	ViewCount    int64                   `json:"view_count"`
	Tags         []string                `json:"tags,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// transitionResponse carries the updated report plus the computed recipient
// set; actual delivery is asynchronous.
type transitionResponse struct {
	Report     reportResponse     `json:"report"`
	Recipients []domain.Recipient `json:"recipients"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listReportsResponse struct {
	Items      []reportResponse   `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

// toReportResponse maps the domain aggregate to the transport shape.
func toReportResponse(r *domain.Report) reportResponse {
	resp := reportResponse{
		ID:           r.ID,
		ReportNumber: r.ReportNumber,
		TenantID:     r.TenantID,
		Title:        r.Title,
		Description:  r.Description,
		Type:         r.Type,
		Status:       string(r.Status),
		Priority:     string(r.Priority),
		Location: locationResponse{
			Address:  r.Location.Address,
			District: r.Location.District,
		},
		ReporterID: r.ReporterID,
		AssignedTo: r.AssignedTo,
		Department: r.Department,
		Timeline:   make([]timelineEntryResponse, 0, len(r.Timeline)),
		Feedback:   r.Feedback,
		ViewCount:  r.Metadata.ViewCount,
		Tags:       r.Metadata.Tags,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Location.Coordinates != nil {
		resp.Location.Coordinates = &coordinatesRequest{
			Lat: r.Location.Coordinates.Lat,
			Lng: r.Location.Coordinates.Lng,
		}
	}
	for _, e := range r.Timeline {
		resp.Timeline = append(resp.Timeline, timelineEntryResponse{
			Status:    string(e.Status),
			UserID:    e.UserID,
			Comment:   e.Comment,
			Timestamp: e.Timestamp,
		})
	}
	if r.Resolution != nil {
		resp.Resolution = &resolutionResponse{
			ResolvedBy:          r.Resolution.ResolvedByID,
			ResolvedAt:          r.Resolution.ResolvedAt,
			ResolutionTimeHours: r.Resolution.ResolutionTimeHours,
			Description:         r.Resolution.Description,
		}
	}
	return resp
}
