package domain

import (
	"time"
)

// ReportStatus represents the lifecycle state of a municipal report.
type ReportStatus string

const (
	StatusNew        ReportStatus = "new"
	StatusAssigned   ReportStatus = "assigned"
	StatusInProgress ReportStatus = "inProgress"
	StatusPending    ReportStatus = "pending"
	StatusResolved   ReportStatus = "resolved"
	StatusClosed     ReportStatus = "closed"
	StatusRejected   ReportStatus = "rejected"
)

// validTransitions defines the allowed state machine transitions.
// closed and rejected are terminal; re-opening is not supported.
var validTransitions = map[ReportStatus][]ReportStatus{
	StatusNew:        {StatusAssigned, StatusRejected},
	StatusAssigned:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   {StatusClosed},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s ReportStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Priority is the urgency level assigned to a report.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Weight returns the numeric weight used for heatmap rendering and
// cluster severity. Unknown priorities weigh the same as low.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// GeoPoint is the GeoJSON point derived from Coordinates, stored under a
// 2dsphere index for spatial queries. Coordinates order is [lng, lat].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NewGeoPoint derives the GeoJSON point for the given coordinates.
func NewGeoPoint(c Coordinates) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{c.Lng, c.Lat}}
}

// Location describes where the reported issue is.
type Location struct {
	Address     string       `json:"address" bson:"address"`
	District    string       `json:"district,omitempty" bson:"district,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	Geo         *GeoPoint    `json:"-" bson:"geo,omitempty"`
}

// TimelineEntry records a single status transition on a report.
// The timeline is append-only: entries are never edited or removed.
type TimelineEntry struct {
	Status    ReportStatus `json:"status" bson:"status"`
	UserID    string       `json:"user_id" bson:"user_id"`
	Comment   string       `json:"comment,omitempty" bson:"comment,omitempty"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
}

// Resolution holds terminal data attached once a report is resolved.
type Resolution struct {
	ResolvedByID        string    `json:"resolved_by" bson:"resolved_by"`
	ResolvedAt          time.Time `json:"resolved_at" bson:"resolved_at"`
	ResolutionTimeHours int64     `json:"resolution_time_hours" bson:"resolution_time_hours"`
	Description         string    `json:"description" bson:"description"`
}

// Feedback is the reporter's rating of a resolved report.
type Feedback struct {
	Rating  int    `json:"rating" bson:"rating"`
	Comment string `json:"comment,omitempty" bson:"comment,omitempty"`
}

// Metadata carries auxiliary report fields.
type Metadata struct {
	ViewCount   int64    `json:"view_count" bson:"view_count"`
	Tags        []string `json:"tags,omitempty" bson:"tags,omitempty"`
	DuplicateOf string   `json:"duplicate_of,omitempty" bson:"duplicate_of,omitempty"`
}

// Report is the core aggregate root. A report belongs to exactly one tenant
// for its entire lifetime. Version guards optimistic-concurrency writes.
type Report struct {
	ID           string          `json:"id" bson:"_id,omitempty"`
	TenantID     string          `json:"tenant_id" bson:"tenant_id"`
	ReportNumber string          `json:"report_number" bson:"report_number"`
	Title        string          `json:"title" bson:"title"`
	Description  string          `json:"description" bson:"description"`
	Type         string          `json:"type" bson:"type"`
	Status       ReportStatus    `json:"status" bson:"status"`
	Priority     Priority        `json:"priority" bson:"priority"`
	Location     Location        `json:"location" bson:"location"`
	ReporterID   string          `json:"reporter_id" bson:"reporter_id"`
	AssignedTo   string          `json:"assigned_to,omitempty" bson:"assigned_to,omitempty"`
	Department   string          `json:"department,omitempty" bson:"department,omitempty"`
	Timeline     []TimelineEntry `json:"timeline" bson:"timeline"`
	Resolution   *Resolution     `json:"resolution,omitempty" bson:"resolution,omitempty"`
	Feedback     *Feedback       `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Metadata     Metadata        `json:"metadata" bson:"metadata"`
	IsDeleted    bool            `json:"-" bson:"is_deleted"`
	Version      int64           `json:"-" bson:"version"`
	CreatedAt    time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" bson:"updated_at"`
}

// ResolutionTimeHours computes the whole hours elapsed between creation and
// resolution, never negative.
func ResolutionTimeHours(createdAt, resolvedAt time.Time) int64 {
	h := int64(resolvedAt.Sub(createdAt) / time.Hour)
	if h < 0 {
		return 0
	}
	return h
}
