package handler

import (
	"time"

	"github.com/fudign/kfa-sub000/internal/cpe/models"
)

type ActivityResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	ActivityType    string     `json:"activity_type"`
	SourceID        *string    `json:"source_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Category        string     `json:"category"`
	Hours           float64    `json:"hours"`
	ActivityDate    string     `json:"activity_date"`
	Evidence        string     `json:"evidence,omitempty"`
	Status          string     `json:"status"`
	ApproverID      *string    `json:"approver_id"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func FromActivity(a *models.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:              a.ID.String(),
		UserID:          a.UserID.String(),
		ActivityType:    string(a.ActivityType),
		Title:           a.Title,
		Description:     a.Description,
		Category:        string(a.Category),
		Hours:           a.Hours,
		ActivityDate:    a.ActivityDate.Format(time.DateOnly),
		Evidence:        a.Evidence,
		Status:          string(a.Status),
		ApprovedAt:      a.ApprovedAt,
		RejectionReason: a.RejectionReason,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.SourceID != nil {
		source := a.SourceID.String()
		resp.SourceID = &source
	}
	if a.ApproverID != nil {
		approver := a.ApproverID.String()
		resp.ApproverID = &approver
	}
	return resp
}

type SummaryResponse struct {
	TotalHours       float64            `json:"total_hours"`
	CurrentYearHours float64            `json:"current_year_hours"`
	CurrentYear      int                `json:"current_year"`
	ByCategory       map[string]float64 `json:"by_category"`
	ByStatus         map[string]int     `json:"by_status"`
	ActivitiesCount  int                `json:"activities_count"`
}

func FromSummary(s models.Summary) SummaryResponse {
	return SummaryResponse{
		TotalHours:       s.TotalHours,
		CurrentYearHours: s.CurrentYearHours,
		CurrentYear:      s.CurrentYear,
		ByCategory:       categoryHours(s.ByCategory),
		ByStatus:         statusCounts(s.ByStatus),
		ActivitiesCount:  s.ActivitiesCount,
	}
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type OverviewResponse struct {
	ByStatus           map[string]int     `json:"by_status"`
	ByCategory         map[string]float64 `json:"by_category"`
	TotalApprovedHours float64            `json:"total_approved_hours"`
	AverageHours       float64            `json:"average_hours"`
	DateRange          DateRange          `json:"date_range"`
}

func FromOverview(o models.Overview) OverviewResponse {
	return OverviewResponse{
		ByStatus:           statusCounts(o.ByStatus),
		ByCategory:         categoryHours(o.ByCategory),
		TotalApprovedHours: o.TotalApprovedHours,
		AverageHours:       o.AverageHours,
		DateRange: DateRange{
			From: o.From.Format(time.DateOnly),
			To:   o.To.Format(time.DateOnly),
		},
	}
}

// statusCounts reports every status, zero included.
func statusCounts(in map[models.Status]int) map[string]int {
	out := make(map[string]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		out[string(st)] = in[st]
	}
	return out
}

func categoryHours(in map[models.Category]float64) map[string]float64 {
	out := make(map[string]float64, len(models.AllCategories))
	for _, c := range models.AllCategories {
		out[string(c)] = in[c]
	}
	return out
}
