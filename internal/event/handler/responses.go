package handler

import (
	"encoding/json"
	"time"

	"github.com/fudign/kfa-sub000/internal/event/models"
)

type EventResponse struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	EventType            string     `json:"event_type"`
	Status               string     `json:"status"`
	Location             string     `json:"location,omitempty"`
	StartsAt             time.Time  `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxParticipants      *int       `json:"max_participants"`
	RegisteredCount      int        `json:"registered_count"`
	AvailableSpots       *int       `json:"available_spots"`
	IsRegistrationOpen   bool       `json:"is_registration_open"`
	RequiresApproval     bool       `json:"requires_approval"`
	Price                float64    `json:"price"`
	MemberPrice          *float64   `json:"member_price"`
	CPEHours             float64    `json:"cpe_hours"`
	IssuesCertificate    bool       `json:"issues_certificate"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// FromEvent renders e as seen at now.
func FromEvent(e *models.Event, now time.Time) EventResponse {
	return EventResponse{
		ID:                   e.ID.String(),
		Title:                e.Title,
		Description:          e.Description,
		EventType:            string(e.Type),
		Status:               string(e.Status),
		Location:             e.Location,
		StartsAt:             e.StartsAt,
		EndsAt:               e.EndsAt,
		RegistrationDeadline: e.RegistrationDeadline,
		MaxParticipants:      e.MaxParticipants,
		RegisteredCount:      e.RegisteredCount,
		AvailableSpots:       e.AvailableSpots(),
		IsRegistrationOpen:   e.IsRegistrationOpen(now),
		RequiresApproval:     e.RequiresApproval,
		Price:                e.Price,
		MemberPrice:          e.MemberPrice,
		CPEHours:             e.CPEHours,
		IssuesCertificate:    e.IssuesCertificate,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

type RegistrationResponse struct {
	ID                  string          `json:"id"`
	EventID             string          `json:"event_id"`
	UserID              string          `json:"user_id"`
	UserName            string          `json:"user_name"`
	UserEmail           string          `json:"user_email"`
	Status              string          `json:"status"`
	Answers             json.RawMessage `json:"answers,omitempty"`
	AmountPaid          float64         `json:"amount_paid"`
	ApprovedAt          *time.Time      `json:"approved_at"`
	ApprovedBy          *string         `json:"approved_by"`
	AttendedAt          *time.Time      `json:"attended_at"`
	CPEHoursEarned      *float64        `json:"cpe_hours_earned"`
	CertificateIssuedAt *time.Time      `json:"certificate_issued_at"`
	CancelledAt         *time.Time      `json:"cancelled_at"`
	Notes               string          `json:"notes,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func FromRegistration(r *models.Registration) RegistrationResponse {
	resp := RegistrationResponse{
		ID:                  r.ID.String(),
		EventID:             r.EventID.String(),
		UserID:              r.UserID.String(),
		UserName:            r.UserName,
		UserEmail:           r.UserEmail,
		Status:              string(r.Status),
		Answers:             r.Answers,
		AmountPaid:          r.AmountPaid,
		ApprovedAt:          r.ApprovedAt,
		AttendedAt:          r.AttendedAt,
		CPEHoursEarned:      r.CPEHoursEarned,
		CertificateIssuedAt: r.CertificateIssuedAt,
		CancelledAt:         r.CancelledAt,
		Notes:               r.Notes,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.ApprovedBy != nil {
		s := r.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	return resp
}

type StatsResponse struct {
	Event               *EventResponse `json:"event,omitempty"`
	Total               int            `json:"total"`
	ByStatus            map[string]int `json:"by_status"`
	CertificatesIssued  int            `json:"certificates_issued"`
	TotalCPEHoursEarned float64        `json:"total_cpe_hours_earned"`
}

// FromOverview lists every status, zero counts included.
func FromOverview(o models.Overview, now time.Time) StatsResponse {
	resp := StatsResponse{
		Total:               o.Stats.Total,
		ByStatus:            make(map[string]int, len(models.AllStatuses)),
		CertificatesIssued:  o.Stats.CertificatesIssued,
		TotalCPEHoursEarned: o.Stats.TotalCPEHoursEarned,
	}
	for _, st := range models.AllStatuses {
		resp.ByStatus[string(st)] = o.Stats.ByStatus[st]
	}
	if o.Event != nil {
		e := FromEvent(o.Event, now)
		resp.Event = &e
	}
	return resp
}
