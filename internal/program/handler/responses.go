package handler

import (
	"time"

	"github.com/fudign/kfa-sub000/internal/program/models"
)

type ProgramResponse struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	ProgramType        string     `json:"program_type"`
	Status             string     `json:"status"`
	StartsAt           *time.Time `json:"starts_at"`
	EndsAt             *time.Time `json:"ends_at"`
	EnrollmentDeadline *time.Time `json:"enrollment_deadline"`
	MaxStudents        *int       `json:"max_students"`
	EnrolledCount      int        `json:"enrolled_count"`
	AvailableSpots     *int       `json:"available_spots"`
	IsEnrollmentOpen   bool       `json:"is_enrollment_open"`
	RequiresApproval   bool       `json:"requires_approval"`
	Price              float64    `json:"price"`
	MemberPrice        *float64   `json:"member_price"`
	CPEHours           float64    `json:"cpe_hours"`
	HasExam            bool       `json:"has_exam"`
	PassingScore       *int       `json:"passing_score"`
	IssuesCertificate  bool       `json:"issues_certificate"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func FromProgram(p *models.Program, now time.Time) ProgramResponse {
	return ProgramResponse{
		ID:                 p.ID.String(),
		Title:              p.Title,
		Description:        p.Description,
		ProgramType:        string(p.Type),
		Status:             string(p.Status),
		StartsAt:           p.StartsAt,
		EndsAt:             p.EndsAt,
		EnrollmentDeadline: p.EnrollmentDeadline,
		MaxStudents:        p.MaxStudents,
		EnrolledCount:      p.EnrolledCount,
		AvailableSpots:     p.AvailableSpots(),
		IsEnrollmentOpen:   p.IsEnrollmentOpen(now),
		RequiresApproval:   p.RequiresApproval,
		Price:              p.Price,
		MemberPrice:        p.MemberPrice,
		CPEHours:           p.CPEHours,
		HasExam:            p.HasExam,
		PassingScore:       p.PassingScore,
		IssuesCertificate:  p.IssuesCertificate,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

type EnrollmentResponse struct {
	ID                  string     `json:"id"`
	ProgramID           string     `json:"program_id"`
	UserID              string     `json:"user_id"`
	UserName            string     `json:"user_name"`
	UserEmail           string     `json:"user_email"`
	Status              string     `json:"status"`
	AmountPaid          float64    `json:"amount_paid"`
	Progress            int        `json:"progress"`
	ApprovedAt          *time.Time `json:"approved_at"`
	ApprovedBy          *string    `json:"approved_by"`
	StartedAt           *time.Time `json:"started_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	ExamScore           *int       `json:"exam_score"`
	Passed              *bool      `json:"passed"`
	CPEHoursEarned      *float64   `json:"cpe_hours_earned"`
	CertificateIssued   bool       `json:"certificate_issued"`
	CertificateIssuedAt *time.Time `json:"certificate_issued_at"`
	CertificateURL      string     `json:"certificate_url,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func FromEnrollment(e *models.Enrollment) EnrollmentResponse {
	resp := EnrollmentResponse{
		ID:                  e.ID.String(),
		ProgramID:           e.ProgramID.String(),
		UserID:              e.UserID.String(),
		UserName:            e.UserName,
		UserEmail:           e.UserEmail,
		Status:              string(e.Status),
		AmountPaid:          e.AmountPaid,
		Progress:            e.Progress,
		ApprovedAt:          e.ApprovedAt,
		StartedAt:           e.StartedAt,
		CompletedAt:         e.CompletedAt,
		ExamScore:           e.ExamScore,
		Passed:              e.Passed,
		CPEHoursEarned:      e.CPEHoursEarned,
		CertificateIssued:   e.CertificateIssuedAt != nil,
		CertificateIssuedAt: e.CertificateIssuedAt,
		CertificateURL:      e.CertificateURL,
		CancelledAt:         e.CancelledAt,
		Notes:               e.Notes,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
	if e.ApprovedBy != nil {
		s := e.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	return resp
}

type StatsResponse struct {
	Program             *ProgramResponse `json:"program,omitempty"`
	Total               int              `json:"total"`
	ByStatus            map[string]int   `json:"by_status"`
	CompletionRate      float64          `json:"completion_rate"`
	PassRate            float64          `json:"pass_rate"`
	CertificatesIssued  int              `json:"certificates_issued"`
	TotalCPEHoursEarned float64          `json:"total_cpe_hours_earned"`
	AverageProgress     float64          `json:"average_progress"`
}

// FromOverview lists all eight statuses, zero counts included.
func FromOverview(o models.Overview, now time.Time) StatsResponse {
	resp := StatsResponse{
		Total:               o.Stats.Total,
		ByStatus:            make(map[string]int, len(models.AllStatuses)),
		CompletionRate:      o.Stats.CompletionRate(),
		PassRate:            o.Stats.PassRate(),
		CertificatesIssued:  o.Stats.CertificatesIssued,
		TotalCPEHoursEarned: o.Stats.TotalCPEHoursEarned,
		AverageProgress:     o.Stats.AverageProgress,
	}
	for _, st := range models.AllStatuses {
		resp.ByStatus[string(st)] = o.Stats.ByStatus[st]
	}
	if o.Program != nil {
		p := FromProgram(o.Program, now)
		resp.Program = &p
	}
	return resp
}
