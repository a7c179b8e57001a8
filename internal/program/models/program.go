package models

import (
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

type ProgramType string

const (
	TypeCourse            ProgramType = "course"
	TypeWorkshopSeries    ProgramType = "workshop_series"
	TypeCertificationPrep ProgramType = "certification_prep"
	TypeMentorship        ProgramType = "mentorship"
	TypeOnlineCourse      ProgramType = "online_course"
)

var AllProgramTypes = []ProgramType{TypeCourse, TypeWorkshopSeries, TypeCertificationPrep, TypeMentorship, TypeOnlineCourse}

func ParseProgramType(s string) (ProgramType, error) {
	t := ProgramType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProgramTypes {
		if t == known {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid program_type")
}

type ProgramStatus string

const (
	ProgramDraft            ProgramStatus = "draft"
	ProgramPublished        ProgramStatus = "published"
	ProgramEnrollmentOpen   ProgramStatus = "enrollment_open"
	ProgramEnrollmentClosed ProgramStatus = "enrollment_closed"
	ProgramInProgress       ProgramStatus = "in_progress"
	ProgramCompleted        ProgramStatus = "completed"
	ProgramArchived         ProgramStatus = "archived"
)

var AllProgramStatuses = []ProgramStatus{
	ProgramDraft, ProgramPublished, ProgramEnrollmentOpen, ProgramEnrollmentClosed,
	ProgramInProgress, ProgramCompleted, ProgramArchived,
}

func ParseProgramStatus(s string) (ProgramStatus, error) {
	st := ProgramStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllProgramStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid status")
}

// Program is a multi-session course members enroll in.
//
// Invariants:
//   - EnrolledCount counts enrollments that are neither cancelled nor dropped
//   - PassingScore, when set, is within [0, 100]
type Program struct {
	ID                 id.ProgramID
	Title              string
	Description        string
	Type               ProgramType
	Status             ProgramStatus
	StartsAt           *time.Time
	EndsAt             *time.Time
	EnrollmentDeadline *time.Time
	MaxStudents        *int
	EnrolledCount      int
	RequiresApproval   bool
	Price              float64
	MemberPrice        *float64
	CPEHours           float64
	HasExam            bool
	PassingScore       *int
	IssuesCertificate  bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

type ProgramInput struct {
	Title              string
	Description        string
	Type               ProgramType
	Status             ProgramStatus
	StartsAt           *time.Time
	EndsAt             *time.Time
	EnrollmentDeadline *time.Time
	MaxStudents        *int
	RequiresApproval   bool
	Price              float64
	MemberPrice        *float64
	CPEHours           float64
	HasExam            bool
	PassingScore       *int
	IssuesCertificate  bool
}

func NewProgram(programID id.ProgramID, in ProgramInput, now time.Time) (*Program, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "program title is required")
	}
	if in.StartsAt != nil && in.EndsAt != nil && in.EndsAt.Before(*in.StartsAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ends_at must not be before starts_at")
	}
	if in.MaxStudents != nil && *in.MaxStudents < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "max_students must be positive")
	}
	if in.Price < 0 || (in.MemberPrice != nil && *in.MemberPrice < 0) || in.CPEHours < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "prices and cpe_hours cannot be negative")
	}
	if in.PassingScore != nil && (*in.PassingScore < 0 || *in.PassingScore > 100) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "passing_score must be between 0 and 100")
	}
	status := in.Status
	if status == "" {
		status = ProgramDraft
	}
	return &Program{
		ID:                 programID,
		Title:              title,
		Description:        in.Description,
		Type:               in.Type,
		Status:             status,
		StartsAt:           in.StartsAt,
		EndsAt:             in.EndsAt,
		EnrollmentDeadline: in.EnrollmentDeadline,
		MaxStudents:        in.MaxStudents,
		RequiresApproval:   in.RequiresApproval,
		Price:              in.Price,
		MemberPrice:        in.MemberPrice,
		CPEHours:           in.CPEHours,
		HasExam:            in.HasExam,
		PassingScore:       in.PassingScore,
		IssuesCertificate:  in.IssuesCertificate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (p *Program) IsPublic() bool {
	return p.Status != ProgramDraft
}

// IsEnrollmentOpen is evaluated at now; the deadline itself is inclusive.
// Unlike events, a program that has already started may still take students.
func (p *Program) IsEnrollmentOpen(now time.Time) bool {
	if p.Status != ProgramPublished && p.Status != ProgramEnrollmentOpen {
		return false
	}
	if p.EnrollmentDeadline != nil && now.After(*p.EnrollmentDeadline) {
		return false
	}
	return !p.IsFull()
}

func (p *Program) IsFull() bool {
	return p.MaxStudents != nil && p.EnrolledCount >= *p.MaxStudents
}

// AvailableSpots is nil for programs without a capacity.
func (p *Program) AvailableSpots() *int {
	if p.MaxStudents == nil {
		return nil
	}
	n := max(*p.MaxStudents-p.EnrolledCount, 0)
	return &n
}

func (p *Program) PriceFor(isMember bool) float64 {
	if isMember && p.MemberPrice != nil {
		return *p.MemberPrice
	}
	return p.Price
}

// GradesExam reports whether completion is decided by a passing score.
func (p *Program) GradesExam() bool {
	return p.HasExam && p.PassingScore != nil
}

type ProgramFilter struct {
	Status ProgramStatus
	Type   ProgramType
	// PublicOnly hides drafts.
	PublicOnly bool
	Search     string
}

func (f ProgramFilter) Matches(p *Program) bool {
	if f.PublicOnly && !p.IsPublic() {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
