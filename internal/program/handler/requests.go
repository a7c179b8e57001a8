package handler

import (
	"strings"
	"time"

	"github.com/fudign/kfa-sub000/internal/program/models"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/validation"
)

type CreateProgramRequest struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	ProgramType        string   `json:"program_type"`
	Status             string   `json:"status"`
	StartsAt           string   `json:"starts_at"`
	EndsAt             string   `json:"ends_at"`
	EnrollmentDeadline string   `json:"enrollment_deadline"`
	MaxStudents        *int     `json:"max_students"`
	RequiresApproval   bool     `json:"requires_approval"`
	Price              float64  `json:"price"`
	MemberPrice        *float64 `json:"member_price"`
	CPEHours           float64  `json:"cpe_hours"`
	HasExam            bool     `json:"has_exam"`
	PassingScore       *int     `json:"passing_score"`
	IssuesCertificate  bool     `json:"issues_certificate"`

	input models.ProgramInput
}

func (r *CreateProgramRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if err := validation.First(
		validation.RequiredMax(r.Title, validation.MaxTitleLength, "title"),
		validation.MaxLength(r.Description, validation.MaxTextLength, "description"),
	); err != nil {
		return err
	}
	programType, err := models.ParseProgramType(r.ProgramType)
	if err != nil {
		return err
	}
	status := models.ProgramDraft
	if strings.TrimSpace(r.Status) != "" {
		if status, err = models.ParseProgramStatus(r.Status); err != nil {
			return err
		}
	}
	var times [3]*time.Time
	for i, f := range []struct{ raw, field string }{
		{r.StartsAt, "starts_at"},
		{r.EndsAt, "ends_at"},
		{r.EnrollmentDeadline, "enrollment_deadline"},
	} {
		if times[i], err = parseTime(f.raw, f.field); err != nil {
			return err
		}
	}
	if r.MaxStudents != nil && *r.MaxStudents < 1 {
		return dErrors.New(dErrors.CodeValidation, "max_students must be at least 1")
	}
	if r.Price < 0 || (r.MemberPrice != nil && *r.MemberPrice < 0) {
		return dErrors.New(dErrors.CodeValidation, "price cannot be negative")
	}
	if r.CPEHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "cpe_hours cannot be negative")
	}
	if r.PassingScore != nil {
		if err := validation.Range(*r.PassingScore, 0, 100, "passing_score"); err != nil {
			return err
		}
	}
	r.input = models.ProgramInput{
		Title:              r.Title,
		Description:        r.Description,
		Type:               programType,
		Status:             status,
		StartsAt:           times[0],
		EndsAt:             times[1],
		EnrollmentDeadline: times[2],
		MaxStudents:        r.MaxStudents,
		RequiresApproval:   r.RequiresApproval,
		Price:              r.Price,
		MemberPrice:        r.MemberPrice,
		CPEHours:           r.CPEHours,
		HasExam:            r.HasExam,
		PassingScore:       r.PassingScore,
		IssuesCertificate:  r.IssuesCertificate,
	}
	return nil
}

func (r *CreateProgramRequest) ParsedInput() models.ProgramInput {
	return r.input
}

func parseTime(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" must be an RFC 3339 timestamp")
	}
	return &t, nil
}

type NotesRequest struct {
	Notes string `json:"notes"`
}

func (r *NotesRequest) Validate() error {
	return validation.Required(r.Notes, "notes")
}

type ProgressRequest struct {
	Progress *int `json:"progress"`
}

func (r *ProgressRequest) Validate() error {
	if r.Progress == nil {
		return dErrors.New(dErrors.CodeValidation, "progress is required")
	}
	return validation.Range(*r.Progress, 0, 100, "progress")
}

// CompleteRequest carries the optional exam score; programs with a graded
// exam reject a completion without one.
type CompleteRequest struct {
	ExamScore *int `json:"exam_score"`
}

func (r *CompleteRequest) Validate() error {
	return validateScore(r.ExamScore)
}

type FailRequest struct {
	ExamScore *int   `json:"exam_score"`
	Notes     string `json:"notes"`
}

func (r *FailRequest) Validate() error {
	return validation.First(
		validateScore(r.ExamScore),
		validation.MaxLength(strings.TrimSpace(r.Notes), 1000, "notes"),
	)
}

func validateScore(score *int) error {
	if score == nil {
		return nil
	}
	return validation.Range(*score, 0, 100, "exam_score")
}
