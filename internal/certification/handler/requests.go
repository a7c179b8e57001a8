package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/fudign/kfa-sub000/internal/certification/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/validation"
)

type CreateProgramRequest struct {
	Name             string  `json:"name"`
	Code             string  `json:"code"`
	Type             string  `json:"type"`
	Description      string  `json:"description"`
	ValidityMonths   *int    `json:"validity_months"`
	CPEHoursRequired float64 `json:"cpe_hours_required"`
	IsActive         *bool   `json:"is_active"`

	input models.ProgramInput
}

func (r *CreateProgramRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = models.NormalizeCode(r.Code)
	r.Description = strings.TrimSpace(r.Description)
	if err := validation.First(
		validation.RequiredMax(r.Name, validation.MaxNameLength, "name"),
		validation.RequiredMax(r.Code, validation.MaxCodeLength, "code"),
		validation.MaxLength(r.Description, validation.MaxTextLength, "description"),
	); err != nil {
		return err
	}
	programType, err := models.ParseProgramType(r.Type)
	if err != nil {
		return err
	}
	validity := models.DefaultValidityMonths
	if r.ValidityMonths != nil {
		if *r.ValidityMonths <= 0 {
			return dErrors.New(dErrors.CodeValidation, "validity_months must be positive")
		}
		validity = *r.ValidityMonths
	}
	if r.CPEHoursRequired < 0 {
		return dErrors.New(dErrors.CodeValidation, "cpe_hours_required cannot be negative")
	}
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	r.input = models.ProgramInput{
		Name:             r.Name,
		Code:             r.Code,
		Type:             programType,
		Description:      r.Description,
		ValidityMonths:   validity,
		CPEHoursRequired: r.CPEHoursRequired,
		IsActive:         active,
	}
	return nil
}

func (r *CreateProgramRequest) ParsedInput() models.ProgramInput {
	return r.input
}

type ApplyRequest struct {
	ProgramID string `json:"program_id"`
	Notes     string `json:"notes"`

	programID id.CertificationProgramID
}

func (r *ApplyRequest) Validate() error {
	programID, err := id.ParseCertificationProgramID(strings.TrimSpace(r.ProgramID))
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "program_id is required")
	}
	r.programID = programID
	return nil
}

func (r *ApplyRequest) ParsedProgramID() id.CertificationProgramID {
	return r.programID
}

// NotesRequest carries the mandatory notes of a reject or revoke.
type NotesRequest struct {
	Notes string `json:"notes"`
}

func (r *NotesRequest) Validate() error {
	return validation.Required(r.Notes, "notes")
}

type IssueRequest struct {
	ExamScore   *int            `json:"exam_score"`
	ExamDate    string          `json:"exam_date"`
	ExamResults json.RawMessage `json:"exam_results"`

	outcome models.ExamOutcome
}

func (r *IssueRequest) Validate() error {
	if r.ExamScore == nil {
		return dErrors.New(dErrors.CodeValidation, "exam_score is required")
	}
	raw := strings.TrimSpace(r.ExamDate)
	if raw == "" {
		return dErrors.New(dErrors.CodeValidation, "exam_date is required")
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "exam_date must be a date (YYYY-MM-DD)")
	}
	results := bytes.TrimSpace(r.ExamResults)
	if len(results) == 0 || bytes.Equal(results, []byte("null")) {
		results = nil
	} else if results[0] != '{' {
		return dErrors.New(dErrors.CodeValidation, "exam_results must be an object")
	}
	r.outcome = models.ExamOutcome{Score: *r.ExamScore, Date: date, Results: results}
	return r.outcome.Validate()
}

func (r *IssueRequest) ParsedOutcome() models.ExamOutcome {
	return r.outcome
}
