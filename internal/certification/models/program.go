package models

import (
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// DefaultValidityMonths applies when a program does not set its own validity.
const DefaultValidityMonths = 36

type ProgramType string

const (
	ProgramBasic       ProgramType = "basic"
	ProgramSpecialized ProgramType = "specialized"
)

func ParseProgramType(s string) (ProgramType, error) {
	switch t := ProgramType(strings.ToLower(strings.TrimSpace(s))); t {
	case ProgramBasic, ProgramSpecialized:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "type must be basic or specialized")
}

// Program is a certification track members apply to.
type Program struct {
	ID               id.CertificationProgramID
	Name             string
	Code             string
	Type             ProgramType
	Description      string
	ValidityMonths   int
	CPEHoursRequired float64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

type ProgramInput struct {
	Name             string
	Code             string
	Type             ProgramType
	Description      string
	ValidityMonths   int
	CPEHoursRequired float64
	IsActive         bool
}

// NormalizeCode is the stored form of a program code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewProgram(programID id.CertificationProgramID, in ProgramInput, now time.Time) (*Program, error) {
	code := NormalizeCode(in.Code)
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "program code is required")
	}
	validity := in.ValidityMonths
	if validity == 0 {
		validity = DefaultValidityMonths
	}
	if validity < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "validity_months must be positive")
	}
	if in.CPEHoursRequired < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cpe_hours_required cannot be negative")
	}
	return &Program{
		ID:               programID,
		Name:             strings.TrimSpace(in.Name),
		Code:             code,
		Type:             in.Type,
		Description:      in.Description,
		ValidityMonths:   validity,
		CPEHoursRequired: in.CPEHoursRequired,
		IsActive:         in.IsActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

type ProgramFilter struct {
	ActiveOnly bool
	Type       ProgramType
}

func (f ProgramFilter) Matches(p *Program) bool {
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	return f.Type == "" || p.Type == f.Type
}
