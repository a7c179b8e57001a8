package handler

import (
	"strings"

	"github.com/fudign/kfa-sub000/internal/membership/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/email"
	"github.com/fudign/kfa-sub000/pkg/platform/validation"
)

// MinMotivationLength is the shortest accepted motivation statement.
const MinMotivationLength = 100

type SubmitApplicationRequest struct {
	MembershipType   string `json:"membership_type"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	OrganizationName string `json:"organization_name"`
	Position         string `json:"position"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Experience       string `json:"experience"`
	Motivation       string `json:"motivation"`
	AgreeToTerms     bool   `json:"agree_to_terms"`

	submission models.Submission
}

func (r *SubmitApplicationRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.OrganizationName = strings.TrimSpace(r.OrganizationName)
	r.Position = strings.TrimSpace(r.Position)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Experience = strings.TrimSpace(r.Experience)
	r.Motivation = strings.TrimSpace(r.Motivation)

	membershipType, err := models.ParseMembershipType(r.MembershipType)
	if err != nil {
		return err
	}
	if err := validation.First(
		validation.RequiredMax(r.FirstName, validation.MaxNameLength, "first_name"),
		validation.RequiredMax(r.LastName, validation.MaxNameLength, "last_name"),
		validation.MaxLength(r.OrganizationName, validation.MaxNameLength, "organization_name"),
		validation.MaxLength(r.Position, validation.MaxNameLength, "position"),
		validation.RequiredMax(r.Phone, validation.MaxPhoneLength, "phone"),
		validation.RequiredMax(r.Experience, validation.MaxTextLength, "experience"),
		validation.Required(r.Motivation, "motivation"),
		validation.MinLength(r.Motivation, MinMotivationLength, "motivation"),
		validation.MaxLength(r.Motivation, validation.MaxTextLength, "motivation"),
	); err != nil {
		return err
	}
	if membershipType == models.TypeCorporate && r.OrganizationName == "" {
		return dErrors.New(dErrors.CodeValidation, "organization_name is required for corporate membership")
	}
	if err := validation.MaxLength(r.Email, validation.MaxEmailLength, "email"); err != nil {
		return err
	}
	addr, err := email.Validate(r.Email, "email")
	if err != nil {
		return err
	}
	if !r.AgreeToTerms {
		return dErrors.New(dErrors.CodeValidation, "agree_to_terms must be accepted")
	}

	r.Email = addr
	r.submission = models.Submission{
		MembershipType:   membershipType,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		OrganizationName: r.OrganizationName,
		Position:         r.Position,
		Email:            addr,
		Phone:            r.Phone,
		Experience:       r.Experience,
		Motivation:       r.Motivation,
	}
	return nil
}

func (r *SubmitApplicationRequest) ParsedSubmission() models.Submission {
	return r.submission
}

type RejectApplicationRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

func (r *RejectApplicationRequest) Validate() error {
	reason, err := id.ValidateReason(r.RejectionReason, "rejection_reason")
	if err != nil {
		return err
	}
	r.RejectionReason = reason
	return nil
}
