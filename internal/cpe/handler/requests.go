package handler

import (
	"strings"
	"time"

	"github.com/fudign/kfa-sub000/internal/cpe/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/validation"
)

// MaxEvidenceLength bounds the evidence reference (a URL or file name).
const MaxEvidenceLength = 2048

type SubmitActivityRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Hours        float64 `json:"hours"`
	ActivityDate string  `json:"activity_date"`
	Evidence     string  `json:"evidence"`

	submission models.Submission
}

func (r *SubmitActivityRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Evidence = strings.TrimSpace(r.Evidence)
	if err := validation.First(
		validation.RequiredMax(r.Title, validation.MaxTitleLength, "title"),
		validation.MaxLength(r.Description, validation.MaxTextLength, "description"),
		validation.MaxLength(r.Evidence, MaxEvidenceLength, "evidence"),
		validation.Range(r.Hours, models.MinHours, models.MaxHours, "hours"),
	); err != nil {
		return err
	}
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	date, err := parseDate(r.ActivityDate, "activity_date")
	if err != nil {
		return err
	}
	r.submission = models.Submission{
		Title:        r.Title,
		Description:  r.Description,
		Category:     category,
		Hours:        r.Hours,
		ActivityDate: date,
		Evidence:     r.Evidence,
	}
	return nil
}

func (r *SubmitActivityRequest) ParsedSubmission() models.Submission {
	return r.submission
}

// UpdateActivityRequest is a partial update; omitted fields keep their value.
type UpdateActivityRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	Hours        *float64 `json:"hours"`
	ActivityDate *string  `json:"activity_date"`
	Evidence     *string  `json:"evidence"`

	patch models.Patch
}

func (r *UpdateActivityRequest) Validate() error {
	var patch models.Patch
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		if err := validation.RequiredMax(title, validation.MaxTitleLength, "title"); err != nil {
			return err
		}
		patch.Title = &title
	}
	if r.Description != nil {
		description := strings.TrimSpace(*r.Description)
		if err := validation.MaxLength(description, validation.MaxTextLength, "description"); err != nil {
			return err
		}
		patch.Description = &description
	}
	if r.Category != nil {
		category, err := models.ParseCategory(*r.Category)
		if err != nil {
			return err
		}
		patch.Category = &category
	}
	if r.Hours != nil {
		if err := validation.Range(*r.Hours, models.MinHours, models.MaxHours, "hours"); err != nil {
			return err
		}
		patch.Hours = r.Hours
	}
	if r.ActivityDate != nil {
		date, err := parseDate(*r.ActivityDate, "activity_date")
		if err != nil {
			return err
		}
		patch.ActivityDate = &date
	}
	if r.Evidence != nil {
		evidence := strings.TrimSpace(*r.Evidence)
		if err := validation.MaxLength(evidence, MaxEvidenceLength, "evidence"); err != nil {
			return err
		}
		patch.Evidence = &evidence
	}
	r.patch = patch
	return nil
}

func (r *UpdateActivityRequest) ParsedPatch() models.Patch {
	return r.patch
}

type RejectActivityRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

func (r *RejectActivityRequest) Validate() error {
	reason, err := id.ValidateReason(r.RejectionReason, "rejection_reason")
	if err != nil {
		return err
	}
	r.RejectionReason = reason
	return nil
}

func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be a date (YYYY-MM-DD)")
	}
	return t, nil
}
