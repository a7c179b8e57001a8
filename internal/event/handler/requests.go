package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/fudign/kfa-sub000/internal/event/models"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/validation"
)

type CreateEventRequest struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	EventType            string   `json:"event_type"`
	Status               string   `json:"status"`
	Location             string   `json:"location"`
	StartsAt             string   `json:"starts_at"`
	EndsAt               string   `json:"ends_at"`
	RegistrationDeadline string   `json:"registration_deadline"`
	MaxParticipants      *int     `json:"max_participants"`
	RequiresApproval     bool     `json:"requires_approval"`
	Price                float64  `json:"price"`
	MemberPrice          *float64 `json:"member_price"`
	CPEHours             float64  `json:"cpe_hours"`
	IssuesCertificate    bool     `json:"issues_certificate"`

	input models.EventInput
}

func (r *CreateEventRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	if err := validation.First(
		validation.RequiredMax(r.Title, validation.MaxTitleLength, "title"),
		validation.MaxLength(r.Description, validation.MaxTextLength, "description"),
		validation.MaxLength(r.Location, validation.MaxNameLength, "location"),
	); err != nil {
		return err
	}
	eventType, err := models.ParseEventType(r.EventType)
	if err != nil {
		return err
	}
	status := models.EventDraft
	if strings.TrimSpace(r.Status) != "" {
		if status, err = models.ParseEventStatus(r.Status); err != nil {
			return err
		}
	}
	startsAt, err := parseTime(r.StartsAt, "starts_at")
	if err != nil {
		return err
	}
	if startsAt == nil {
		return dErrors.New(dErrors.CodeValidation, "starts_at is required")
	}
	endsAt, err := parseTime(r.EndsAt, "ends_at")
	if err != nil {
		return err
	}
	deadline, err := parseTime(r.RegistrationDeadline, "registration_deadline")
	if err != nil {
		return err
	}
	if r.MaxParticipants != nil && *r.MaxParticipants < 1 {
		return dErrors.New(dErrors.CodeValidation, "max_participants must be at least 1")
	}
	if r.Price < 0 || (r.MemberPrice != nil && *r.MemberPrice < 0) {
		return dErrors.New(dErrors.CodeValidation, "price cannot be negative")
	}
	if r.CPEHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "cpe_hours cannot be negative")
	}
	r.input = models.EventInput{
		Title:                r.Title,
		Description:          r.Description,
		Type:                 eventType,
		Status:               status,
		Location:             r.Location,
		StartsAt:             *startsAt,
		EndsAt:               endsAt,
		RegistrationDeadline: deadline,
		MaxParticipants:      r.MaxParticipants,
		RequiresApproval:     r.RequiresApproval,
		Price:                r.Price,
		MemberPrice:          r.MemberPrice,
		CPEHours:             r.CPEHours,
		IssuesCertificate:    r.IssuesCertificate,
	}
	return nil
}

func (r *CreateEventRequest) ParsedInput() models.EventInput {
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

// RegisterRequest carries the optional answers to the event's questions.
type RegisterRequest struct {
	Answers json.RawMessage `json:"answers"`
}

func (r *RegisterRequest) Validate() error {
	answers := bytes.TrimSpace(r.Answers)
	if len(answers) == 0 || bytes.Equal(answers, []byte("null")) {
		r.Answers = nil
		return nil
	}
	if answers[0] != '{' {
		return dErrors.New(dErrors.CodeValidation, "answers must be an object")
	}
	r.Answers = answers
	return nil
}

// NotesRequest carries the mandatory notes of a rejection.
type NotesRequest struct {
	Notes string `json:"notes"`
}

func (r *NotesRequest) Validate() error {
	return validation.Required(r.Notes, "notes")
}
