package models

import (
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

type EventType string

const (
	TypeWebinar    EventType = "webinar"
	TypeWorkshop   EventType = "workshop"
	TypeSeminar    EventType = "seminar"
	TypeConference EventType = "conference"
	TypeTraining   EventType = "training"
	TypeExam       EventType = "exam"
	TypeNetworking EventType = "networking"
)

var AllEventTypes = []EventType{TypeWebinar, TypeWorkshop, TypeSeminar, TypeConference, TypeTraining, TypeExam, TypeNetworking}

func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllEventTypes {
		if t == known {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid event_type")
}

type EventStatus string

const (
	EventDraft              EventStatus = "draft"
	EventPublished          EventStatus = "published"
	EventRegistrationOpen   EventStatus = "registration_open"
	EventRegistrationClosed EventStatus = "registration_closed"
	EventOngoing            EventStatus = "ongoing"
	EventCompleted          EventStatus = "completed"
	EventCancelled          EventStatus = "cancelled"
)

var AllEventStatuses = []EventStatus{
	EventDraft, EventPublished, EventRegistrationOpen, EventRegistrationClosed,
	EventOngoing, EventCompleted, EventCancelled,
}

func ParseEventStatus(s string) (EventStatus, error) {
	st := EventStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllEventStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid status")
}

// Event is a scheduled association event members register for.
//
// Invariants:
//   - RegisteredCount counts registrations that are not cancelled
//   - RegistrationDeadline, when set, is not after StartsAt
type Event struct {
	ID                   id.EventID
	Title                string
	Description          string
	Type                 EventType
	Status               EventStatus
	Location             string
	StartsAt             time.Time
	EndsAt               *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	RegisteredCount      int
	RequiresApproval     bool
	Price                float64
	MemberPrice          *float64
	CPEHours             float64
	IssuesCertificate    bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	DeletedAt            *time.Time
}

type EventInput struct {
	Title                string
	Description          string
	Type                 EventType
	Status               EventStatus
	Location             string
	StartsAt             time.Time
	EndsAt               *time.Time
	RegistrationDeadline *time.Time
	MaxParticipants      *int
	RequiresApproval     bool
	Price                float64
	MemberPrice          *float64
	CPEHours             float64
	IssuesCertificate    bool
}

func NewEvent(eventID id.EventID, in EventInput, now time.Time) (*Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title is required")
	}
	if in.StartsAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "starts_at is required")
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ends_at must not be before starts_at")
	}
	if in.RegistrationDeadline != nil && in.RegistrationDeadline.After(in.StartsAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration_deadline must not be after starts_at")
	}
	if in.MaxParticipants != nil && *in.MaxParticipants < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "max_participants must be positive")
	}
	if in.Price < 0 || (in.MemberPrice != nil && *in.MemberPrice < 0) || in.CPEHours < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "prices and cpe_hours cannot be negative")
	}
	status := in.Status
	if status == "" {
		status = EventDraft
	}
	return &Event{
		ID:                   eventID,
		Title:                title,
		Description:          in.Description,
		Type:                 in.Type,
		Status:               status,
		Location:             in.Location,
		StartsAt:             in.StartsAt,
		EndsAt:               in.EndsAt,
		RegistrationDeadline: in.RegistrationDeadline,
		MaxParticipants:      in.MaxParticipants,
		RequiresApproval:     in.RequiresApproval,
		Price:                in.Price,
		MemberPrice:          in.MemberPrice,
		CPEHours:             in.CPEHours,
		IssuesCertificate:    in.IssuesCertificate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// IsPublic reports whether non-admins may see the event.
func (e *Event) IsPublic() bool {
	return e.Status != EventDraft
}

// IsRegistrationOpen is evaluated at now; the deadline itself is inclusive.
func (e *Event) IsRegistrationOpen(now time.Time) bool {
	if e.Status != EventPublished && e.Status != EventRegistrationOpen {
		return false
	}
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return false
	}
	if !now.Before(e.StartsAt) {
		return false
	}
	return !e.IsFull()
}

func (e *Event) IsFull() bool {
	return e.MaxParticipants != nil && e.RegisteredCount >= *e.MaxParticipants
}

// AvailableSpots is nil for events without a capacity.
func (e *Event) AvailableSpots() *int {
	if e.MaxParticipants == nil {
		return nil
	}
	n := max(*e.MaxParticipants-e.RegisteredCount, 0)
	return &n
}

// PriceFor is the amount a subject pays; members get member_price when set.
func (e *Event) PriceFor(isMember bool) float64 {
	if isMember && e.MemberPrice != nil {
		return *e.MemberPrice
	}
	return e.Price
}

type EventFilter struct {
	Status   EventStatus
	Type     EventType
	Upcoming bool
	At       time.Time
	// PublicOnly hides drafts.
	PublicOnly bool
	Search     string
}

func (f EventFilter) Matches(e *Event) bool {
	if f.PublicOnly && !e.IsPublic() {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Upcoming && !e.StartsAt.After(f.At) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}
