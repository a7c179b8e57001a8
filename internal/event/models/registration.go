package models

import (
	"encoding/json"
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusAttended  Status = "attended"
	StatusNoShow    Status = "no_show"
)

var AllStatuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusAttended, StatusNoShow}

var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCancelled, StatusAttended, StatusNoShow},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status")
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Counted reports whether a registration in this status occupies a seat.
func (s Status) Counted() bool {
	return s != StatusCancelled
}

// Registration is one subject's place at an event.
type Registration struct {
	ID                  id.RegistrationID
	EventID             id.EventID
	UserID              id.UserID
	UserName            string
	UserEmail           string
	Status              Status
	Answers             json.RawMessage
	AmountPaid          float64
	ApprovedAt          *time.Time
	ApprovedBy          *id.UserID
	AttendedAt          *time.Time
	CPEHoursEarned      *float64
	CertificateIssuedAt *time.Time
	CancelledAt         *time.Time
	Notes               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

// Signup is what the subject supplies when registering.
type Signup struct {
	UserID    id.UserID
	UserName  string
	UserEmail string
	Answers   json.RawMessage
	IsMember  bool
}

// NewRegistration places a subject on an open event. Events that need no
// approval confirm the seat immediately.
func NewRegistration(regID id.RegistrationID, event *Event, s Signup, now time.Time) (*Registration, error) {
	if s.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration requires a subject")
	}
	if event.DeletedAt != nil || !event.IsRegistrationOpen(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registration is not open for this event")
	}
	r := &Registration{
		ID:         regID,
		EventID:    event.ID,
		UserID:     s.UserID,
		UserName:   s.UserName,
		UserEmail:  s.UserEmail,
		Status:     StatusPending,
		Answers:    s.Answers,
		AmountPaid: event.PriceFor(s.IsMember),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if !event.RequiresApproval {
		r.Status = StatusApproved
		r.ApprovedAt = &now
	}
	return r, nil
}

func (r *Registration) transition(target Status, msg string) error {
	if !r.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvariantViolation, msg)
	}
	return nil
}

func (r *Registration) CanApprove() error {
	return r.transition(StatusApproved, "only pending registrations can be approved")
}

func (r *Registration) ApplyApproval(admin id.UserID, now time.Time) {
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &admin
	r.UpdatedAt = now
}

func (r *Registration) CanReject() error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending registrations can be rejected")
	}
	return nil
}

func (r *Registration) ApplyRejection(notes string, now time.Time) {
	r.Status = StatusRejected
	r.Notes = notes
	r.UpdatedAt = now
}

func (r *Registration) CanMarkAttendance() error {
	return r.transition(StatusAttended, "only approved registrations can be marked as attended")
}

func (r *Registration) ApplyAttendance(cpeHours float64, now time.Time) {
	r.Status = StatusAttended
	r.AttendedAt = &now
	r.CPEHoursEarned = &cpeHours
	r.UpdatedAt = now
}

func (r *Registration) CanMarkNoShow() error {
	return r.transition(StatusNoShow, "only approved registrations can be marked as no-show")
}

func (r *Registration) ApplyNoShow(now time.Time) {
	r.Status = StatusNoShow
	r.UpdatedAt = now
}

// CanCancel allows withdrawal from a live registration until the event
// starts.
func (r *Registration) CanCancel(event *Event, now time.Time) error {
	if err := r.transition(StatusCancelled, "registration cannot be cancelled"); err != nil {
		return err
	}
	if !now.Before(event.StartsAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot cancel after the event has started")
	}
	return nil
}

func (r *Registration) ApplyCancel(now time.Time) {
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
}

// CanIssueCertificate allows one certificate per attendee. The event's
// IssuesCertificate flag is informational and does not gate issuing.
func (r *Registration) CanIssueCertificate() error {
	if r.Status != StatusAttended {
		return dErrors.New(dErrors.CodeInvariantViolation, "can only issue certificate for attended registrations")
	}
	if r.CertificateIssuedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "certificate already issued")
	}
	return nil
}

func (r *Registration) ApplyCertificate(now time.Time) {
	r.CertificateIssuedAt = &now
	r.UpdatedAt = now
}

// CanDelete refuses to remove a confirmed or attended registration.
func (r *Registration) CanDelete() error {
	if r.Status == StatusApproved || r.Status == StatusAttended {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot delete approved or attended registrations; cancel instead")
	}
	return nil
}

// ListFilter narrows registration lists. Upcoming keeps registrations whose
// event starts after At and needs the event, so stores evaluate it.
type ListFilter struct {
	EventID  *id.EventID
	UserID   *id.UserID
	Status   Status
	Search   string
	Upcoming bool
	At       time.Time
}

// Matches checks every field except Upcoming.
func (f ListFilter) Matches(r *Registration) bool {
	if f.EventID != nil && r.EventID != *f.EventID {
		return false
	}
	if f.UserID != nil && r.UserID != *f.UserID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(r.UserName), q) && !strings.Contains(strings.ToLower(r.UserEmail), q) {
			return false
		}
	}
	return true
}

type Stats struct {
	Total               int
	ByStatus            map[Status]int
	CertificatesIssued  int
	TotalCPEHoursEarned float64
}

// Overview pairs registration stats with the event they cover, if any.
type Overview struct {
	Event *Event
	Stats Stats
}
