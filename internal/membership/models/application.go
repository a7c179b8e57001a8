package models

import (
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// Status is the lifecycle state of a membership application.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReviewing Status = "reviewing"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// allowedTransitions is the complete transition table.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusReviewing, StatusApproved, StatusRejected},
	StatusReviewing: {StatusApproved, StatusRejected},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	switch st {
	case StatusPending, StatusReviewing, StatusApproved, StatusRejected:
		return st, nil
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

// IsOpen reports whether the application still awaits a decision.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusReviewing
}

// MembershipType is the kind of membership applied for.
type MembershipType string

const (
	TypeIndividual MembershipType = "individual"
	TypeCorporate  MembershipType = "corporate"
)

func ParseMembershipType(s string) (MembershipType, error) {
	switch t := MembershipType(strings.TrimSpace(s)); t {
	case TypeIndividual, TypeCorporate:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "membership_type must be individual or corporate")
}

// Application is a request to join the association.
//
// Invariants:
//   - UserID is set at creation and never changes
//   - ReviewedBy/ReviewedAt are written by the transition that decides or
//     starts review, never by anything else
//   - RejectionReason is non-empty exactly when Status is rejected
type Application struct {
	ID               id.ApplicationID
	UserID           id.UserID
	MembershipType   MembershipType
	FirstName        string
	LastName         string
	OrganizationName string
	Position         string
	Email            string
	Phone            string
	Experience       string
	Motivation       string
	Status           Status
	ReviewedBy       *id.UserID
	ReviewedAt       *time.Time
	RejectionReason  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// Submission is the validated content of a new application.
type Submission struct {
	MembershipType   MembershipType
	FirstName        string
	LastName         string
	OrganizationName string
	Position         string
	Email            string
	Phone            string
	Experience       string
	Motivation       string
}

func NewApplication(appID id.ApplicationID, userID id.UserID, sub Submission, now time.Time) (*Application, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires a subject")
	}
	if sub.MembershipType == TypeCorporate && sub.OrganizationName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization_name is required for corporate membership")
	}
	return &Application{
		ID:               appID,
		UserID:           userID,
		MembershipType:   sub.MembershipType,
		FirstName:        sub.FirstName,
		LastName:         sub.LastName,
		OrganizationName: sub.OrganizationName,
		Position:         sub.Position,
		Email:            sub.Email,
		Phone:            sub.Phone,
		Experience:       sub.Experience,
		Motivation:       sub.Motivation,
		Status:           StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// FullName is first and last name joined.
func (a *Application) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// OwnerMutable reports whether the applicant may still remove the record.
func (a *Application) OwnerMutable() bool {
	return a.Status == StatusPending || a.Status == StatusRejected
}

func (a *Application) CanStartReview() error {
	if !a.Status.CanTransitionTo(StatusReviewing) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending applications can be put under review")
	}
	return nil
}

func (a *Application) ApplyStartReview(reviewer id.UserID, now time.Time) {
	a.Status = StatusReviewing
	a.ReviewedBy = &reviewer
	a.ReviewedAt = &now
	a.UpdatedAt = now
}

func (a *Application) CanApprove() error {
	if !a.Status.CanTransitionTo(StatusApproved) {
		return dErrors.New(dErrors.CodeInvariantViolation, "application has already been decided")
	}
	return nil
}

func (a *Application) ApplyApproval(reviewer id.UserID, now time.Time) {
	a.Status = StatusApproved
	a.ReviewedBy = &reviewer
	a.ReviewedAt = &now
	a.UpdatedAt = now
}

// Approve validates and applies approval in one call.
func (a *Application) Approve(reviewer id.UserID, now time.Time) error {
	if err := a.CanApprove(); err != nil {
		return err
	}
	a.ApplyApproval(reviewer, now)
	return nil
}

func (a *Application) CanReject() error {
	if !a.Status.CanTransitionTo(StatusRejected) {
		return dErrors.New(dErrors.CodeInvariantViolation, "application has already been decided")
	}
	return nil
}

func (a *Application) ApplyRejection(reviewer id.UserID, reason string, now time.Time) {
	a.Status = StatusRejected
	a.ReviewedBy = &reviewer
	a.ReviewedAt = &now
	a.RejectionReason = reason
	a.UpdatedAt = now
}

// Reject validates and applies rejection in one call.
func (a *Application) Reject(reviewer id.UserID, reason string, now time.Time) error {
	reason, err := id.ValidateReason(reason, "rejection_reason")
	if err != nil {
		return err
	}
	if err := a.CanReject(); err != nil {
		return err
	}
	a.ApplyRejection(reviewer, reason, now)
	return nil
}

// CanDelete allows removal only before review starts or after rejection.
func (a *Application) CanDelete() error {
	if !a.OwnerMutable() {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending or rejected applications can be deleted")
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	UserID         *id.UserID
	Statuses       []Status
	MembershipType MembershipType
}
