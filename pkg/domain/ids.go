package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// ID is a UUID tagged with the entity it identifies. Instantiations with
// different tags are distinct types, so a UserID can never be passed where an
// EventID is expected.
//
// Invariant: IDs produced by the Parse* functions are never the nil UUID.
type ID[T any] uuid.UUID

type (
	userTag                 struct{}
	applicationTag          struct{}
	activityTag             struct{}
	certificationTag        struct{}
	certificationProgramTag struct{}
	eventTag                struct{}
	registrationTag         struct{}
	programTag              struct{}
	enrollmentTag           struct{}
)

type (
	UserID                 = ID[userTag]
	ApplicationID          = ID[applicationTag]
	ActivityID             = ID[activityTag]
	CertificationID        = ID[certificationTag]
	CertificationProgramID = ID[certificationProgramTag]
	EventID                = ID[eventTag]
	RegistrationID         = ID[registrationTag]
	ProgramID              = ID[programTag]
	EnrollmentID           = ID[enrollmentTag]
)

// NewID returns a fresh random ID of the requested kind.
func NewID[T any]() ID[T] {
	return ID[T](uuid.New())
}

func (i ID[T]) String() string {
	return uuid.UUID(i).String()
}

// IsNil reports whether the ID is the zero UUID.
func (i ID[T]) IsNil() bool {
	return uuid.UUID(i) == uuid.Nil
}

func (i ID[T]) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID[T]) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*i = ID[T](u)
	return nil
}

// Value implements driver.Valuer so IDs can be bound as query arguments.
func (i ID[T]) Value() (driver.Value, error) {
	return i.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID[T]) Scan(src any) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return err
	}
	*i = ID[T](u)
	return nil
}

func parse[T any](s, field string) (ID[T], error) {
	if s == "" {
		return ID[T]{}, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID[T]{}, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return ID[T]{}, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return ID[T](u), nil
}

func ParseUserID(s string) (UserID, error) { return parse[userTag](s, "user_id") }

func ParseApplicationID(s string) (ApplicationID, error) {
	return parse[applicationTag](s, "application_id")
}

func ParseActivityID(s string) (ActivityID, error) { return parse[activityTag](s, "activity_id") }

func ParseCertificationID(s string) (CertificationID, error) {
	return parse[certificationTag](s, "certification_id")
}

func ParseCertificationProgramID(s string) (CertificationProgramID, error) {
	return parse[certificationProgramTag](s, "certification_program_id")
}

func ParseEventID(s string) (EventID, error) { return parse[eventTag](s, "event_id") }

func ParseRegistrationID(s string) (RegistrationID, error) {
	return parse[registrationTag](s, "registration_id")
}

func ParseProgramID(s string) (ProgramID, error) { return parse[programTag](s, "program_id") }

func ParseEnrollmentID(s string) (EnrollmentID, error) {
	return parse[enrollmentTag](s, "enrollment_id")
}

func NewUserID() UserID                                 { return NewID[userTag]() }
func NewApplicationID() ApplicationID                   { return NewID[applicationTag]() }
func NewActivityID() ActivityID                         { return NewID[activityTag]() }
func NewCertificationID() CertificationID               { return NewID[certificationTag]() }
func NewCertificationProgramID() CertificationProgramID { return NewID[certificationProgramTag]() }
func NewEventID() EventID                               { return NewID[eventTag]() }
func NewRegistrationID() RegistrationID                 { return NewID[registrationTag]() }
func NewProgramID() ProgramID                           { return NewID[programTag]() }
func NewEnrollmentID() EnrollmentID                     { return NewID[enrollmentTag]() }
