package models

import (
	"fmt"
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
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDropped   Status = "dropped"
	StatusCancelled Status = "cancelled"
)

var AllStatuses = []Status{
	StatusPending, StatusApproved, StatusRejected, StatusActive,
	StatusCompleted, StatusFailed, StatusDropped, StatusCancelled,
}

var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled, StatusDropped},
	StatusApproved: {StatusActive, StatusCancelled, StatusDropped},
	StatusActive:   {StatusCompleted, StatusFailed, StatusDropped},
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

// Counted reports whether an enrollment in this status holds a seat.
func (s Status) Counted() bool {
	return s != StatusCancelled && s != StatusDropped
}

// Enrollment is one subject's place in a program.
type Enrollment struct {
	ID                  id.EnrollmentID
	ProgramID           id.ProgramID
	UserID              id.UserID
	UserName            string
	UserEmail           string
	Status              Status
	AmountPaid          float64
	Progress            int
	ApprovedAt          *time.Time
	ApprovedBy          *id.UserID
	StartedAt           *time.Time
	CompletedAt         *time.Time
	ExamScore           *int
	Passed              *bool
	CPEHoursEarned      *float64
	CertificateIssuedAt *time.Time
	CertificateURL      string
	CancelledAt         *time.Time
	Notes               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time
}

type Signup struct {
	UserID    id.UserID
	UserName  string
	UserEmail string
	IsMember  bool
}

// NewEnrollment places a subject in an open program. Programs without an
// approval step confirm the seat immediately.
func NewEnrollment(enrollmentID id.EnrollmentID, program *Program, s Signup, now time.Time) (*Enrollment, error) {
	if s.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment requires a subject")
	}
	if program.DeletedAt != nil || !program.IsEnrollmentOpen(now) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment is not open for this program")
	}
	e := &Enrollment{
		ID:         enrollmentID,
		ProgramID:  program.ID,
		UserID:     s.UserID,
		UserName:   s.UserName,
		UserEmail:  s.UserEmail,
		Status:     StatusPending,
		AmountPaid: program.PriceFor(s.IsMember),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if !program.RequiresApproval {
		e.Status = StatusApproved
		e.ApprovedAt = &now
	}
	return e, nil
}

func (e *Enrollment) transition(target Status, msg string) error {
	if !e.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvariantViolation, msg)
	}
	return nil
}

func (e *Enrollment) CanApprove() error {
	return e.transition(StatusApproved, "only pending enrollments can be approved")
}

func (e *Enrollment) ApplyApproval(admin id.UserID, now time.Time) {
	e.Status = StatusApproved
	e.ApprovedAt = &now
	e.ApprovedBy = &admin
	e.UpdatedAt = now
}

func (e *Enrollment) CanReject() error {
	return e.transition(StatusRejected, "only pending enrollments can be rejected")
}

func (e *Enrollment) ApplyRejection(notes string, now time.Time) {
	e.Status = StatusRejected
	e.Notes = notes
	e.UpdatedAt = now
}

func (e *Enrollment) CanStart() error {
	return e.transition(StatusActive, "only approved enrollments can be started")
}

func (e *Enrollment) ApplyStart(now time.Time) {
	e.Status = StatusActive
	e.StartedAt = &now
	e.UpdatedAt = now
}

// CanUpdateProgress checks the state only; the range is validated on input.
func (e *Enrollment) CanUpdateProgress() error {
	if e.Status != StatusActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "progress can only be updated on active enrollments")
	}
	return nil
}

func (e *Enrollment) ApplyProgress(progress int, now time.Time) {
	e.Progress = progress
	e.UpdatedAt = now
}

func (e *Enrollment) CanComplete() error {
	if e.Status != StatusActive || e.Progress < 100 {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("enrollment cannot be completed (status %s, progress %d)", e.Status, e.Progress))
	}
	return nil
}

// Grade decides whether a completion passes. Programs with a graded exam
// need a score; everything else passes.
func Grade(program *Program, score *int) (bool, error) {
	if !program.GradesExam() {
		return true, nil
	}
	if score == nil {
		return false, dErrors.New(dErrors.CodeValidation, "exam_score is required for this program")
	}
	return *score >= *program.PassingScore, nil
}

func (e *Enrollment) ApplyCompletion(program *Program, score *int, passed bool, now time.Time) {
	e.Status = StatusCompleted
	e.CompletedAt = &now
	e.ExamScore = score
	e.Passed = &passed
	if passed {
		hours := program.CPEHours
		e.CPEHoursEarned = &hours
	}
	e.UpdatedAt = now
}

func (e *Enrollment) CanFail() error {
	return e.transition(StatusFailed, "only active enrollments can be marked as failed")
}

func (e *Enrollment) ApplyFailure(score *int, notes string, now time.Time) {
	passed := false
	e.Status = StatusFailed
	e.Passed = &passed
	e.ExamScore = score
	if notes != "" {
		e.Notes = notes
	}
	e.UpdatedAt = now
}

func (e *Enrollment) CanIssueCertificate() error {
	if e.Status != StatusCompleted || e.Passed == nil || !*e.Passed {
		return dErrors.New(dErrors.CodeInvariantViolation, "can only issue certificate for completed and passed enrollments")
	}
	if e.CertificateIssuedAt != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "certificate already issued")
	}
	return nil
}

func (e *Enrollment) ApplyCertificate(now time.Time) {
	e.CertificateIssuedAt = &now
	e.CertificateURL = CertificateURL(e.ID)
	e.UpdatedAt = now
}

// CertificateURL is where the rendered certificate for an enrollment lives.
func CertificateURL(enrollmentID id.EnrollmentID) string {
	return "/certificates/programs/" + enrollmentID.String() + "/certificate.pdf"
}

func (e *Enrollment) CanDrop() error {
	return e.transition(StatusDropped, "enrollment cannot be dropped")
}

func (e *Enrollment) ApplyDrop(now time.Time) {
	e.Status = StatusDropped
	e.CancelledAt = &now
	e.UpdatedAt = now
}

func (e *Enrollment) CanCancel() error {
	if e.Status != StatusPending && e.Status != StatusApproved {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending or approved enrollments can be cancelled")
	}
	return nil
}

func (e *Enrollment) ApplyCancel(now time.Time) {
	e.Status = StatusCancelled
	e.CancelledAt = &now
	e.UpdatedAt = now
}

func (e *Enrollment) CanDelete() error {
	if e.Status == StatusActive || e.Status == StatusCompleted {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot delete active or completed enrollments; drop or cancel instead")
	}
	return nil
}

type ListFilter struct {
	ProgramID *id.ProgramID
	UserID    *id.UserID
	Status    Status
	// Active keeps enrollments that are approved or under way.
	Active bool
	Search string
}

func (f ListFilter) Matches(e *Enrollment) bool {
	if f.ProgramID != nil && e.ProgramID != *f.ProgramID {
		return false
	}
	if f.UserID != nil && e.UserID != *f.UserID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Active && e.Status != StatusApproved && e.Status != StatusActive {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.UserName), q) && !strings.Contains(strings.ToLower(e.UserEmail), q) {
			return false
		}
	}
	return true
}

// Stats aggregates enrollments. Started counts active, completed and failed
// rows; AverageProgress covers active and completed ones.
type Stats struct {
	Total               int
	ByStatus            map[Status]int
	Started             int
	Passed              int
	CertificatesIssued  int
	TotalCPEHoursEarned float64
	AverageProgress     float64
}

// CompletionRate is completed over started, as a percentage.
func (s Stats) CompletionRate() float64 {
	return percent(s.ByStatus[StatusCompleted], s.Started)
}

// PassRate is passed over completed, as a percentage.
func (s Stats) PassRate() float64 {
	return percent(s.Passed, s.ByStatus[StatusCompleted])
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

type Overview struct {
	Program *Program
	Stats   Stats
}
