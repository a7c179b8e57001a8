package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
	StatusRevoked    Status = "revoked"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusPassed, StatusFailed},
	StatusPassed:     {StatusRevoked},
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Live statuses block a second application for the same program.
func (s Status) Live() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusPassed
}

var AllStatuses = []Status{StatusPending, StatusInProgress, StatusPassed, StatusFailed, StatusRevoked}

// LiveStatuses are the statuses that count as an open or held certificate.
var LiveStatuses = []Status{StatusPending, StatusInProgress, StatusPassed}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status")
}

const (
	MinExamScore = 0
	MaxExamScore = 100
)

// Certification is one member's attempt at a program, and once passed, the
// certificate itself.
type Certification struct {
	ID                id.CertificationID
	UserID            id.UserID
	ProgramID         id.CertificationProgramID
	CertificateNumber string
	HolderName        string
	Status            Status
	ExamScore         *int
	ExamDate          *time.Time
	ExamResults       json.RawMessage
	IssuedDate        *time.Time
	ExpiryDate        *time.Time
	IssuedBy          *id.UserID
	ReviewedBy        *id.UserID
	ReviewedAt        *time.Time
	RevokedBy         *id.UserID
	RevokedAt         *time.Time
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// SequencePrefix scopes certificate numbering to a program code and year.
func SequencePrefix(code string, year int) string {
	return fmt.Sprintf("%s-%d", NormalizeCode(code), year)
}

// CertificateNumber renders CODE-YYYY-NNNN.
func CertificateNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}

type Application struct {
	UserID     id.UserID
	HolderName string
	Number     string
	Notes      string
}

func NewCertification(certID id.CertificationID, program *Program, app Application, now time.Time) (*Certification, error) {
	if app.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certification requires a subject")
	}
	if program.DeletedAt != nil || !program.IsActive {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certification program is not accepting applications")
	}
	if app.Number == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "certificate number is required")
	}
	return &Certification{
		ID:                certID,
		UserID:            app.UserID,
		ProgramID:         program.ID,
		CertificateNumber: app.Number,
		HolderName:        app.HolderName,
		Status:            StatusPending,
		Notes:             app.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (c *Certification) transition(target Status, msg string) error {
	if !c.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvariantViolation, msg)
	}
	return nil
}

func (c *Certification) CanApprove() error {
	return c.transition(StatusInProgress, "only pending certifications can be approved")
}

func (c *Certification) ApplyApproval(reviewer id.UserID, now time.Time) {
	c.Status = StatusInProgress
	c.ReviewedBy = &reviewer
	c.ReviewedAt = &now
	c.UpdatedAt = now
}

// CanReject allows rejection of pending applications only; an in-progress
// certification is decided by its exam.
func (c *Certification) CanReject() error {
	if c.Status != StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending certifications can be rejected")
	}
	return nil
}

func (c *Certification) ApplyRejection(reviewer id.UserID, notes string, now time.Time) {
	c.Status = StatusFailed
	c.Notes = notes
	c.ReviewedBy = &reviewer
	c.ReviewedAt = &now
	c.UpdatedAt = now
}

// ExamOutcome is what an issuer records when a certificate is granted.
type ExamOutcome struct {
	Score   int
	Date    time.Time
	Results json.RawMessage
}

// Validate checks the score range and that an exam date was recorded.
func (o ExamOutcome) Validate() error {
	if o.Score < MinExamScore || o.Score > MaxExamScore {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("exam_score must be between %d and %d", MinExamScore, MaxExamScore))
	}
	if o.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "exam_date is required")
	}
	return nil
}

func (c *Certification) CanIssue() error {
	return c.transition(StatusPassed, "only in-progress certifications can be issued")
}

// ApplyIssue grants the certificate. Expiry is validityMonths calendar
// months after issue.
func (c *Certification) ApplyIssue(issuer id.UserID, exam ExamOutcome, validityMonths int, now time.Time) {
	score := exam.Score
	examDate := exam.Date
	expiry := now.AddDate(0, validityMonths, 0)
	c.Status = StatusPassed
	c.ExamScore = &score
	c.ExamDate = &examDate
	c.ExamResults = exam.Results
	c.IssuedDate = &now
	c.ExpiryDate = &expiry
	c.IssuedBy = &issuer
	c.UpdatedAt = now
}

func (c *Certification) CanRevoke() error {
	return c.transition(StatusRevoked, "only passed certifications can be revoked")
}

func (c *Certification) ApplyRevocation(revoker id.UserID, notes string, now time.Time) {
	c.Status = StatusRevoked
	c.Notes = c.Notes + "\n\nRevoked: " + notes
	c.RevokedBy = &revoker
	c.RevokedAt = &now
	c.UpdatedAt = now
}

// CanDelete refuses to remove a certificate that is held or being earned.
func (c *Certification) CanDelete() error {
	if c.Status == StatusPassed || c.Status == StatusInProgress {
		return dErrors.New(dErrors.CodeInvariantViolation, "cannot delete active or passed certifications; revoke instead")
	}
	return nil
}

// IsExpired is true for a passed certificate whose expiry has gone by.
func (c *Certification) IsExpired(now time.Time) bool {
	return c.Status == StatusPassed && c.ExpiryDate != nil && now.After(*c.ExpiryDate)
}

func (c *Certification) IsActive(now time.Time) bool {
	return c.Status == StatusPassed && !c.IsExpired(now)
}

// ListFilter narrows certification lists. Active and Expired are evaluated
// at At.
type ListFilter struct {
	UserID    *id.UserID
	ProgramID *id.CertificationProgramID
	Status    Status
	Active    bool
	Expired   bool
	At        time.Time

	// Search matches the certificate number or the holder name.
	Search string
	// HolderSearch matches the holder name only.
	HolderSearch string
}

func (f ListFilter) Matches(c *Certification) bool {
	if f.UserID != nil && c.UserID != *f.UserID {
		return false
	}
	if f.ProgramID != nil && c.ProgramID != *f.ProgramID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Active && !c.IsActive(f.At) {
		return false
	}
	if f.Expired && !c.IsExpired(f.At) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.CertificateNumber), q) &&
			!strings.Contains(strings.ToLower(c.HolderName), q) {
			return false
		}
	}
	if f.HolderSearch != "" && !strings.Contains(strings.ToLower(c.HolderName), strings.ToLower(f.HolderSearch)) {
		return false
	}
	return true
}

// ProgramCount is the number of passed certifications in one program.
type ProgramCount struct {
	ProgramID id.CertificationProgramID
	Name      string
	Code      string
	Count     int
}

// Stats is the admin overview of all certifications.
type Stats struct {
	Total     int
	ByStatus  map[Status]int
	Expired   int
	Active    int
	ByProgram []ProgramCount
}
