package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

// Hour bounds for a single activity.
const (
	MinHours = 0.5
	MaxHours = 100
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var allowedTransitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusRejected},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	switch st {
	case StatusPending, StatusApproved, StatusRejected:
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

// AllStatuses lists statuses in display order.
var AllStatuses = []Status{StatusPending, StatusApproved, StatusRejected}

type Category string

const (
	CategoryTraining   Category = "training"
	CategoryWebinar    Category = "webinar"
	CategoryConference Category = "conference"
	CategorySelfStudy  Category = "self_study"
	CategoryTeaching   Category = "teaching"
	CategoryWriting    Category = "writing"
	CategoryResearch   Category = "research"
	CategoryOther      Category = "other"
)

var AllCategories = []Category{
	CategoryTraining, CategoryWebinar, CategoryConference, CategorySelfStudy,
	CategoryTeaching, CategoryWriting, CategoryResearch, CategoryOther,
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid category")
}

// CategoryForEventType maps an event's type to the category its credit is
// recorded under.
func CategoryForEventType(eventType string) Category {
	switch eventType {
	case "webinar":
		return CategoryWebinar
	case "workshop", "seminar", "training", "exam":
		return CategoryTraining
	case "conference":
		return CategoryConference
	default:
		return CategoryOther
	}
}

// ActivityType records where an activity came from.
type ActivityType string

const (
	TypeExternal ActivityType = "External"
	TypeEvent    ActivityType = "Event"
	TypeProgram  ActivityType = "Program"
)

func ParseActivityType(s string) (ActivityType, error) {
	switch t := ActivityType(strings.TrimSpace(s)); t {
	case TypeExternal, TypeEvent, TypeProgram:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid activity_type")
}

// Activity is one continuing professional education record.
//
// Invariants:
//   - external activities start pending; system credits start approved with
//     no approver
//   - SourceID is set exactly for Event and Program activities
//   - only approved activities count toward hour totals
type Activity struct {
	ID              id.ActivityID
	UserID          id.UserID
	ActivityType    ActivityType
	SourceID        *uuid.UUID
	Title           string
	Description     string
	Category        Category
	Hours           float64
	ActivityDate    time.Time
	Evidence        string
	Status          Status
	ApproverID      *id.UserID
	ApprovedAt      *time.Time
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

// Submission is the member-editable content of an external activity.
type Submission struct {
	Title        string
	Description  string
	Category     Category
	Hours        float64
	ActivityDate time.Time
	Evidence     string
}

func (s Submission) check(now time.Time) error {
	if s.Hours < MinHours || s.Hours > MaxHours {
		return dErrors.New(dErrors.CodeValidation, "hours must be between 0.5 and 100")
	}
	if DateOnly(s.ActivityDate).After(DateOnly(now)) {
		return dErrors.New(dErrors.CodeValidation, "activity_date cannot be in the future")
	}
	return nil
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewExternal(activityID id.ActivityID, userID id.UserID, sub Submission, now time.Time) (*Activity, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "activity requires a subject")
	}
	if err := sub.check(now); err != nil {
		return nil, err
	}
	return &Activity{
		ID:           activityID,
		UserID:       userID,
		ActivityType: TypeExternal,
		Title:        sub.Title,
		Description:  sub.Description,
		Category:     sub.Category,
		Hours:        sub.Hours,
		ActivityDate: DateOnly(sub.ActivityDate),
		Evidence:     sub.Evidence,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Credit describes a system-issued activity for attending an event or
// passing a program.
type Credit struct {
	UserID       id.UserID
	ActivityType ActivityType
	SourceID     uuid.UUID
	Title        string
	Category     Category
	Hours        float64
	ActivityDate time.Time
}

// NewCredited builds a pre-approved activity. Credits are not reviewed, so
// ApproverID stays nil.
func NewCredited(activityID id.ActivityID, c Credit, now time.Time) (*Activity, error) {
	if c.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit requires a subject")
	}
	if c.ActivityType != TypeEvent && c.ActivityType != TypeProgram {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credits come from events or programs")
	}
	if c.SourceID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit requires a source")
	}
	if c.Hours <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "credit requires positive hours")
	}
	source := c.SourceID
	approvedAt := now
	return &Activity{
		ID:           activityID,
		UserID:       c.UserID,
		ActivityType: c.ActivityType,
		SourceID:     &source,
		Title:        c.Title,
		Category:     c.Category,
		Hours:        c.Hours,
		ActivityDate: DateOnly(c.ActivityDate),
		Status:       StatusApproved,
		ApprovedAt:   &approvedAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// OwnerEditable is true while the subject may still edit the activity.
func (a *Activity) OwnerEditable() bool {
	return a.Status == StatusPending
}

// OwnerRemovable is true while the subject may still delete the activity.
func (a *Activity) OwnerRemovable() bool {
	return a.Status == StatusPending || a.Status == StatusRejected
}

func (a *Activity) CanApprove() error {
	if !a.Status.CanTransitionTo(StatusApproved) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending activities can be approved")
	}
	return nil
}

func (a *Activity) ApplyApproval(approver id.UserID, now time.Time) {
	a.Status = StatusApproved
	a.ApproverID = &approver
	a.ApprovedAt = &now
	a.UpdatedAt = now
}

func (a *Activity) Approve(approver id.UserID, now time.Time) error {
	if err := a.CanApprove(); err != nil {
		return err
	}
	a.ApplyApproval(approver, now)
	return nil
}

func (a *Activity) CanReject() error {
	if !a.Status.CanTransitionTo(StatusRejected) {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending activities can be rejected")
	}
	return nil
}

// ApplyRejection records the reviewer in the approver fields; a rejected
// activity keeps who decided and when.
func (a *Activity) ApplyRejection(approver id.UserID, reason string, now time.Time) {
	a.Status = StatusRejected
	a.ApproverID = &approver
	a.ApprovedAt = &now
	a.RejectionReason = reason
	a.UpdatedAt = now
}

func (a *Activity) Reject(approver id.UserID, reason string, now time.Time) error {
	reason, err := id.ValidateReason(reason, "rejection_reason")
	if err != nil {
		return err
	}
	if err := a.CanReject(); err != nil {
		return err
	}
	a.ApplyRejection(approver, reason, now)
	return nil
}

// CanUpdate re-validates the new content. Status rules for owners are
// enforced by the access guard; admins may edit any status.
func (a *Activity) CanUpdate(sub Submission, now time.Time) error {
	if a.ActivityType != TypeExternal {
		return dErrors.New(dErrors.CodeInvariantViolation, "system-credited activities cannot be edited")
	}
	return sub.check(now)
}

// Patch carries the fields an update changes; nil fields keep their value.
type Patch struct {
	Title        *string
	Description  *string
	Category     *Category
	Hours        *float64
	ActivityDate *time.Time
	Evidence     *string
}

// Patched returns the activity's content with p applied.
func (a *Activity) Patched(p Patch) Submission {
	sub := Submission{
		Title:        a.Title,
		Description:  a.Description,
		Category:     a.Category,
		Hours:        a.Hours,
		ActivityDate: a.ActivityDate,
		Evidence:     a.Evidence,
	}
	if p.Title != nil {
		sub.Title = *p.Title
	}
	if p.Description != nil {
		sub.Description = *p.Description
	}
	if p.Category != nil {
		sub.Category = *p.Category
	}
	if p.Hours != nil {
		sub.Hours = *p.Hours
	}
	if p.ActivityDate != nil {
		sub.ActivityDate = *p.ActivityDate
	}
	if p.Evidence != nil {
		sub.Evidence = *p.Evidence
	}
	return sub
}

func (a *Activity) ApplyUpdate(sub Submission, now time.Time) {
	a.Title = sub.Title
	a.Description = sub.Description
	a.Category = sub.Category
	a.Hours = sub.Hours
	a.ActivityDate = DateOnly(sub.ActivityDate)
	a.Evidence = sub.Evidence
	a.UpdatedAt = now
}

// Window bounds aggregate queries by activity date; nil ends are open.
type Window struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether date falls inside the window, inclusive.
func (w Window) Contains(date time.Time) bool {
	d := DateOnly(date)
	if w.From != nil && d.Before(DateOnly(*w.From)) {
		return false
	}
	if w.To != nil && d.After(DateOnly(*w.To)) {
		return false
	}
	return true
}

// ListFilter narrows List results.
type ListFilter struct {
	UserID       *id.UserID
	Status       Status
	Category     Category
	ActivityType ActivityType
	Window       Window
	Search       string
}

// Matches reports whether a passes the filter.
func (f ListFilter) Matches(a *Activity) bool {
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	if f.ActivityType != "" && a.ActivityType != f.ActivityType {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(f.Search)) {
		return false
	}
	return f.Window.Contains(a.ActivityDate)
}
