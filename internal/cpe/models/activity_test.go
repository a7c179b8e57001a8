package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

var now = time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)

func submission() Submission {
	return Submission{
		Title:        "IFRS 17 workshop",
		Category:     CategoryTraining,
		Hours:        6,
		ActivityDate: now.AddDate(0, 0, -3),
	}
}

func newPending(t *testing.T) *Activity {
	t.Helper()
	a, err := NewExternal(id.NewActivityID(), id.NewUserID(), submission(), now)
	require.NoError(t, err)
	return a
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusPending, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestNewExternal(t *testing.T) {
	t.Run("starts pending with the date truncated", func(t *testing.T) {
		a := newPending(t)
		assert.Equal(t, StatusPending, a.Status)
		assert.Equal(t, TypeExternal, a.ActivityType)
		assert.Nil(t, a.SourceID)
		assert.Nil(t, a.ApproverID)
		assert.Equal(t, time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC), a.ActivityDate)
	})

	t.Run("hours outside the allowed range are rejected", func(t *testing.T) {
		for _, hours := range []float64{0, 0.25, 100.5} {
			sub := submission()
			sub.Hours = hours
			_, err := NewExternal(id.NewActivityID(), id.NewUserID(), sub, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "hours=%v", hours)
		}
	})

	t.Run("boundaries are accepted", func(t *testing.T) {
		for _, hours := range []float64{MinHours, MaxHours} {
			sub := submission()
			sub.Hours = hours
			_, err := NewExternal(id.NewActivityID(), id.NewUserID(), sub, now)
			assert.NoError(t, err)
		}
	})

	t.Run("today is allowed but tomorrow is not", func(t *testing.T) {
		sub := submission()
		sub.ActivityDate = now
		_, err := NewExternal(id.NewActivityID(), id.NewUserID(), sub, now)
		require.NoError(t, err)

		sub.ActivityDate = now.AddDate(0, 0, 1)
		_, err = NewExternal(id.NewActivityID(), id.NewUserID(), sub, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestNewCredited(t *testing.T) {
	source := uuid.New()
	credit := Credit{
		UserID:       id.NewUserID(),
		ActivityType: TypeEvent,
		SourceID:     source,
		Title:        "Annual conference",
		Category:     CategoryConference,
		Hours:        8,
		ActivityDate: now,
	}

	t.Run("is approved without an approver", func(t *testing.T) {
		a, err := NewCredited(id.NewActivityID(), credit, now)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, a.Status)
		assert.Nil(t, a.ApproverID)
		require.NotNil(t, a.ApprovedAt)
		assert.Equal(t, now, *a.ApprovedAt)
		require.NotNil(t, a.SourceID)
		assert.Equal(t, source, *a.SourceID)
	})

	t.Run("external credits are not allowed", func(t *testing.T) {
		c := credit
		c.ActivityType = TypeExternal
		_, err := NewCredited(id.NewActivityID(), c, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("a source is required", func(t *testing.T) {
		c := credit
		c.SourceID = uuid.Nil
		_, err := NewCredited(id.NewActivityID(), c, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("zero hours are refused", func(t *testing.T) {
		c := credit
		c.Hours = 0
		_, err := NewCredited(id.NewActivityID(), c, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestReview(t *testing.T) {
	approver := id.NewUserID()

	t.Run("approve records the approver", func(t *testing.T) {
		a := newPending(t)
		require.NoError(t, a.Approve(approver, now))
		assert.Equal(t, StatusApproved, a.Status)
		assert.Equal(t, approver, *a.ApproverID)
		assert.Equal(t, now, *a.ApprovedAt)
	})

	t.Run("approved activities cannot be decided again", func(t *testing.T) {
		a := newPending(t)
		require.NoError(t, a.Approve(approver, now))
		assert.True(t, dErrors.HasCode(a.Approve(approver, now), dErrors.CodeInvariantViolation))
		assert.True(t, dErrors.HasCode(a.Reject(approver, "late", now), dErrors.CodeInvariantViolation))
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		a := newPending(t)
		err := a.Reject(approver, "   ", now)
		require.Error(t, err)
		assert.Equal(t, StatusPending, a.Status)
	})

	t.Run("reject keeps who decided", func(t *testing.T) {
		a := newPending(t)
		require.NoError(t, a.Reject(approver, "no certificate attached", now))
		assert.Equal(t, StatusRejected, a.Status)
		assert.Equal(t, "no certificate attached", a.RejectionReason)
		assert.Equal(t, approver, *a.ApproverID)
		assert.True(t, a.OwnerRemovable())
		assert.False(t, a.OwnerEditable())
	})
}

func TestUpdate(t *testing.T) {
	t.Run("patch changes only the given fields", func(t *testing.T) {
		a := newPending(t)
		hours := 2.5
		title := "IFRS 17 deep dive"
		sub := a.Patched(Patch{Hours: &hours, Title: &title})
		require.NoError(t, a.CanUpdate(sub, now))
		a.ApplyUpdate(sub, now)
		assert.Equal(t, 2.5, a.Hours)
		assert.Equal(t, title, a.Title)
		assert.Equal(t, CategoryTraining, a.Category)
	})

	t.Run("patched content is re-validated", func(t *testing.T) {
		a := newPending(t)
		hours := 250.0
		err := a.CanUpdate(a.Patched(Patch{Hours: &hours}), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("system credits cannot be edited", func(t *testing.T) {
		a, err := NewCredited(id.NewActivityID(), Credit{
			UserID:       id.NewUserID(),
			ActivityType: TypeProgram,
			SourceID:     uuid.New(),
			Title:        "Risk management course",
			Category:     CategoryTraining,
			Hours:        20,
			ActivityDate: now,
		}, now)
		require.NoError(t, err)
		err = a.CanUpdate(a.Patched(Patch{}), now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestCategoryForEventType(t *testing.T) {
	cases := map[string]Category{
		"webinar":    CategoryWebinar,
		"workshop":   CategoryTraining,
		"seminar":    CategoryTraining,
		"training":   CategoryTraining,
		"exam":       CategoryTraining,
		"conference": CategoryConference,
		"networking": CategoryOther,
		"":           CategoryOther,
	}
	for eventType, want := range cases {
		assert.Equal(t, want, CategoryForEventType(eventType), eventType)
	}
}

func TestWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	w := Window{From: &from, To: &to}

	assert.True(t, w.Contains(from))
	assert.True(t, w.Contains(time.Date(2026, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, Window{}.Contains(now))

	year := YearWindow(2026)
	assert.True(t, year.Contains(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, year.Contains(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestListFilterMatches(t *testing.T) {
	a := newPending(t)

	assert.True(t, ListFilter{}.Matches(a))
	assert.True(t, ListFilter{Search: "ifrs"}.Matches(a))
	assert.False(t, ListFilter{Search: "audit"}.Matches(a))
	assert.False(t, ListFilter{Status: StatusApproved}.Matches(a))
	assert.True(t, ListFilter{UserID: &a.UserID, Category: CategoryTraining}.Matches(a))
	assert.False(t, ListFilter{ActivityType: TypeEvent}.Matches(a))
}
