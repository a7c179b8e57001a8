package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
)

var now = time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

func activeProgram(t *testing.T) *Program {
	t.Helper()
	p, err := NewProgram(id.NewCertificationProgramID(), ProgramInput{
		Name:     "Certified Accountant",
		Code:     " cap ",
		Type:     ProgramBasic,
		IsActive: true,
	}, now)
	require.NoError(t, err)
	return p
}

func pending(t *testing.T) *Certification {
	t.Helper()
	c, err := NewCertification(id.NewCertificationID(), activeProgram(t), Application{
		UserID:     id.NewUserID(),
		HolderName: "Bakyt Asanov",
		Number:     "CAP-2026-0001",
	}, now)
	require.NoError(t, err)
	return c
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusFailed, true},
		{StatusInProgress, StatusPassed, true},
		{StatusInProgress, StatusFailed, true},
		{StatusPassed, StatusRevoked, true},
		{StatusPending, StatusPassed, false},
		{StatusFailed, StatusPending, false},
		{StatusRevoked, StatusPassed, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestNewProgram(t *testing.T) {
	t.Run("normalizes code and defaults validity", func(t *testing.T) {
		p := activeProgram(t)
		assert.Equal(t, "CAP", p.Code)
		assert.Equal(t, DefaultValidityMonths, p.ValidityMonths)
	})

	t.Run("negative validity", func(t *testing.T) {
		_, err := NewProgram(id.NewCertificationProgramID(), ProgramInput{Code: "X", ValidityMonths: -1}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("filter hides inactive programs", func(t *testing.T) {
		p := activeProgram(t)
		p.IsActive = false
		assert.False(t, ProgramFilter{ActiveOnly: true}.Matches(p))
		assert.True(t, ProgramFilter{}.Matches(p))
		assert.False(t, ProgramFilter{Type: ProgramSpecialized}.Matches(p))
	})
}

func TestCertificateNumber(t *testing.T) {
	assert.Equal(t, "CAP-2026-0042", CertificateNumber(SequencePrefix("cap", 2026), 42))
	assert.Equal(t, "CAP-2026-12345", CertificateNumber(SequencePrefix("CAP", 2026), 12345))
}

func TestNewCertificationRequiresActiveProgram(t *testing.T) {
	p := activeProgram(t)
	p.IsActive = false
	_, err := NewCertification(id.NewCertificationID(), p, Application{UserID: id.NewUserID(), Number: "CAP-2026-0001"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestLifecycle(t *testing.T) {
	reviewer := id.NewUserID()

	t.Run("reject only while pending", func(t *testing.T) {
		c := pending(t)
		require.NoError(t, c.CanReject())
		c.ApplyRejection(reviewer, "incomplete file", now)
		assert.Equal(t, StatusFailed, c.Status)
		assert.Equal(t, "incomplete file", c.Notes)
		assert.Equal(t, reviewer, *c.ReviewedBy)

		c = pending(t)
		require.NoError(t, c.CanApprove())
		c.ApplyApproval(reviewer, now)
		assert.True(t, dErrors.HasCode(c.CanReject(), dErrors.CodeInvariantViolation))
	})

	t.Run("issue computes expiry in calendar months", func(t *testing.T) {
		c := pending(t)
		c.ApplyApproval(reviewer, now)
		require.NoError(t, c.CanIssue())
		c.ApplyIssue(reviewer, ExamOutcome{Score: 75, Date: now}, 1, now)
		assert.Equal(t, StatusPassed, c.Status)
		assert.Equal(t, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC), *c.ExpiryDate)
		assert.Equal(t, 75, *c.ExamScore)
	})

	t.Run("revoke appends notes", func(t *testing.T) {
		c := pending(t)
		c.Notes = "applied early"
		c.ApplyApproval(reviewer, now)
		c.ApplyIssue(reviewer, ExamOutcome{Score: 80, Date: now}, 36, now)
		require.NoError(t, c.CanRevoke())
		c.ApplyRevocation(reviewer, "fraud", now)
		assert.Equal(t, "applied early\n\nRevoked: fraud", c.Notes)
		assert.Equal(t, StatusRevoked, c.Status)
		assert.True(t, dErrors.HasCode(c.CanRevoke(), dErrors.CodeInvariantViolation))
	})

	t.Run("delete refused while held or in progress", func(t *testing.T) {
		c := pending(t)
		assert.NoError(t, c.CanDelete())
		c.ApplyApproval(reviewer, now)
		assert.Error(t, c.CanDelete())
		c.ApplyIssue(reviewer, ExamOutcome{Score: 80, Date: now}, 36, now)
		assert.Error(t, c.CanDelete())
	})
}

func TestExpiry(t *testing.T) {
	c := pending(t)
	c.ApplyApproval(id.NewUserID(), now)
	c.ApplyIssue(id.NewUserID(), ExamOutcome{Score: 90, Date: now}, 12, now)
	expiry := *c.ExpiryDate

	assert.True(t, c.IsActive(expiry))
	assert.False(t, c.IsExpired(expiry))
	assert.True(t, c.IsExpired(expiry.Add(time.Second)))
	assert.False(t, c.IsActive(expiry.Add(time.Second)))

	c.Status = StatusRevoked
	assert.False(t, c.IsExpired(expiry.Add(time.Hour)), "only passed certificates expire")
}

func TestVerify(t *testing.T) {
	c := pending(t)
	p := activeProgram(t)
	rec := RecordOf(c, p)
	v := rec.Verify(now)
	assert.False(t, v.Valid)
	assert.False(t, v.IsExpired)
	assert.Equal(t, p.Name, v.Record.Program)

	c.ApplyApproval(id.NewUserID(), now)
	c.ApplyIssue(id.NewUserID(), ExamOutcome{Score: 90, Date: now}, 12, now)
	rec = RecordOf(c, p)
	assert.True(t, rec.Verify(now).Valid)
	assert.True(t, rec.Verify(now.AddDate(2, 0, 0)).IsExpired)
}

func TestListFilter(t *testing.T) {
	c := pending(t)
	assert.True(t, ListFilter{Search: "cap-2026"}.Matches(c))
	assert.True(t, ListFilter{Search: "asanov"}.Matches(c))
	assert.False(t, ListFilter{HolderSearch: "cap-2026"}.Matches(c))
	assert.False(t, ListFilter{Active: true, At: now}.Matches(c))

	reg := RegistryFilter{Search: " bakyt ", At: now}.ListFilter()
	assert.Equal(t, StatusPassed, reg.Status)
	assert.True(t, reg.Active)
	assert.Equal(t, "bakyt", reg.HolderSearch)
}
