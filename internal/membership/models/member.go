package models

import (
	"time"

	id "github.com/fudign/kfa-sub000/pkg/domain"
)

// Member is an entry in the member directory. Approving an application
// creates or refreshes the applicant's entry; member pricing reads it.
type Member struct {
	UserID         id.UserID
	ApplicationID  id.ApplicationID
	MembershipType MembershipType
	Name           string
	Email          string
	JoinedAt       time.Time
}

// MemberFromApplication builds the directory entry for an approved
// application.
func MemberFromApplication(app *Application, now time.Time) Member {
	return Member{
		UserID:         app.UserID,
		ApplicationID:  app.ID,
		MembershipType: app.MembershipType,
		Name:           app.FullName(),
		Email:          app.Email,
		JoinedAt:       now,
	}
}
