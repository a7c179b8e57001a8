package handler

import (
	"time"

	"github.com/fudign/kfa-sub000/internal/membership/models"
)

type ApplicationResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	MembershipType   string     `json:"membership_type"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	OrganizationName string     `json:"organization_name,omitempty"`
	Position         string     `json:"position,omitempty"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Experience       string     `json:"experience"`
	Motivation       string     `json:"motivation"`
	Status           string     `json:"status"`
	ReviewedBy       *string    `json:"reviewed_by"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func FromApplication(app *models.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:               app.ID.String(),
		UserID:           app.UserID.String(),
		MembershipType:   string(app.MembershipType),
		FirstName:        app.FirstName,
		LastName:         app.LastName,
		OrganizationName: app.OrganizationName,
		Position:         app.Position,
		Email:            app.Email,
		Phone:            app.Phone,
		Experience:       app.Experience,
		Motivation:       app.Motivation,
		Status:           string(app.Status),
		ReviewedAt:       app.ReviewedAt,
		RejectionReason:  app.RejectionReason,
		CreatedAt:        app.CreatedAt,
		UpdatedAt:        app.UpdatedAt,
	}
	if app.ReviewedBy != nil {
		reviewer := app.ReviewedBy.String()
		resp.ReviewedBy = &reviewer
	}
	return resp
}
