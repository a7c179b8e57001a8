package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fudign/kfa-sub000/internal/membership/models"
)

// SubmitApplicationRequestSuite tests normalization and field limits.
type SubmitApplicationRequestSuite struct {
	suite.Suite
}

func TestSubmitApplicationRequestSuite(t *testing.T) {
	suite.Run(t, new(SubmitApplicationRequestSuite))
}

func (s *SubmitApplicationRequestSuite) validRequest() *SubmitApplicationRequest {
	return &SubmitApplicationRequest{
		MembershipType:   "corporate",
		FirstName:        " Aida ",
		LastName:         "Bekova",
		OrganizationName: "Kyrgyz Audit LLC",
		Email:            "aida@example.kg",
		Phone:            "+996555000111",
		Experience:       "Partner",
		Motivation:       strings.Repeat("a", MinMotivationLength),
		AgreeToTerms:     true,
	}
}

func (s *SubmitApplicationRequestSuite) TestValidation() {
	s.Run("valid request populates the submission", func() {
		req := s.validRequest()
		s.Require().NoError(req.Validate())
		sub := req.ParsedSubmission()
		s.Equal(models.TypeCorporate, sub.MembershipType)
		s.Equal("Aida", sub.FirstName)
		s.Equal("Kyrgyz Audit LLC", sub.OrganizationName)
	})

	s.Run("unknown membership type", func() {
		req := s.validRequest()
		req.MembershipType = "honorary"
		s.Error(req.Validate())
	})

	s.Run("first name over 255 characters", func() {
		req := s.validRequest()
		req.FirstName = strings.Repeat("n", 256)
		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "first_name")
	})

	s.Run("phone over 50 characters", func() {
		req := s.validRequest()
		req.Phone = strings.Repeat("1", 51)
		s.Error(req.Validate())
	})

	s.Run("motivation one short of the minimum", func() {
		req := s.validRequest()
		req.Motivation = strings.Repeat("a", MinMotivationLength-1)
		err := req.Validate()
		s.Require().Error(err)
		s.Contains(err.Error(), "motivation")
	})

	s.Run("invalid email", func() {
		req := s.validRequest()
		req.Email = "aida-at-example"
		s.Error(req.Validate())
	})

	s.Run("experience required", func() {
		req := s.validRequest()
		req.Experience = " "
		s.Error(req.Validate())
	})
}

func (s *SubmitApplicationRequestSuite) TestRejectRequest() {
	req := &RejectApplicationRequest{RejectionReason: strings.Repeat("r", 1001)}
	s.Error(req.Validate())

	req = &RejectApplicationRequest{RejectionReason: " Incomplete "}
	s.Require().NoError(req.Validate())
	s.Equal("Incomplete", req.RejectionReason)
}
