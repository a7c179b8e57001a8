// Package lifecycle drives the fully wired HTTP stack, in memory, across
// bounded contexts: membership feeds member pricing, attendance and program
// completion feed CPE totals.
package lifecycle

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	certhandler "github.com/fudign/kfa-sub000/internal/certification/handler"
	certservice "github.com/fudign/kfa-sub000/internal/certification/service"
	certstore "github.com/fudign/kfa-sub000/internal/certification/store"
	cpehandler "github.com/fudign/kfa-sub000/internal/cpe/handler"
	cpeservice "github.com/fudign/kfa-sub000/internal/cpe/service"
	cpestore "github.com/fudign/kfa-sub000/internal/cpe/store"
	eventhandler "github.com/fudign/kfa-sub000/internal/event/handler"
	eventservice "github.com/fudign/kfa-sub000/internal/event/service"
	eventstore "github.com/fudign/kfa-sub000/internal/event/store"
	jwttoken "github.com/fudign/kfa-sub000/internal/jwt_token"
	membershiphandler "github.com/fudign/kfa-sub000/internal/membership/handler"
	membershipservice "github.com/fudign/kfa-sub000/internal/membership/service"
	membershipstore "github.com/fudign/kfa-sub000/internal/membership/store"
	programhandler "github.com/fudign/kfa-sub000/internal/program/handler"
	programservice "github.com/fudign/kfa-sub000/internal/program/service"
	programstore "github.com/fudign/kfa-sub000/internal/program/store"
	ratelimit "github.com/fudign/kfa-sub000/internal/ratelimit/middleware"
	ratelimitmodels "github.com/fudign/kfa-sub000/internal/ratelimit/models"
	"github.com/fudign/kfa-sub000/internal/ratelimit/store/bucket"
	httptransport "github.com/fudign/kfa-sub000/internal/transport/http"
	"github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/fudign/kfa-sub000/pkg/platform/audit/store/memory"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/testutil"
)

type LifecycleSuite struct {
	suite.Suite
	tokens *jwttoken.JWTService
	audit  *auditmemory.InMemoryStore
	router http.Handler
	admin  domain.Actor
	user   domain.Actor
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	s.tokens = jwttoken.NewJWTService("lifecycle-key", "kfa")
	s.audit = auditmemory.NewInMemoryStore()
	s.admin = testutil.NewActor(domain.RoleAdmin)
	s.user = testutil.NewActor(domain.RoleUser)

	runner := tx.NewMemoryRunner()
	pub := publisher.NewPublisher(s.audit)
	members := membershipstore.NewInMemoryStore()

	membershipSvc := membershipservice.New(members, runner, membershipservice.WithAuditPublisher(pub))
	cpeSvc := cpeservice.New(cpestore.NewInMemoryStore(), runner, cpeservice.WithAuditPublisher(pub))
	certSvc := certservice.New(certstore.NewInMemoryStore(), runner, certservice.WithAuditPublisher(pub))
	eventSvc := eventservice.New(eventstore.NewInMemoryStore(), runner,
		eventservice.WithAuditPublisher(pub),
		eventservice.WithMemberDirectory(members),
		eventservice.WithCPECreditor(cpeSvc),
	)
	programSvc := programservice.New(programstore.NewInMemoryStore(), runner,
		programservice.WithAuditPublisher(pub),
		programservice.WithMemberDirectory(members),
		programservice.WithCPECreditor(cpeSvc),
	)
	limiter := ratelimit.New(bucket.NewInMemoryBucketStore(), log)

	s.router = httptransport.NewRouter(httptransport.Options{
		Logger:   log,
		Resolver: jwttoken.NewActorResolver(s.tokens),
		Clock:    func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
	},
		membershiphandler.New(membershipSvc, log, membershiphandler.WithSubmitMiddleware(
			limiter.PerIP(ratelimitmodels.Policy{Name: "applications", Limit: 2, Window: time.Minute}),
		)),
		cpehandler.New(cpeSvc, log),
		certhandler.New(certSvc, log),
		eventhandler.New(eventSvc, log),
		programhandler.New(programSvc, log),
	)
}

func (s *LifecycleSuite) do(actor domain.Actor, method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = testutil.NewRequest(s.T(), method, path)
	} else {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	}
	if actor.IsAuthenticated() {
		token, err := s.tokens.GenerateActorToken(actor, time.Hour)
		s.Require().NoError(err)
		testutil.WithBearer(req, token)
	}
	return testutil.DoRequest(s.router, req)
}

func decode[T any](s *LifecycleSuite, rr *httptest.ResponseRecorder, status int) *T {
	s.T().Helper()
	s.Require().Equal(status, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[T](s.T(), rr)
}

func (s *LifecycleSuite) applicationBody() map[string]any {
	return map[string]any{
		"membership_type": "individual",
		"first_name":      "Aigerim",
		"last_name":       "Nurlanova",
		"email":           "aigerim@kfa.test",
		"phone":           "+996 555 123 456",
		"experience":      "Six years in audit at a Big Four firm.",
		"motivation":      strings.Repeat("I want to contribute to the financial community. ", 3),
		"agree_to_terms":  true,
	}
}

func (s *LifecycleSuite) becomeMember() {
	app := decode[membershiphandler.ApplicationResponse](s,
		s.do(s.user, http.MethodPost, "/applications", s.applicationBody()), http.StatusCreated)
	decode[membershiphandler.ApplicationResponse](s,
		s.do(s.admin, http.MethodPost, "/applications/"+app.ID+"/approve", nil), http.StatusOK)
}

func (s *LifecycleSuite) TestMemberPriceAndAttendanceCredit() {
	s.becomeMember()

	event := decode[eventhandler.EventResponse](s, s.do(s.admin, http.MethodPost, "/events", map[string]any{
		"title":        "Annual audit forum",
		"event_type":   "conference",
		"status":       "registration_open",
		"starts_at":    "2026-04-10T09:00:00Z",
		"price":        100,
		"member_price": 40,
		"cpe_hours":    6,
	}), http.StatusCreated)

	reg := decode[eventhandler.RegistrationResponse](s,
		s.do(s.user, http.MethodPost, "/events/"+event.ID+"/register", nil), http.StatusCreated)
	s.Equal("approved", reg.Status)
	s.InDelta(40.0, reg.AmountPaid, 0.001)

	decode[eventhandler.RegistrationResponse](s,
		s.do(s.admin, http.MethodPost, "/event-registrations/"+reg.ID+"/mark-attended", nil), http.StatusOK)

	summary := decode[cpehandler.SummaryResponse](s,
		s.do(s.user, http.MethodGet, "/cpe-activities/mine/stats", nil), http.StatusOK)
	s.InDelta(6.0, summary.TotalHours, 0.001)
}

func (s *LifecycleSuite) TestProgramCompletionCreditsOnce() {
	program := decode[programhandler.ProgramResponse](s, s.do(s.admin, http.MethodPost, "/programs", map[string]any{
		"title":         "IFRS 17 deep dive",
		"program_type":  "course",
		"status":        "enrollment_open",
		"price":         300,
		"cpe_hours":     20,
		"has_exam":      true,
		"passing_score": 70,
	}), http.StatusCreated)

	e := decode[programhandler.EnrollmentResponse](s,
		s.do(s.user, http.MethodPost, "/programs/"+program.ID+"/enroll", nil), http.StatusCreated)
	base := "/program-enrollments/" + e.ID
	decode[programhandler.EnrollmentResponse](s, s.do(s.admin, http.MethodPost, base+"/start", nil), http.StatusOK)
	decode[programhandler.EnrollmentResponse](s,
		s.do(s.admin, http.MethodPatch, base+"/progress", map[string]any{"progress": 100}), http.StatusOK)

	s.Equal(http.StatusUnprocessableEntity, s.do(s.admin, http.MethodPost, base+"/complete", nil).Code)

	done := decode[programhandler.EnrollmentResponse](s,
		s.do(s.admin, http.MethodPost, base+"/complete", map[string]any{"exam_score": 82}), http.StatusOK)
	s.Require().NotNil(done.Passed)
	s.True(*done.Passed)

	s.Equal(http.StatusUnprocessableEntity, s.do(s.admin, http.MethodPost, base+"/complete", map[string]any{"exam_score": 90}).Code)

	summary := decode[cpehandler.SummaryResponse](s,
		s.do(s.user, http.MethodGet, "/cpe-activities/mine/stats", nil), http.StatusOK)
	s.InDelta(20.0, summary.TotalHours, 0.001)

	events, err := s.audit.ListAll(context.Background())
	s.Require().NoError(err)
	s.NotEmpty(events)
	s.Contains(s.audit.Actions(), string(audit.EventEnrollmentCompleted))
}

func (s *LifecycleSuite) TestApplicationSubmissionIsThrottled() {
	other := testutil.NewActor(domain.RoleUser)
	s.Equal(http.StatusCreated, s.do(s.user, http.MethodPost, "/applications", s.applicationBody()).Code)
	s.Equal(http.StatusUnprocessableEntity, s.do(s.user, http.MethodPost, "/applications", s.applicationBody()).Code)
	s.Equal(http.StatusTooManyRequests, s.do(other, http.MethodPost, "/applications", s.applicationBody()).Code)
}

type listEnvelope struct {
	Data []map[string]any `json:"data"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func (s *LifecycleSuite) TestCallerListsOwnRecords() {
	other := testutil.NewActor(domain.RoleMember)
	activity := map[string]any{
		"title":         "Ethics refresher",
		"category":      "self_study",
		"hours":         2,
		"activity_date": "2026-02-20",
	}
	s.Require().Equal(http.StatusCreated, s.do(s.user, http.MethodPost, "/applications", s.applicationBody()).Code)
	s.Require().Equal(http.StatusCreated, s.do(s.user, http.MethodPost, "/cpe-activities", activity).Code)
	s.Require().Equal(http.StatusCreated, s.do(other, http.MethodPost, "/cpe-activities", activity).Code)

	certProgram := decode[certhandler.ProgramResponse](s, s.do(s.admin, http.MethodPost, "/certification-programs", map[string]any{
		"name": "Certified Internal Auditor",
		"code": "cia",
		"type": "basic",
	}), http.StatusCreated)
	s.Require().Equal(http.StatusCreated, s.do(s.user, http.MethodPost, "/certifications/apply",
		map[string]any{"program_id": certProgram.ID}).Code)

	event := decode[eventhandler.EventResponse](s, s.do(s.admin, http.MethodPost, "/events", map[string]any{
		"title":      "Tax update webinar",
		"event_type": "webinar",
		"status":     "published",
		"starts_at":  "2026-05-01T10:00:00Z",
	}), http.StatusCreated)
	s.Require().Equal(http.StatusCreated, s.do(s.user, http.MethodPost, "/events/"+event.ID+"/register", nil).Code)

	program := decode[programhandler.ProgramResponse](s, s.do(s.admin, http.MethodPost, "/programs", map[string]any{
		"title":        "Audit sampling",
		"program_type": "course",
		"status":       "published",
	}), http.StatusCreated)
	s.Require().Equal(http.StatusCreated, s.do(s.user, http.MethodPost, "/programs/"+program.ID+"/enroll", nil).Code)

	for _, path := range []string{
		"/applications/mine", "/applications",
		"/cpe-activities/mine", "/cpe-activities",
		"/certifications/mine", "/certifications",
		"/event-registrations/mine", "/event-registrations",
		"/program-enrollments/mine", "/program-enrollments",
	} {
		s.Run(path, func() {
			page := decode[listEnvelope](s, s.do(s.user, http.MethodGet, path, nil), http.StatusOK)
			s.Equal(1, page.Meta.Total)
			s.Require().Len(page.Data, 1)
			s.Equal(s.user.UserID.String(), page.Data[0]["user_id"])
		})
	}

	s.Run("guests must authenticate", func() {
		s.Equal(http.StatusUnauthorized, s.do(domain.Guest(), http.MethodGet, "/program-enrollments/mine", nil).Code)
	})
}
