package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	jwttoken "github.com/fudign/kfa-sub000/internal/jwt_token"
	membershipstore "github.com/fudign/kfa-sub000/internal/membership/store"
	programhandler "github.com/fudign/kfa-sub000/internal/program/handler"
	programservice "github.com/fudign/kfa-sub000/internal/program/service"
	programstore "github.com/fudign/kfa-sub000/internal/program/store"
	"github.com/fudign/kfa-sub000/pkg/domain"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/publisher"
	auditmemory "github.com/fudign/kfa-sub000/pkg/platform/audit/store/memory"
	"github.com/fudign/kfa-sub000/pkg/platform/tx"
	"github.com/fudign/kfa-sub000/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	tokens *jwttoken.JWTService
	audit  *auditmemory.InMemoryStore
	router http.Handler
	admin  domain.Actor
	member domain.Actor
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.tokens = jwttoken.NewJWTService("router-test-key", "kfa")
	s.audit = auditmemory.NewInMemoryStore()
	s.admin = testutil.NewActor(domain.RoleAdmin)
	s.member = testutil.NewActor(domain.RoleMember)

	runner := tx.NewMemoryRunner()
	svc := programservice.New(programstore.NewInMemoryStore(), runner,
		programservice.WithAuditPublisher(publisher.NewPublisher(s.audit)),
		programservice.WithMemberDirectory(membershipstore.NewInMemoryStore()),
	)
	s.router = NewRouter(Options{
		Resolver: jwttoken.NewActorResolver(s.tokens),
		Clock:    func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) },
		Health: map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
		},
	}, programhandler.New(svc, slog.New(slog.DiscardHandler)))
}

func (s *RouterSuite) bearer(req *http.Request, actor domain.Actor) *http.Request {
	token, err := s.tokens.GenerateActorToken(actor, time.Hour)
	s.Require().NoError(err)
	return testutil.WithBearer(req, token)
}

func (s *RouterSuite) TestHealthz() {
	s.Run("all checks pass", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "ok")
	})

	s.Run("a failing check degrades", func() {
		router := NewRouter(Options{
			Resolver: jwttoken.NewActorResolver(s.tokens),
			Health: map[string]HealthCheck{
				"redis": func(context.Context) error { return errors.New("connection refused") },
			},
		})
		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(s.T(), rr, "status", "degraded")
	})
}

func (s *RouterSuite) TestMetricsEndpoint() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rr)
}

func (s *RouterSuite) TestRequestIDHeader() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/programs"))
	testutil.AssertStatusOK(s.T(), rr)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestEnrollmentThroughTheStack() {
	create := s.bearer(testutil.NewJSONRequest(s.T(), http.MethodPost, "/programs", map[string]any{
		"title":        "IFRS essentials",
		"program_type": "course",
		"status":       "enrollment_open",
		"max_students": 10,
		"price":        200,
	}), s.admin)
	rr := testutil.DoRequest(s.router, create)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	program := testutil.UnmarshalResponse[programhandler.ProgramResponse](s.T(), rr)
	s.True(program.IsEnrollmentOpen)

	s.Run("guests are asked to authenticate", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/programs/"+program.ID+"/enroll"))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("a bad token is rejected", func() {
		req := testutil.NewRequest(s.T(), http.MethodPost, "/programs/"+program.ID+"/enroll")
		req.Header.Set("Authorization", "Bearer not-a-token")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("a member enrolls and the event carries the request context", func() {
		req := s.bearer(testutil.NewRequest(s.T(), http.MethodPost, "/programs/"+program.ID+"/enroll"), s.member)
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		enrollment := testutil.UnmarshalResponse[programhandler.EnrollmentResponse](s.T(), rr)
		s.Equal("approved", enrollment.Status)
		s.Equal(s.member.UserID.String(), enrollment.UserID)

		events, err := s.audit.ListAll(context.Background())
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		last := events[len(events)-1]
		s.Equal(s.member.UserID.String(), last.ActorID)
		s.NotEmpty(last.RequestID)
	})

	s.Run("members cannot read statistics", func() {
		req := s.bearer(testutil.NewRequest(s.T(), http.MethodGet, "/program-enrollments/stats"), s.member)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})
}
