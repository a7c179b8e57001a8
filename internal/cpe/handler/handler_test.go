package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/fudign/kfa-sub000/internal/cpe/handler/mocks"
	"github.com/fudign/kfa-sub000/internal/cpe/models"
	id "github.com/fudign/kfa-sub000/pkg/domain"
	dErrors "github.com/fudign/kfa-sub000/pkg/domain-errors"
	"github.com/fudign/kfa-sub000/pkg/platform/pagination"
	"github.com/fudign/kfa-sub000/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func sampleActivity() *models.Activity {
	now := time.Date(2026, 6, 20, 9, 0, 0, 0, time.UTC)
	return &models.Activity{
		ID:           id.NewActivityID(),
		UserID:       id.NewUserID(),
		ActivityType: models.TypeExternal,
		Title:        "Audit sampling",
		Category:     models.CategoryTraining,
		Hours:        3.5,
		ActivityDate: time.Date(2026, 6, 18, 0, 0, 0, 0, time.UTC),
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func validSubmitBody() map[string]any {
	return map[string]any{
		"title":         "  Audit sampling ",
		"category":      "training",
		"hours":         3.5,
		"activity_date": "2026-06-18",
	}
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("valid request returns 201", func() {
		activity := sampleActivity()
		s.service.EXPECT().Submit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, sub models.Submission) (*models.Activity, error) {
				s.Equal("Audit sampling", sub.Title)
				s.Equal(models.CategoryTraining, sub.Category)
				s.Equal(time.Date(2026, 6, 18, 0, 0, 0, 0, time.UTC), sub.ActivityDate)
				return activity, nil
			})

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpe-activities", validSubmitBody()))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[ActivityResponse](s.T(), rr)
		s.Equal(activity.ID.String(), resp.ID)
		s.Equal("2026-06-18", resp.ActivityDate)
		s.Equal("External", resp.ActivityType)
		s.Nil(resp.SourceID)
	})

	s.Run("hours below the minimum", func() {
		body := validSubmitBody()
		body["hours"] = 0.25
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpe-activities", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("unknown category", func() {
		body := validSubmitBody()
		body["category"] = "gaming"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpe-activities", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("malformed date", func() {
		body := validSubmitBody()
		body["activity_date"] = "18/06/2026"
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpe-activities", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("missing title", func() {
		body := validSubmitBody()
		body["title"] = " "
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpe-activities", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestUpdate() {
	activity := sampleActivity()

	s.Run("only supplied fields reach the service", func() {
		s.service.EXPECT().Update(gomock.Any(), activity.ID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ id.ActivityID, patch models.Patch) (*models.Activity, error) {
				s.Require().NotNil(patch.Hours)
				s.Equal(5.0, *patch.Hours)
				s.Nil(patch.Title)
				s.Nil(patch.Category)
				return activity, nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/cpe-activities/"+activity.ID.String(), map[string]any{"hours": 5}))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("forbidden after approval", func() {
		s.service.EXPECT().Update(gomock.Any(), activity.ID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "this CPE activity can no longer be changed by its owner"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/cpe-activities/"+activity.ID.String(), map[string]any{"title": "New"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("invalid patch value", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPatch,
			"/cpe-activities/"+activity.ID.String(), map[string]any{"hours": 101}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestReview() {
	activity := sampleActivity()

	s.Run("approve", func() {
		approved := *activity
		approved.Status = models.StatusApproved
		s.service.EXPECT().Approve(gomock.Any(), activity.ID).Return(&approved, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/cpe-activities/"+activity.ID.String()+"/approve"))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "status", "approved")
	})

	s.Run("reject without reason", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/cpe-activities/"+activity.ID.String()+"/reject", map[string]string{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("reject passes the reason", func() {
		s.service.EXPECT().Reject(gomock.Any(), activity.ID, "Not CPE eligible").Return(activity, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/cpe-activities/"+activity.ID.String()+"/reject", map[string]string{"rejection_reason": "Not CPE eligible"}))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("delete returns 204", func() {
		s.service.EXPECT().Delete(gomock.Any(), activity.ID).Return(nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/cpe-activities/"+activity.ID.String()))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})
}

func (s *HandlerSuite) TestList() {
	s.Run("filters are parsed", func() {
		userID := id.NewUserID()
		s.service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Activity], error) {
				s.Equal(userID, *filter.UserID)
				s.Equal(models.StatusApproved, filter.Status)
				s.Equal(models.CategoryWebinar, filter.Category)
				s.Equal(models.TypeEvent, filter.ActivityType)
				s.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *filter.Window.From)
				s.Nil(filter.Window.To)
				s.Equal("tax", filter.Search)
				return pagination.NewPage([]*models.Activity{sampleActivity()}, page, 1), nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
			"/cpe-activities?user_id="+userID.String()+"&status=approved&category=webinar&activity_type=Event&from_date=2026-01-01&search=tax"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[pagination.Page[ActivityResponse]](s.T(), rr)
		s.Len(resp.Data, 1)
	})

	s.Run("bad date", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/cpe-activities?to_date=yesterday"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_input")
	})

	s.Run("mine", func() {
		s.service.EXPECT().ListMine(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pagination.NewPage[*models.Activity](nil, pagination.Params{Page: 1, PerPage: 20}, 0), nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/cpe-activities/mine"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"data":[],"meta":{"page":1,"per_page":20,"total":0}}`, rr.Body.String())
	})
}

func (s *HandlerSuite) TestStats() {
	s.Run("summary lists every status and category", func() {
		s.service.EXPECT().MyStats(gomock.Any(), models.Window{}).Return(models.Summary{
			TotalHours:       12,
			CurrentYear:      2026,
			CurrentYearHours: 8,
			ByCategory:       map[models.Category]float64{models.CategoryTraining: 12},
			ByStatus:         map[models.Status]int{models.StatusApproved: 3},
			ActivitiesCount:  3,
		}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/cpe-activities/mine/stats"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[SummaryResponse](s.T(), rr)
		s.Equal(12.0, resp.TotalHours)
		s.Equal(0, resp.ByStatus["pending"])
		s.Equal(3, resp.ByStatus["approved"])
		s.Len(resp.ByCategory, len(models.AllCategories))
	})

	s.Run("overview reports its date range", func() {
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
		s.service.EXPECT().Stats(gomock.Any(), gomock.Any()).Return(models.Overview{
			TotalApprovedHours: 30,
			AverageHours:       7.5,
			From:               from,
			To:                 to,
		}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/cpe-activities/stats?from_date=2026-01-01&to_date=2026-03-31"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[OverviewResponse](s.T(), rr)
		s.Equal(DateRange{From: "2026-01-01", To: "2026-03-31"}, resp.DateRange)
		s.Equal(7.5, resp.AverageHours)
	})

	s.Run("overview forbidden for members", func() {
		s.service.EXPECT().Stats(gomock.Any(), gomock.Any()).
			Return(models.Overview{}, dErrors.New(dErrors.CodeForbidden, "not allowed to stats this CPE activity"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/cpe-activities/stats"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
