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

	"github.com/fudign/kfa-sub000/internal/certification/handler/mocks"
	"github.com/fudign/kfa-sub000/internal/certification/models"
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

func sampleCertification() *models.Certification {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &models.Certification{
		ID:                id.NewCertificationID(),
		UserID:            id.NewUserID(),
		ProgramID:         id.NewCertificationProgramID(),
		CertificateNumber: "CFA-2026-0001",
		HolderName:        "Aida Sultanova",
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *HandlerSuite) TestCreateProgram() {
	s.Run("defaults validity and activates", func() {
		s.service.EXPECT().CreateProgram(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in models.ProgramInput) (*models.Program, error) {
				s.Equal("CIA", in.Code)
				s.Equal(models.DefaultValidityMonths, in.ValidityMonths)
				s.True(in.IsActive)
				return &models.Program{ID: id.NewCertificationProgramID(), Name: in.Name, Code: in.Code, Type: in.Type, ValidityMonths: in.ValidityMonths, IsActive: true}, nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/certification-programs",
			map[string]any{"name": "Certified Internal Auditor", "code": " cia", "type": "basic"}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "code", "CIA")
	})

	s.Run("rejects a non-positive validity", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/certification-programs",
			map[string]any{"name": "X", "code": "X", "type": "basic", "validity_months": 0}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("rejects an unknown type", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/certification-programs",
			map[string]any{"name": "X", "code": "X", "type": "advanced"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestApply() {
	s.Run("returns 201", func() {
		cert := sampleCertification()
		s.service.EXPECT().Apply(gomock.Any(), cert.ProgramID, "first attempt").Return(cert, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/certifications/apply",
			map[string]any{"program_id": cert.ProgramID.String(), "notes": "first attempt"}))
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[CertificationResponse](s.T(), rr)
		s.Equal("CFA-2026-0001", resp.CertificateNumber)
		s.Nil(resp.ExpiryDate)
	})

	s.Run("duplicate is 422", func() {
		s.service.EXPECT().Apply(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicate, "you already have an active or pending certification for this program"))
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/certifications/apply",
			map[string]any{"program_id": id.NewCertificationProgramID().String()}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "duplicate")
	})

	s.Run("program is required", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/certifications/apply", map[string]any{}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestIssue() {
	cert := sampleCertification()
	path := "/certifications/" + cert.ID.String() + "/issue"

	s.Run("passes the exam outcome", func() {
		issued := *cert
		issued.Status = models.StatusPassed
		issuedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
		expiry := issuedAt.AddDate(0, 36, 0)
		issued.IssuedDate, issued.ExpiryDate = &issuedAt, &expiry

		s.service.EXPECT().Issue(gomock.Any(), cert.ID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ id.CertificationID, exam models.ExamOutcome) (*models.Certification, error) {
				s.Equal(91, exam.Score)
				s.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), exam.Date)
				s.JSONEq(`{"ethics":45,"reporting":46}`, string(exam.Results))
				return &issued, nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{
			"exam_score":   91,
			"exam_date":    "2026-03-01",
			"exam_results": map[string]int{"ethics": 45, "reporting": 46},
		}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "expiry_date", "2029-03-10")
	})

	s.Run("score is required", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]any{"exam_date": "2026-03-01"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("score out of range", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path,
			map[string]any{"exam_score": 101, "exam_date": "2026-03-01"}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("results must be an object", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path,
			map[string]any{"exam_score": 80, "exam_date": "2026-03-01", "exam_results": []int{1, 2}}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
	})
}

func (s *HandlerSuite) TestRejectAndRevokeRequireNotes() {
	cert := sampleCertification()
	for _, action := range []string{"reject", "revoke"} {
		s.Run(action, func() {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
				"/certifications/"+cert.ID.String()+"/"+action, map[string]string{"notes": "  "}))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "validation_error")
		})
	}

	s.Run("revoke passes notes", func() {
		s.service.EXPECT().Revoke(gomock.Any(), cert.ID, "misconduct").Return(cert, nil)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost,
			"/certifications/"+cert.ID.String()+"/revoke", map[string]string{"notes": "misconduct"}))
		testutil.AssertStatusOK(s.T(), rr)
	})
}

func (s *HandlerSuite) TestVerify() {
	s.Run("valid certificate omits private fields", func() {
		issued := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		expiry := time.Date(2028, 3, 10, 0, 0, 0, 0, time.UTC)
		s.service.EXPECT().Verify(gomock.Any(), "CFA-2025-0007").Return(models.Verification{
			Valid: true,
			Record: models.VerificationRecord{
				CertificateNumber: "CFA-2025-0007",
				Status:            models.StatusPassed,
				Holder:            "Aida Sultanova",
				Program:           "Certified Financial Analyst",
				IssuedDate:        &issued,
				ExpiryDate:        &expiry,
			},
		}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certifications/verify/CFA-2025-0007"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{
			"valid": true,
			"certificate": {
				"certificate_number": "CFA-2025-0007",
				"status": "passed",
				"holder": "Aida Sultanova",
				"program": "Certified Financial Analyst",
				"issued_date": "2025-03-10",
				"expiry_date": "2028-03-10",
				"is_expired": false
			}
		}`, rr.Body.String())
	})

	s.Run("unknown number", func() {
		s.service.EXPECT().Verify(gomock.Any(), "NOPE").
			Return(models.Verification{}, dErrors.New(dErrors.CodeNotFound, "Certificate not found"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certifications/verify/NOPE"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		s.JSONEq(`{"valid":false,"message":"Certificate not found"}`, rr.Body.String())
	})
}

func (s *HandlerSuite) TestRegistry() {
	s.Run("caps page size at 50", func() {
		programID := id.NewCertificationProgramID()
		s.service.EXPECT().Registry(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, filter models.RegistryFilter, page pagination.Params) (pagination.Page[models.RegistryEntry], error) {
				s.Equal(50, page.PerPage)
				s.Equal(programID, *filter.ProgramID)
				s.Equal("aida", filter.Search)
				return pagination.NewPage([]models.RegistryEntry{{
					CertificateNumber: "CFA-2025-0007",
					Holder:            "Aida Sultanova",
					ProgramID:         programID,
					IssuedDate:        time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
					ExpiryDate:        time.Date(2028, 3, 10, 0, 0, 0, 0, time.UTC),
				}}, page, 1), nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet,
			"/certifications/registry?per_page=500&search=aida&program_id="+programID.String()))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[pagination.Page[RegistryEntryResponse]](s.T(), rr)
		s.Require().Len(resp.Data, 1)
		s.Equal("2028-03-10", resp.Data[0].ExpiryDate)
	})
}

func (s *HandlerSuite) TestListAndStats() {
	s.Run("filters are parsed", func() {
		s.service.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, filter models.ListFilter, page pagination.Params) (pagination.Page[*models.Certification], error) {
				s.Equal(models.StatusPassed, filter.Status)
				s.True(filter.Expired)
				s.False(filter.Active)
				return pagination.NewPage([]*models.Certification{sampleCertification()}, page, 1), nil
			})
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certifications?status=passed&expired=true"))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("unknown status", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certifications?status=archived"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnprocessableEntity, "invalid_input")
	})

	s.Run("stats fill every status", func() {
		s.service.EXPECT().Stats(gomock.Any()).Return(models.Stats{
			Total:    2,
			ByStatus: map[models.Status]int{models.StatusPassed: 2},
			Active:   2,
		}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certifications/stats"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[StatsResponse](s.T(), rr)
		s.Len(resp.ByStatus, len(models.AllStatuses))
		s.Equal(0, resp.ByStatus["revoked"])
		s.Empty(resp.ByProgram)
	})

	s.Run("forbidden for members", func() {
		s.service.EXPECT().Stats(gomock.Any()).Return(models.Stats{}, dErrors.New(dErrors.CodeForbidden, "forbidden"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/certifications/stats"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
