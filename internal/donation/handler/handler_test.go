package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"foodbridge/internal/donation/handler/mocks"
	"foodbridge/internal/donation/models"
	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	authmw "foodbridge/pkg/platform/middleware/auth"
	"foodbridge/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	donor   domain.Actor
	ngo     domain.Actor
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func passThrough(next http.Handler) http.Handler { return next }

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	requireRole := func(role domain.Role) func(http.Handler) http.Handler {
		return authmw.RequireRole(role, logger)
	}
	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router, passThrough, requireRole)
	s.donor = domain.Actor{ID: domain.NewUserID(), Name: "Ana", Role: domain.RoleDonor}
	s.ngo = domain.Actor{ID: domain.NewUserID(), Name: "Food Bank", Role: domain.RoleNGO}
}

func (s *HandlerSuite) sampleDonation() *models.Donation {
	return &models.Donation{
		ID:          domain.NewDonationID(),
		DonorID:     s.donor.ID,
		DonorName:   "Ana",
		Phone:       "123",
		Address:     "Flat 1",
		FoodDetails: "10 meals",
		Status:      models.StatusOpen,
		CreatedAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *HandlerSuite) TestCreate() {
	s.Run("201 with open donation", func() {
		d := s.sampleDonation()
		s.service.EXPECT().Create(gomock.Any(), s.donor, &models.CreateDonationRequest{
			Phone: "123", Address: "Flat 1", FoodDetails: "10 meals",
		}).Return(d, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations",
			map[string]string{"phone": "123", "address": "Flat 1", "foodDetails": "10 meals"})
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.donor))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.DonationResponse](s.T(), rr)
		s.Equal(d.ID.String(), resp.ID)
		s.Equal("open", resp.Status)
		s.Nil(resp.NGOID)
		s.Nil(resp.PickedAt)
	})

	s.Run("ngo is forbidden before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", map[string]string{"phone": "1"})
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("missing fields map to 400", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeMissingField, "Missing required fields"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/donations", map[string]string{})
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.donor))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "missing_field")
	})

	s.Run("malformed json", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/donations", "{")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.donor))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_request")
	})
}

func (s *HandlerSuite) TestList() {
	s.Run("passes status filter and returns an array", func() {
		d := s.sampleDonation()
		s.service.EXPECT().List(gomock.Any(), s.ngo, "open").Return([]*models.Donation{d}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/donations?status=open")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[[]models.DonationResponse](s.T(), rr)
		s.Require().Len(*resp, 1)
		s.Equal(d.ID.String(), (*resp)[0].ID)
	})

	s.Run("empty ledger is an empty array", func() {
		s.service.EXPECT().List(gomock.Any(), s.ngo, "").Return([]*models.Donation{}, nil)

		req := testutil.NewRequest(s.T(), http.MethodGet, "/donations")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.JSONEq(`[]`, rr.Body.String())
	})

	s.Run("donor is forbidden", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/donations")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.donor))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestGet() {
	d := s.sampleDonation()
	s.service.EXPECT().Get(gomock.Any(), d.ID.String()).Return(d, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+d.ID.String())
	rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.donor))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	s.service.EXPECT().Get(gomock.Any(), "missing").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "Donation not found"))
	req = testutil.NewRequest(s.T(), http.MethodGet, "/donations/missing")
	rr = testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestPick() {
	s.Run("200 with claimant", func() {
		d := s.sampleDonation()
		at := d.CreatedAt.Add(time.Hour)
		s.Require().NoError(d.Pick(models.Claimant{ID: s.ngo.ID, Name: s.ngo.Name}, at))
		s.service.EXPECT().Claim(gomock.Any(), s.ngo, d.ID.String()).Return(d, nil)

		req := testutil.NewRequest(s.T(), http.MethodPatch, "/donations/"+d.ID.String()+"/pick")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[models.DonationResponse](s.T(), rr)
		s.Equal("picked", resp.Status)
		s.Require().NotNil(resp.NGOID)
		s.Equal(s.ngo.ID.String(), *resp.NGOID)
		s.Equal("Food Bank", *resp.NGOName)
	})

	s.Run("already claimed maps to 400", func() {
		s.service.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeAlreadyClaimed, "Already picked"))

		req := testutil.NewRequest(s.T(), http.MethodPatch, "/donations/x/pick")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "already_claimed")
	})

	s.Run("donor is forbidden", func() {
		req := testutil.NewRequest(s.T(), http.MethodPatch, "/donations/x/pick")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.donor))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("internal errors hide their cause", func() {
		s.service.EXPECT().Claim(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(bytes.ErrTooLarge, dErrors.CodeInternal, "failed to claim donation"))

		req := testutil.NewRequest(s.T(), http.MethodPatch, "/donations/x/pick")
		rr := testutil.DoRequest(s.router, testutil.WithActor(req, s.ngo))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "too large")
	})
}
