package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"foodbridge/internal/donation/models"
	"foodbridge/internal/donation/service/mocks"
	"foodbridge/internal/donation/store"
	"foodbridge/internal/events"
	"foodbridge/internal/platform/metrics"
	"foodbridge/pkg/domain"
	dErrors "foodbridge/pkg/domain-errors"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	store     *store.InMemoryStore
	publisher *mocks.MockEventPublisher
	metrics   *metrics.Metrics
	svc       *Service
	now       time.Time
	ctx       context.Context
	donor     domain.Actor
	ngo       domain.Actor
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = store.NewInMemory()
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = New(s.store, WithEventPublisher(s.publisher), WithMetrics(s.metrics))
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.donor = domain.Actor{ID: domain.NewUserID(), Name: "Ana", Role: domain.RoleDonor}
	s.ngo = domain.Actor{ID: domain.NewUserID(), Name: "Food Bank", Role: domain.RoleNGO}
}

func (s *ServiceSuite) validRequest() *models.CreateDonationRequest {
	return &models.CreateDonationRequest{
		Phone:       "555-0100",
		Address:     "1 Main St",
		FoodDetails: "20 meals",
		Quantity:    "20",
	}
}

func (s *ServiceSuite) create() *models.Donation {
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())
	d, err := s.svc.Create(s.ctx, s.donor, s.validRequest())
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) TestCreate() {
	s.Run("records an open donation owned by the donor", func() {
		var published events.Event
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
			published = e
		})

		d, err := s.svc.Create(s.ctx, s.donor, s.validRequest())
		s.Require().NoError(err)
		s.Equal(models.StatusOpen, d.Status)
		s.Equal(s.donor.ID, d.DonorID)
		s.Equal("Ana", d.DonorName, "donor name defaults to the token name")
		s.Equal(s.now, d.CreatedAt)
		s.Nil(d.Claimant)
		s.Nil(d.PickedAt)

		s.Equal(events.TypeDonationCreated, published.Type)
		s.Equal(d.ID.String(), published.SubjectID)
		s.Equal(s.donor.ID.String(), published.ActorID)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DonationsCreated))

		stored, err := s.store.FindByID(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(d.FoodDetails, stored.FoodDetails)
	})

	s.Run("explicit donor name wins", func() {
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())
		req := s.validRequest()
		req.DonorName = "  Bakery  "
		d, err := s.svc.Create(s.ctx, s.donor, req)
		s.Require().NoError(err)
		s.Equal("Bakery", d.DonorName)
	})

	s.Run("missing required fields", func() {
		for _, mutate := range []func(*models.CreateDonationRequest){
			func(r *models.CreateDonationRequest) { r.Phone = "" },
			func(r *models.CreateDonationRequest) { r.Address = "" },
			func(r *models.CreateDonationRequest) { r.FoodDetails = "   " },
		} {
			req := s.validRequest()
			mutate(req)
			_, err := s.svc.Create(s.ctx, s.donor, req)
			s.True(dErrors.HasCode(err, dErrors.CodeMissingField))
		}
	})

	s.Run("ngo cannot post", func() {
		_, err := s.svc.Create(s.ctx, s.ngo, s.validRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("anonymous actor", func() {
		_, err := s.svc.Create(s.ctx, domain.Actor{}, s.validRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestCreateStoreFailureIsInternal() {
	st := mocks.NewMockStore(s.ctrl)
	st.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	svc := New(st)

	_, err := svc.Create(s.ctx, s.donor, s.validRequest())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestList() {
	first := s.create()
	s.ctx = requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
	second := s.create()

	s.Run("newest first", func() {
		all, err := s.svc.List(s.ctx, s.ngo, "")
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal(second.ID, all[0].ID)
		s.Equal(first.ID, all[1].ID)
	})

	s.Run("filters by status", func() {
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any())
		_, err := s.svc.Claim(s.ctx, s.ngo, first.ID.String())
		s.Require().NoError(err)

		open, err := s.svc.List(s.ctx, s.ngo, "open")
		s.Require().NoError(err)
		s.Require().Len(open, 1)
		s.Equal(second.ID, open[0].ID)
	})

	s.Run("unknown status rejected", func() {
		_, err := s.svc.List(s.ctx, s.ngo, "expired")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("donor cannot browse", func() {
		_, err := s.svc.List(s.ctx, s.donor, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestGet() {
	d := s.create()

	got, err := s.svc.Get(s.ctx, d.ID.String())
	s.Require().NoError(err)
	s.Equal(d.ID, got.ID)

	_, err = s.svc.Get(s.ctx, domain.NewDonationID().String())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.Get(s.ctx, "not-a-uuid")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestClaim() {
	d := s.create()
	later := s.now.Add(time.Hour)
	ctx := requestcontext.WithTime(s.ctx, later)

	s.Run("first claim wins", func() {
		var published events.Event
		s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e events.Event) {
			published = e
		})

		picked, err := s.svc.Claim(ctx, s.ngo, d.ID.String())
		s.Require().NoError(err)
		s.Equal(models.StatusPicked, picked.Status)
		s.Equal(s.ngo.ID, picked.Claimant.ID)
		s.Equal("Food Bank", picked.Claimant.Name)
		s.Equal(later, *picked.PickedAt)
		s.Equal(events.TypeDonationClaimed, published.Type)
		s.Equal(s.donor.ID.String(), published.Attributes["donor_id"])
		s.Equal(1.0, testutil.ToFloat64(s.metrics.DonationsClaimed))
	})

	s.Run("second claim conflicts and keeps first claimant", func() {
		other := domain.Actor{ID: domain.NewUserID(), Name: "Shelter", Role: domain.RoleNGO}
		_, err := s.svc.Claim(ctx, other, d.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClaimed))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ClaimConflicts))

		stored, err := s.svc.Get(ctx, d.ID.String())
		s.Require().NoError(err)
		s.Equal(s.ngo.ID, stored.Claimant.ID)
	})

	s.Run("unknown or malformed id", func() {
		_, err := s.svc.Claim(ctx, s.ngo, domain.NewDonationID().String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.svc.Claim(ctx, s.ngo, "42")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("donor cannot claim", func() {
		_, err := s.svc.Claim(ctx, s.donor, d.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestClaimStoreErrors() {
	st := mocks.NewMockStore(s.ctrl)
	svc := New(st)
	id := domain.NewDonationID()

	st.EXPECT().UpdateStatus(gomock.Any(), id, models.StatusPicked, gomock.Any(), s.now).
		Return(nil, errors.New("connection reset"))
	_, err := svc.Claim(s.ctx, s.ngo, id.String())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	st.EXPECT().UpdateStatus(gomock.Any(), id, models.StatusPicked, gomock.Any(), s.now).
		Return(nil, sentinel.ErrAlreadyUsed)
	_, err = svc.Claim(s.ctx, s.ngo, id.String())
	s.True(dErrors.HasCode(err, dErrors.CodeAlreadyClaimed))
}
