//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/donation/models"
	"foodbridge/internal/donation/store"
	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	driver   string
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	base     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, &PostgresStoreSuite{driver: "postgres"})
}

func TestPostgresStoreSuitePGX(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, &PostgresStoreSuite{driver: "pgx"})
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), s.driver)
	s.store = store.NewPostgres(s.postgres.DB)
	s.base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "donations"))
}

func (s *PostgresStoreSuite) newDonation(createdAt time.Time) *models.Donation {
	return &models.Donation{
		ID:             domain.NewDonationID(),
		DonorID:        domain.NewUserID(),
		DonorName:      "Ana",
		Phone:          "555",
		Address:        "1 Main St",
		FoodDetails:    "rice",
		Quantity:       "5kg",
		BestBeforeTime: "tonight",
		Status:         models.StatusOpen,
		CreatedAt:      createdAt,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	d := s.newDonation(s.base)
	s.Require().NoError(s.store.Create(ctx, d))

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.FoodDetails, found.FoodDetails)
	s.Equal(d.Quantity, found.Quantity)
	s.Equal(models.StatusOpen, found.Status)
	s.Nil(found.Claimant)
	s.Nil(found.PickedAt)
	s.True(d.CreatedAt.Equal(found.CreatedAt))

	_, err = s.store.FindByID(ctx, domain.NewDonationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrderAndFilter() {
	ctx := context.Background()
	older := s.newDonation(s.base)
	newer := s.newDonation(s.base.Add(time.Minute))
	tie := s.newDonation(s.base.Add(time.Minute))
	for _, d := range []*models.Donation{older, newer, tie} {
		s.Require().NoError(s.store.Create(ctx, d))
	}

	all, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(tie.ID, all[0].ID)
	s.Equal(newer.ID, all[1].ID)
	s.Equal(older.ID, all[2].ID)

	_, err = s.store.UpdateStatus(ctx, older.ID, models.StatusPicked,
		models.Claimant{ID: domain.NewUserID(), Name: "Bank"}, s.base.Add(time.Hour))
	s.Require().NoError(err)

	picked, err := s.store.List(ctx, models.StatusPicked)
	s.Require().NoError(err)
	s.Require().Len(picked, 1)
	s.Equal(older.ID, picked[0].ID)
	s.Equal("Bank", picked[0].Claimant.Name)
}

func (s *PostgresStoreSuite) TestConcurrentClaimsExactlyOneWins() {
	ctx := context.Background()
	d := s.newDonation(s.base)
	s.Require().NoError(s.store.Create(ctx, d))

	const goroutines = 20
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
		winner    atomic.Value
	)
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			claimant := models.Claimant{ID: domain.NewUserID(), Name: "NGO"}
			_, err := s.store.UpdateStatus(ctx, d.ID, models.StatusPicked, claimant, s.base.Add(time.Duration(i)*time.Second))
			switch {
			case err == nil:
				successes.Add(1)
				winner.Store(claimant.ID)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())

	stored, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPicked, stored.Status)
	s.Equal(winner.Load(), stored.Claimant.ID)
}
