//go:build integration

package user_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"foodbridge/internal/auth/models"
	"foodbridge/internal/auth/store/user"
	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
	"foodbridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	driver   string
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
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
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func newPGUser(email string, role domain.Role) *models.User {
	return &models.User{
		ID:           domain.NewUserID(),
		Name:         "PG " + string(role),
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := newPGUser("pg@example.com", domain.RoleNGO)
	s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, found.Email)
	s.Equal(u.Role, found.Role)
	s.True(u.CreatedAt.Equal(found.CreatedAt))

	_, err = s.store.FindByEmailAndRole(ctx, u.Email, domain.RoleDonor)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentUniqueEmailViolation() {
	ctx := context.Background()
	const goroutines = 20

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			role := domain.RoleDonor
			if i%2 == 0 {
				role = domain.RoleNGO
			}
			err := s.store.CreateIfEmailAvailable(ctx, newPGUser("race@example.com", role))
			if err == nil {
				successes.Add(1)
				return
			}
			s.ErrorIs(err, sentinel.ErrAlreadyUsed)
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load())
}
