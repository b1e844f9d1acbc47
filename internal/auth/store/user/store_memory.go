package user

import (
	"context"
	"fmt"
	"sync"

	"foodbridge/internal/auth/models"
	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryUserStore keeps identities in process memory.
// Suitable for development and tests; data is lost on restart.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[domain.UserID]*models.User
	byEmail map[string]domain.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[domain.UserID]*models.User),
		byEmail: make(map[string]domain.UserID),
	}
}

// CreateIfEmailAvailable stores user unless the email is already registered
// under any role, in which case it returns sentinel.ErrAlreadyUsed.
func (s *InMemoryUserStore) CreateIfEmailAvailable(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("email registered: %w", sentinel.ErrAlreadyUsed)
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	return nil
}

// FindByID returns the user or sentinel.ErrNotFound.
func (s *InMemoryUserStore) FindByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		found := *u
		return &found, nil
	}
	return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
}

// FindByEmail returns the user registered with email, whatever the role.
func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[email]; ok {
		found := *s.users[id]
		return &found, nil
	}
	return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
}

// FindByEmailAndRole returns the user only when both email and role match.
func (s *InMemoryUserStore) FindByEmailAndRole(ctx context.Context, email string, role domain.Role) (*models.User, error) {
	u, err := s.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
	}
	return u, nil
}
