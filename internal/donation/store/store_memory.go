// Package store persists donations. Both backends list newest first and
// serialize claims so at most one NGO ever picks a donation.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"foodbridge/internal/donation/models"
	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// InMemoryStore keeps donations in process memory. Data is lost on restart.
type InMemoryStore struct {
	mu        sync.RWMutex
	donations map[domain.DonationID]*models.Donation
	order     []domain.DonationID
}

// NewInMemory constructs an empty in-memory donation store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{donations: make(map[domain.DonationID]*models.Donation)}
}

// Create stores a copy of d.
func (s *InMemoryStore) Create(_ context.Context, d *models.Donation) error {
	if d == nil {
		return fmt.Errorf("donation is required: %w", sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.donations[d.ID]; exists {
		return fmt.Errorf("donation %s: %w", d.ID, sentinel.ErrAlreadyUsed)
	}
	s.donations[d.ID] = d.Clone()
	s.order = append(s.order, d.ID)
	return nil
}

// List returns donations newest first, optionally filtered by status.
// Equal timestamps keep reverse insertion order.
func (s *InMemoryStore) List(_ context.Context, status models.Status) ([]*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Donation, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		d := s.donations[s.order[i]]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// FindByID returns the donation or sentinel.ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, id domain.DonationID) (*models.Donation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, fmt.Errorf("donation: %w", sentinel.ErrNotFound)
	}
	return d.Clone(), nil
}

// UpdateStatus applies a status transition atomically. Only the open ->
// picked transition exists; a donation that is no longer open yields
// sentinel.ErrAlreadyUsed and keeps its first claimant.
func (s *InMemoryStore) UpdateStatus(_ context.Context, id domain.DonationID, status models.Status, claimant models.Claimant, at time.Time) (*models.Donation, error) {
	if status != models.StatusPicked {
		return nil, fmt.Errorf("transition to %q: %w", status, sentinel.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, fmt.Errorf("donation: %w", sentinel.ErrNotFound)
	}
	if err := d.Pick(claimant, at); err != nil {
		return nil, err
	}
	return d.Clone(), nil
}
