package models

import (
	"fmt"
	"time"

	"foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// Donation is a posted batch of surplus food.
//
// Invariants:
//   - Status moves open -> picked exactly once and never back
//   - Claimant and PickedAt are nil while open and set together on pick
//   - Donor fields, contact details and CreatedAt never change
type Donation struct {
	ID             domain.DonationID
	DonorID        domain.UserID
	DonorName      string
	Phone          string
	Address        string
	FoodDetails    string
	Quantity       string
	BestBeforeTime string
	Status         Status
	Claimant       *Claimant
	CreatedAt      time.Time
	PickedAt       *time.Time
}

// Claimant is the NGO that picked a donation.
type Claimant struct {
	ID   domain.UserID
	Name string
}

// IsOpen reports whether the donation can still be claimed.
func (d *Donation) IsOpen() bool {
	return d.Status == StatusOpen
}

// Pick applies the open -> picked transition. A donation that is not open is
// left untouched and sentinel.ErrAlreadyUsed is returned.
func (d *Donation) Pick(claimant Claimant, at time.Time) error {
	if !d.IsOpen() {
		return fmt.Errorf("donation %s is %s: %w", d.ID, d.Status, sentinel.ErrAlreadyUsed)
	}
	d.Status = StatusPicked
	d.Claimant = &claimant
	pickedAt := at
	d.PickedAt = &pickedAt
	return nil
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (d *Donation) Clone() *Donation {
	c := *d
	if d.Claimant != nil {
		claimant := *d.Claimant
		c.Claimant = &claimant
	}
	if d.PickedAt != nil {
		pickedAt := *d.PickedAt
		c.PickedAt = &pickedAt
	}
	return &c
}
