package domain

import (
	"github.com/google/uuid"

	dErrors "foodbridge/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so a donation id can never be passed
// where a user id is expected.
type (
	UserID     uuid.UUID
	DonationID uuid.UUID
)

// NewUserID returns a fresh random user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewDonationID returns a fresh random donation identifier.
func NewDonationID() DonationID { return DonationID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id DonationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DonationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseUserID parses external input into a UserID.
//
// Errors: CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseDonationID parses external input into a DonationID.
//
// Errors: CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseDonationID(s string) (DonationID, error) {
	u, err := parseUUID(s, "donation ID")
	if err != nil {
		return DonationID{}, err
	}
	return DonationID(u), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
