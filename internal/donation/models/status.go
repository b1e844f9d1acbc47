package models

import (
	"strings"

	dErrors "foodbridge/pkg/domain-errors"
)

// Status is the donation lifecycle state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusPicked Status = "picked"
)

// IsValid reports whether s is a known state.
func (s Status) IsValid() bool {
	return s == StatusOpen || s == StatusPicked
}

func (s Status) String() string { return string(s) }

// ParseStatusFilter parses the optional ?status= query value. Empty means
// no filter; anything else must be a known state.
func ParseStatusFilter(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status must be open or picked")
	}
	return s, nil
}
