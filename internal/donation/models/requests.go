package models

import (
	"strings"

	dErrors "foodbridge/pkg/domain-errors"
)

// CreateDonationRequest is the body of POST /api/donations.
type CreateDonationRequest struct {
	DonorName      string `json:"donorName"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	FoodDetails    string `json:"foodDetails"`
	Quantity       string `json:"quantity"`
	BestBeforeTime string `json:"bestBeforeTime"`
}

func (r *CreateDonationRequest) Normalize() {
	if r == nil {
		return
	}
	r.DonorName = strings.TrimSpace(r.DonorName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.FoodDetails = strings.TrimSpace(r.FoodDetails)
	r.Quantity = strings.TrimSpace(r.Quantity)
	r.BestBeforeTime = strings.TrimSpace(r.BestBeforeTime)
}

// Validate requires phone, address and food details. The rest is optional.
func (r *CreateDonationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidRequest, "request is required")
	}
	if r.Phone == "" || r.Address == "" || r.FoodDetails == "" {
		return dErrors.New(dErrors.CodeMissingField, "Missing required fields")
	}
	return nil
}
