package models

import "time"

// DonationResponse is the wire shape of a donation. The claimant keeps the
// ngoId/ngoName names and is null while the donation is open.
type DonationResponse struct {
	ID             string     `json:"id"`
	DonorID        string     `json:"donorId"`
	DonorName      string     `json:"donorName"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	FoodDetails    string     `json:"foodDetails"`
	Quantity       string     `json:"quantity"`
	BestBeforeTime string     `json:"bestBeforeTime"`
	Status         string     `json:"status"`
	NGOID          *string    `json:"ngoId"`
	NGOName        *string    `json:"ngoName"`
	CreatedAt      time.Time  `json:"createdAt"`
	PickedAt       *time.Time `json:"pickedAt"`
}

func ToResponse(d *Donation) DonationResponse {
	resp := DonationResponse{
		ID:             d.ID.String(),
		DonorID:        d.DonorID.String(),
		DonorName:      d.DonorName,
		Phone:          d.Phone,
		Address:        d.Address,
		FoodDetails:    d.FoodDetails,
		Quantity:       d.Quantity,
		BestBeforeTime: d.BestBeforeTime,
		Status:         d.Status.String(),
		CreatedAt:      d.CreatedAt,
		PickedAt:       d.PickedAt,
	}
	if d.Claimant != nil {
		id := d.Claimant.ID.String()
		name := d.Claimant.Name
		resp.NGOID = &id
		resp.NGOName = &name
	}
	return resp
}

func ToResponses(ds []*Donation) []DonationResponse {
	out := make([]DonationResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToResponse(d))
	}
	return out
}
