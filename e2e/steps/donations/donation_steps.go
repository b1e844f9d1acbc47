package donations

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}, headers map[string]string) error
	GET(path string, headers map[string]string) error
	PATCH(path string, body interface{}, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetToken(alias string) (string, error)
	SetDonationID(id string)
	GetDonationID() string
	Claim(id, token string) (int, error)
}

// RegisterSteps registers donation lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &donationSteps{tc: tc}

	// Posting
	ctx.Step(`^"([^"]*)" posts a donation of "([^"]*)" at "([^"]*)" with phone "([^"]*)"$`, steps.postDonation)
	ctx.Step(`^"([^"]*)" posts a donation without food details$`, steps.postIncompleteDonation)

	// Browsing
	ctx.Step(`^"([^"]*)" lists donations$`, steps.listAll)
	ctx.Step(`^"([^"]*)" lists (open|picked) donations$`, steps.listByStatus)
	ctx.Step(`^"([^"]*)" views the donation$`, steps.viewDonation)
	ctx.Step(`^the list should include the donation$`, steps.listIncludesDonation)
	ctx.Step(`^the list should not include the donation$`, steps.listExcludesDonation)

	// Claiming
	ctx.Step(`^"([^"]*)" claims the donation$`, steps.claimDonation)
	ctx.Step(`^"([^"]*)" and "([^"]*)" claim the donation at the same time$`, steps.claimConcurrently)
	ctx.Step(`^exactly one claim should succeed$`, steps.exactlyOneClaimSucceeded)
}

type donationSteps struct {
	tc TestContext

	raceStatuses []int
}

func (s *donationSteps) postDonation(ctx context.Context, alias, food, address, phone string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"phone":          phone,
		"address":        address,
		"foodDetails":    food,
		"quantity":       "10 portions",
		"bestBeforeTime": "tonight",
	}
	if err := s.tc.POST("/api/donations", body, headers); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetDonationID(fmt.Sprint(id))
	return nil
}

func (s *donationSteps) postIncompleteDonation(ctx context.Context, alias string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"phone":   "555-0100",
		"address": "1 Market St",
	}
	return s.tc.POST("/api/donations", body, headers)
}

func (s *donationSteps) listAll(ctx context.Context, alias string) error {
	return s.list(alias, "/api/donations")
}

func (s *donationSteps) listByStatus(ctx context.Context, alias, status string) error {
	return s.list(alias, "/api/donations?status="+status)
}

func (s *donationSteps) list(alias, path string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	return s.tc.GET(path, headers)
}

func (s *donationSteps) viewDonation(ctx context.Context, alias string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	return s.tc.GET("/api/donations/"+s.tc.GetDonationID(), headers)
}

func (s *donationSteps) listIncludesDonation(ctx context.Context) error {
	found, err := s.listContains(s.tc.GetDonationID())
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("donation %s not in list", s.tc.GetDonationID())
	}
	return nil
}

func (s *donationSteps) listExcludesDonation(ctx context.Context) error {
	found, err := s.listContains(s.tc.GetDonationID())
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("donation %s unexpectedly in list", s.tc.GetDonationID())
	}
	return nil
}

func (s *donationSteps) listContains(id string) (bool, error) {
	var items []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &items); err != nil {
		return false, fmt.Errorf("response is not a donation list: %w", err)
	}
	for _, item := range items {
		if item.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *donationSteps) claimDonation(ctx context.Context, alias string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	return s.tc.PATCH("/api/donations/"+s.tc.GetDonationID()+"/pick", nil, headers)
}

// claimConcurrently keeps only the statuses; the last response is left
// untouched.
func (s *donationSteps) claimConcurrently(ctx context.Context, first, second string) error {
	aliases := []string{first, second}
	tokens := make([]string, len(aliases))
	for i, alias := range aliases {
		token, err := s.tc.GetToken(alias)
		if err != nil {
			return err
		}
		tokens[i] = token
	}

	s.raceStatuses = make([]int, len(tokens))
	errs := make([]error, len(tokens))
	var wg sync.WaitGroup
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			s.raceStatuses[i], errs[i] = s.tc.Claim(s.tc.GetDonationID(), token)
		}(i, token)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *donationSteps) exactlyOneClaimSucceeded(ctx context.Context) error {
	ok, conflicts := 0, 0
	for _, status := range s.raceStatuses {
		switch status {
		case 200:
			ok++
		case 400:
			conflicts++
		default:
			return fmt.Errorf("unexpected claim status %d", status)
		}
	}
	if ok != 1 || conflicts != len(s.raceStatuses)-1 {
		return fmt.Errorf("expected one winner, got %d successes and %d conflicts", ok, conflicts)
	}
	return nil
}

func (s *donationSteps) bearer(alias string) (map[string]string, error) {
	token, err := s.tc.GetToken(alias)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}
