package ratelimit

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	UniqueEmail(email string) string
}

// RegisterSteps registers rate-limiting step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}

	ctx.Step(`^I fail login (\d+) times$`, steps.failLoginNTimes)
	ctx.Step(`^the (\d+)(?:st|nd|rd|th) attempt should return (\d+)$`, steps.nthAttemptShouldReturn)
	ctx.Step(`^every attempt before it should return (\d+)$`, steps.earlierAttemptsShouldReturn)
}

type ratelimitSteps struct {
	tc TestContext
	// State for tracking across steps
	statuses []int
	checked  int
}

func (s *ratelimitSteps) failLoginNTimes(ctx context.Context, n int) error {
	s.statuses = s.statuses[:0]
	body := map[string]interface{}{
		"email":    s.tc.UniqueEmail("nobody@foodbridge.test"),
		"password": "wrong-password",
		"role":     "donor",
	}
	for i := 0; i < n; i++ {
		if err := s.tc.POST("/api/auth/login", body, nil); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) nthAttemptShouldReturn(ctx context.Context, n, expected int) error {
	if n < 1 || n > len(s.statuses) {
		return fmt.Errorf("attempt %d not recorded (%d attempts made)", n, len(s.statuses))
	}
	s.checked = n
	if got := s.statuses[n-1]; got != expected {
		return fmt.Errorf("attempt %d: expected status %d, got %d", n, expected, got)
	}
	return nil
}

func (s *ratelimitSteps) earlierAttemptsShouldReturn(ctx context.Context, expected int) error {
	for i := 0; i < s.checked-1; i++ {
		if s.statuses[i] != expected {
			return fmt.Errorf("attempt %d: expected status %d, got %d", i+1, expected, s.statuses[i])
		}
	}
	return nil
}
