package auth

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}, headers map[string]string) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	UniqueEmail(email string) string
	SetToken(alias, token string)
	GetToken(alias string) (string, error)
}

// RegisterSteps registers authentication-related step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc, subjects: make(map[string]string)}

	// Account steps
	ctx.Step(`^"([^"]*)" is a registered (donor|ngo)$`, steps.registeredAs)
	ctx.Step(`^I register "([^"]*)" with email "([^"]*)", password "([^"]*)" and role "([^"]*)"$`, steps.register)
	ctx.Step(`^I log in as "([^"]*)" with email "([^"]*)", password "([^"]*)" and role "([^"]*)"$`, steps.login)

	// Session steps
	ctx.Step(`^"([^"]*)" requests their profile$`, steps.requestProfile)
	ctx.Step(`^"([^"]*)" logs out$`, steps.logout)
	ctx.Step(`^the login should resolve to the registered account of "([^"]*)"$`, steps.loginMatchesRegistration)
}

type authSteps struct {
	tc TestContext
	// user ids keyed by alias, captured at registration
	subjects map[string]string
}

func (s *authSteps) registeredAs(ctx context.Context, alias, role string) error {
	email := alias + "@foodbridge.test"
	if err := s.register(ctx, alias, email, "s3cret-pass", role); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("registering %s failed with status %d", alias, status)
	}
	return nil
}

func (s *authSteps) register(ctx context.Context, alias, email, password, role string) error {
	body := map[string]interface{}{
		"name":     alias,
		"email":    s.tc.UniqueEmail(email),
		"password": password,
		"role":     role,
	}
	if err := s.tc.POST("/api/auth/register", body, nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	return s.captureSession(alias)
}

func (s *authSteps) login(ctx context.Context, alias, email, password, role string) error {
	body := map[string]interface{}{
		"email":    s.tc.UniqueEmail(email),
		"password": password,
		"role":     role,
	}
	if err := s.tc.POST("/api/auth/login", body, nil); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return nil
	}
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(alias, fmt.Sprint(token))
	return nil
}

func (s *authSteps) captureSession(alias string) error {
	token, err := s.tc.GetResponseField("token")
	if err != nil {
		return err
	}
	s.tc.SetToken(alias, fmt.Sprint(token))

	user, err := s.tc.GetResponseField("user")
	if err != nil {
		return err
	}
	if m, ok := user.(map[string]interface{}); ok {
		s.subjects[alias] = fmt.Sprint(m["id"])
	}
	return nil
}

func (s *authSteps) requestProfile(ctx context.Context, alias string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	return s.tc.GET("/api/auth/me", headers)
}

func (s *authSteps) logout(ctx context.Context, alias string) error {
	headers, err := s.bearer(alias)
	if err != nil {
		return err
	}
	return s.tc.POST("/api/auth/logout", nil, headers)
}

func (s *authSteps) loginMatchesRegistration(ctx context.Context, alias string) error {
	user, err := s.tc.GetResponseField("user")
	if err != nil {
		return err
	}
	m, ok := user.(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected user payload %v", user)
	}
	if got, want := fmt.Sprint(m["id"]), s.subjects[alias]; got != want {
		return fmt.Errorf("expected user id %s, got %s", want, got)
	}
	return nil
}

func (s *authSteps) bearer(alias string) (map[string]string, error) {
	token, err := s.tc.GetToken(alias)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}
