// Package e2e drives a running foodbridge server through godog scenarios.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// TestContext holds HTTP state shared by the step packages within one
// scenario.
type TestContext struct {
	baseURL string
	client  *http.Client
	nonce   string
	// clientIP is sent as X-Forwarded-For so each scenario gets its own
	// rate limit budget. The server only honours it from a trusted proxy,
	// so run it with TRUSTED_PROXIES=127.0.0.1,::1.
	clientIP string

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header

	tokens     map[string]string
	emails     map[string]string
	donationID string
}

func NewTestContext(baseURL string) *TestContext {
	tc := &TestContext{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	tc.Reset()
	return tc
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.nonce = fmt.Sprintf("%d%04d", time.Now().UnixNano(), rand.IntN(10000))
	tc.clientIP = fmt.Sprintf("10.%d.%d.%d", rand.IntN(256), rand.IntN(256), 1+rand.IntN(254))
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastHeaders = nil
	tc.tokens = make(map[string]string)
	tc.emails = make(map[string]string)
	tc.donationID = ""
}

func (tc *TestContext) POST(path string, body interface{}, headers map[string]string) error {
	return tc.do(http.MethodPost, path, body, headers)
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) PATCH(path string, body interface{}, headers map[string]string) error {
	return tc.do(http.MethodPatch, path, body, headers)
}

func (tc *TestContext) do(method, path string, body interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Forwarded-For", tc.clientIP)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return nil
}

// GetResponseField reads a top-level field of the last JSON object response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(tc.lastBody, &obj); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w (body: %s)", err, tc.lastBody)
	}
	v, ok := obj[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }
func (tc *TestContext) GetLastResponseHeader(k string) string {
	if tc.lastHeaders == nil {
		return ""
	}
	return tc.lastHeaders.Get(k)
}

// UniqueEmail maps a scenario email to one that is unique per run so
// scenarios can be replayed against a persistent backend.
func (tc *TestContext) UniqueEmail(email string) string {
	if unique, ok := tc.emails[email]; ok {
		return unique
	}
	local, domain, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	unique := local + "+" + tc.nonce + "@" + domain
	tc.emails[email] = unique
	return unique
}

func (tc *TestContext) SetToken(alias, token string) { tc.tokens[alias] = token }

func (tc *TestContext) GetToken(alias string) (string, error) {
	token, ok := tc.tokens[alias]
	if !ok {
		return "", fmt.Errorf("no token for %q", alias)
	}
	return token, nil
}

func (tc *TestContext) SetDonationID(id string) { tc.donationID = id }
func (tc *TestContext) GetDonationID() string { return tc.donationID }

// Claim issues a pick request without touching the recorded last response,
// so it is safe to call from several goroutines.
func (tc *TestContext) Claim(id, token string) (int, error) {
	req, err := http.NewRequest(http.MethodPatch, tc.baseURL+"/api/donations/"+id+"/pick", nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Forwarded-For", tc.clientIP)

	resp, err := tc.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("claim %s: %w", id, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
