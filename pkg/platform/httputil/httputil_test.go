package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "foodbridge/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if strings.Contains(body["message"], "db failed") {
			t.Fatalf("expected internal detail to be hidden, got %q", body["message"])
		}
	})

	t.Run("uncoded errors are treated as internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("pq: connection refused"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		if strings.Contains(w.Body.String(), "pq:") {
			t.Fatalf("expected driver error to be hidden, got %s", w.Body.String())
		}
	})

	t.Run("conflict includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeAlreadyClaimed, "Already picked"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "already_claimed" {
			t.Fatalf("expected error code already_claimed, got %q", body["error"])
		}
		if body["message"] != "Already picked" {
			t.Fatalf("expected message to be returned for conflict")
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Phone string `json:"phone"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"phone":"123"}`))
	if err := DecodeJSON(req, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Phone != "123" {
		t.Fatalf("expected phone 123, got %q", out.Phone)
	}

	req = httptest.NewRequest(http.MethodPatch, "/", nil)
	if err := DecodeJSON(req, &out); err != nil {
		t.Fatalf("empty body should decode cleanly, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{bad-json"))
	err := DecodeJSON(req, &out)
	if !dErrors.HasCode(err, dErrors.CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}
