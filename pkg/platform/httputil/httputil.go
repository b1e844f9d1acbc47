// Package httputil holds the JSON response helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "foodbridge/pkg/domain-errors"
)

// maxBodyBytes caps request bodies; every payload in this API is a small form.
const maxBodyBytes = 1 << 20

// ErrorResponse is the envelope for every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError translates err into a status and error envelope. Internal errors
// never expose their description; callers log the cause before writing.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)

	resp := ErrorResponse{Error: string(code)}
	if status == http.StatusInternalServerError {
		resp.Message = "Server error"
	} else {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Message = de.Message
		}
	}
	WriteJSON(w, status, resp)
}

// DecodeJSON reads a JSON body into out. An empty body decodes to the zero
// value so routes like PATCH /pick accept both "{}" and nothing.
func DecodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInvalidRequest, "invalid request body")
	}
	return nil
}
