package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingAPIKey   = errors.New("llm: API key is not configured")
	ErrEmptyCompletion = errors.New("llm: backend returned an empty completion")
)

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	if e.Code != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

// Temporary reports whether retrying the request may succeed.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code,omitempty"`
	} `json:"error"`
}

func parseHTTPError(status int, raw []byte) *HTTPError {
	herr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		herr.Message = strings.TrimSpace(env.Error.Message)
		herr.Type = strings.TrimSpace(env.Error.Type)
		if env.Error.Code != nil {
			herr.Code = strings.TrimSpace(fmt.Sprint(env.Error.Code))
		}
	}
	return herr
}
