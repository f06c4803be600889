package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Messages shown to the user for failures that carry no server text.
const (
	NetworkErrorMessage = "Network error. Please try again."
	FallbackMessage     = "Request failed"
)

var (
	// ErrUnauthenticated marks a 401 from the backend. Callers treat it as
	// "session is gone" and redirect to the login page.
	ErrUnauthenticated = errors.New("api: unauthenticated")
	// ErrNotFound marks a 404 from the backend.
	ErrNotFound = errors.New("api: not found")
)

// NetworkError is a request that produced no HTTP response at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UserMessage is the text shown in the panel that issued the request.
func (e *NetworkError) UserMessage() string { return NetworkErrorMessage }

// APIError is a non-success HTTP response from the backend.
type APIError struct {
	Op      string
	Status  int
	Message string
	// Fields holds per-field messages when the backend returns a
	// {"field": ["msg", ...]} validation body.
	Fields map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *APIError) UserMessage() string {
	if e.Message == "" {
		return FallbackMessage
	}
	return e.Message
}

// Is lets errors.Is(err, ErrUnauthenticated) and errors.Is(err, ErrNotFound)
// match on the status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == 401
	case ErrNotFound:
		return e.Status == 404
	}
	return false
}

// UserMessage extracts the message to render for any error returned by this
// package, falling back to fallback for everything else.
func UserMessage(err error, fallback string) string {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.UserMessage()
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// parseErrorBody pulls a human message out of an error response body. It
// understands {"error": ...}, {"message": ...}, {"detail": ...} and DRF-style
// field maps.
func parseErrorBody(body []byte) (string, map[string]string) {
	if len(body) == 0 {
		return "", nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	for _, key := range []string{"error", "message", "detail"} {
		if v, ok := raw[key]; ok {
			if msg := flatten(v); msg != "" {
				return msg, nil
			}
		}
	}

	fields := make(map[string]string)
	for key, v := range raw {
		if msg := flatten(v); msg != "" {
			fields[key] = msg
		}
	}
	if len(fields) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	first := keys[0]
	if first == "non_field_errors" {
		return fields[first], fields
	}
	return fmt.Sprintf("%s: %s", first, fields[first]), fields
}

func flatten(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []string
	if err := json.Unmarshal(v, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, " "))
	}
	return ""
}
