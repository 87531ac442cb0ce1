package shopapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is matched by an HTTPError carrying a 404 status.
var ErrNotFound = errors.New("not found")

// HTTPError is a non-2xx answer of the remote API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == fiber.StatusNotFound
}

// TransportError means the remote API could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError is returned by Login and Register when credentials are rejected.
// Message is the server's text, shown to the user verbatim.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return e.Message
}

// messageFromBody extracts the error text of a failed response. JSON bodies
// with a message or error field yield that field, other bodies are used as is.
func messageFromBody(body []byte, fallback string) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fallback
	}
	if strings.HasPrefix(text, "{") {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil {
			for _, key := range []string{"message", "error"} {
				if s, ok := payload[key].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return text
}

func decodeError(op string, err error) error {
	return fmt.Errorf("failed to decode %s response: %w", op, err)
}
