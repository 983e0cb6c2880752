package apiclient

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies a dispatch failure.
type Kind string

const (
	// KindTransport is a network failure before any response arrived.
	KindTransport Kind = "transport"
	// KindUnauthorized is a 401; the session has already been expired.
	KindUnauthorized Kind = "unauthorized"
	// KindValidation is any other 4xx.
	KindValidation Kind = "validation"
	// KindServer is a 5xx or an unreadable success response.
	KindServer Kind = "server"
)

// DefaultErrorMessage is used when a failed response carries no message.
const DefaultErrorMessage = "An error occurred"

// Error is the single error value callers see for a failed request.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a dispatch error, or "" for other errors.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsUnauthorized reports whether err is a 401 dispatch error.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func responseError(status int, body []byte) *Error {
	kind := KindServer
	if status < http.StatusInternalServerError {
		kind = KindValidation
	}
	return &Error{Kind: kind, Status: status, Message: messageFrom(body)}
}

// messageFrom reads "error", then "message", from a JSON error body.
func messageFrom(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, field := range []string{"error", "message"} {
			value := gjson.GetBytes(body, field)
			if value.Type == gjson.String && strings.TrimSpace(value.String()) != "" {
				return value.String()
			}
		}
	}
	return DefaultErrorMessage
}
