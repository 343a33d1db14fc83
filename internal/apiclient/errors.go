package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindTransport means no response was received (network, timeout).
	KindTransport Kind = iota + 1
	// KindUnauthorized is a 401. It clears the session globally.
	KindUnauthorized
	// KindForbidden is a 403. It is surfaced without touching the session.
	KindForbidden
	// KindValidation is any other 4xx; Message carries the server detail.
	KindValidation
	// KindServer is a 5xx.
	KindServer
	// KindDecode is a 2xx whose body could not be parsed.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the flat error returned by every API call.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Method     string
	Path       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (%d): %s", e.Method, e.Path, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err (or any error in its chain) is an *Error of
// the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return IsKind(err, KindUnauthorized)
}

// Message returns the user-facing text for err: the server detail for
// validation and auth failures, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return fallback
	}

	switch apiErr.Kind {
	case KindValidation, KindUnauthorized, KindForbidden:
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallback
}

// detailResponse is the FastAPI error body. Detail is either a string or
// a list of validation entries.
type detailResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

type validationEntry struct {
	Msg string `json:"msg"`
	Loc []any  `json:"loc"`
}

// serverDetail extracts the human-readable detail from an error body.
func serverDetail(body []byte) string {
	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}

	if len(resp.Detail) > 0 {
		var text string
		if json.Unmarshal(resp.Detail, &text) == nil {
			return text
		}

		var entries []validationEntry
		if json.Unmarshal(resp.Detail, &entries) == nil {
			msgs := make([]string, 0, len(entries))
			for _, e := range entries {
				if e.Msg != "" {
					msgs = append(msgs, e.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	return resp.Message
}

// newStatusError maps a non-2xx response to an *Error.
func newStatusError(method, path string, status int, body []byte) *Error {
	e := &Error{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    serverDetail(body),
	}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
		if e.Message == "" {
			e.Message = "authentication required"
		}
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
		if e.Message == "" {
			e.Message = "access denied"
		}
	case status >= 500:
		e.Kind = KindServer
		e.Message = "server error, please try again later"
	default:
		e.Kind = KindValidation
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
	}

	return e
}
