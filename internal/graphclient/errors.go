package graphclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies why a call failed.
type Kind int

const (
	// KindTransport means the exchange could not be completed: the request
	// never got an answer or the answer could not be read.
	KindTransport Kind = iota + 1
	// KindRequest means the request could not be built, usually because the
	// body is not JSON-serializable.
	KindRequest
	// KindServer is a non-success status whose JSON body carried an "error"
	// message.
	KindServer
	// KindServerUnstructured is a non-success status with any other body.
	KindServerUnstructured
	// KindDecode is a success status whose body is neither empty nor JSON.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRequest:
		return "request"
	case KindServer:
		return "server"
	case KindServerUnstructured:
		return "server_unstructured"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by every Client operation. Its
// message is meant to be shown to a user as is.
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Message    string
	// Body is the raw response body for server failures.
	Body string
	Err  error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// classifyFailure turns a non-success response into an *Error. A JSON object
// with a usable "error" field yields that message; everything else yields a
// message embedding the status and the raw body.
func classifyFailure(status int, body []byte) *Error {
	if msg, ok := serverMessage(body); ok {
		return &Error{
			Kind:       KindServer,
			StatusCode: status,
			Message:    msg,
			Body:       string(body),
		}
	}
	return &Error{
		Kind:       KindServerUnstructured,
		StatusCode: status,
		Message:    fmt.Sprintf("HTTP error! status: %d, message: %s", status, body),
		Body:       string(body),
	}
}

// serverMessage extracts the "error" field of a JSON object body. Non-string
// values are reported as their JSON text; null and "" count as absent.
func serverMessage(body []byte) (string, bool) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return "", false
	}
	raw, ok := payload["error"]
	if !ok || string(raw) == "null" {
		return "", false
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg, msg != ""
	}
	return string(raw), true
}
