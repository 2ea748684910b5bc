package bitbucket

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed client call. Callers branch on the kind
// instead of string-matching messages or catching transport errors.
type ErrorKind string

const (
	// ErrorKindAuthentication covers HTTP 401 and 403. Never retried.
	ErrorKindAuthentication ErrorKind = "authentication"

	// ErrorKindNotFound covers HTTP 404. Never retried.
	ErrorKindNotFound ErrorKind = "not_found"

	// ErrorKindConflict covers HTTP 409, most importantly a stale version
	// token on a guarded write. Never retried automatically.
	ErrorKindConflict ErrorKind = "conflict"

	// ErrorKindInvalidRequest covers remaining 4xx statuses (400, 422, ...).
	ErrorKindInvalidRequest ErrorKind = "invalid_request"

	// ErrorKindTransient means a retryable status (429/5xx) persisted after
	// the retry budget was exhausted.
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindNetwork means a transport-level failure persisted after the
	// retry budget was exhausted.
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindTimeout means the caller's deadline expired. Propagated
	// immediately, regardless of remaining retry budget.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindUnsupported means the logical operation has no equivalent on
	// the active platform variant. Detected before any request is made.
	ErrorKindUnsupported ErrorKind = "unsupported_operation"
)

// Error is the classified error every client call returns on failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Resource   string
	Message    string
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.StatusCode > 0 {
		return fmt.Sprintf("bitbucket: %s (%d): %s", e.Kind, e.StatusCode, msg)
	}

	return fmt.Sprintf("bitbucket: %s: %s", e.Kind, msg)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind ErrorKind, status int, resource, message string) *Error {
	return &Error{Kind: kind, StatusCode: status, Resource: resource, Message: message}
}

// KindOf returns the classification of err, or "" if err is not a client
// error.
func KindOf(err error) ErrorKind {
	bbErr := &Error{}
	if errors.As(err, &bbErr) {
		return bbErr.Kind
	}

	return ""
}

func isKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsAuthentication checks whether err is a 401/403 classification.
func IsAuthentication(err error) bool { return isKind(err, ErrorKindAuthentication) }

// IsNotFound checks whether err is a 404 classification.
func IsNotFound(err error) bool { return isKind(err, ErrorKindNotFound) }

// IsConflict checks whether err is a version-conflict classification.
func IsConflict(err error) bool { return isKind(err, ErrorKindConflict) }

// IsTransient checks whether err is an exhausted-retries server error.
func IsTransient(err error) bool { return isKind(err, ErrorKindTransient) }

// IsNetwork checks whether err is an exhausted-retries transport error.
func IsNetwork(err error) bool { return isKind(err, ErrorKindNetwork) }

// IsTimeout checks whether err is a deadline-exceeded classification.
func IsTimeout(err error) bool { return isKind(err, ErrorKindTimeout) }

// IsUnsupported checks whether err marks an operation the active platform
// variant does not offer.
func IsUnsupported(err error) bool { return isKind(err, ErrorKindUnsupported) }

// cloudErrorBody is the Cloud error envelope:
//
//	{"type": "error", "error": {"message": "..."}}
type cloudErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// dcErrorBody is the Data Center error envelope:
//
//	{"errors": [{"message": "...", "exceptionName": "..."}]}
type dcErrorBody struct {
	Errors []struct {
		Message       string `json:"message"`
		ExceptionName string `json:"exceptionName"`
	} `json:"errors"`
}

// ExtractAPIMessage pulls a human-readable message out of an error response
// body, accepting either dialect's envelope. Returns "" when the body carries
// no recognizable message.
func ExtractAPIMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var cloud cloudErrorBody
	if err := json.Unmarshal(body, &cloud); err == nil && cloud.Error.Message != "" {
		return cloud.Error.Message
	}

	var dc dcErrorBody
	if err := json.Unmarshal(body, &dc); err == nil && len(dc.Errors) > 0 && dc.Errors[0].Message != "" {
		return dc.Errors[0].Message
	}

	return ""
}
