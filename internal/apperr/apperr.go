package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation           Kind = "validation"
	Auth                 Kind = "auth"
	NotFound             Kind = "not_found"
	Conflict             Kind = "conflict"
	UnsupportedMediaType Kind = "unsupported_media_type"
	MalformedInput       Kind = "malformed_input"
	UpstreamUnavailable  Kind = "upstream_unavailable"
	ResponseFormat       Kind = "response_format"
	Internal             Kind = "internal"
)

// Error is the single error type crossing package boundaries. Message is safe to
// show to API clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.New(apperr.NotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the text exposed to clients.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps error kinds to response codes. Extraction-time kinds only reach
// HTTP through a synchronous reprocess, which reports them as server failures.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Auth:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case UpstreamUnavailable, ResponseFormat:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func Retryable(err error) bool {
	k := KindOf(err)
	return k == UpstreamUnavailable || k == Conflict
}
