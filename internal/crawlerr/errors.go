// Package crawlerr defines the closed set of failure kinds a crawl can end in.
// Every pipeline stage returns *Error so callers never need to inspect
// arbitrary error types.
package crawlerr

import (
	"errors"
	"fmt"
)

// Kind classifies a crawl failure.
type Kind int

const (
	Unknown Kind = iota
	InvalidURL
	FetchFailed
	UnsupportedContentType
	Timeout
	ExtractionFailed
)

func (k Kind) String() string {
	switch k {
	case InvalidURL:
		return "invalid_url"
	case FetchFailed:
		return "fetch_failed"
	case UnsupportedContentType:
		return "unsupported_content_type"
	case Timeout:
		return "timeout"
	case ExtractionFailed:
		return "extraction_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by the crawl pipeline.
type Error struct {
	Kind Kind
	// StatusCode is the upstream HTTP status when known (FetchFailed only).
	StatusCode int
	// RedirectLoop marks a FetchFailed caused by exceeding the redirect cap.
	RedirectLoop bool
	Msg          string
	Cause        error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports a match when target is an *Error of the same kind, so callers
// can write errors.Is(err, crawlerr.New(crawlerr.Timeout, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an error of the given kind without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// Status builds a FetchFailed error for a non-2xx upstream response.
func Status(code int) *Error {
	return &Error{Kind: FetchFailed, StatusCode: code, Msg: fmt.Sprintf("unexpected status: %d", code)}
}

// KindOf returns the kind carried by err, or Unknown for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Unknown
}

// From converts any error into *Error, keeping existing crawl errors intact
// and classifying the rest as Unknown.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return Wrap(Unknown, "unexpected error", err)
}
