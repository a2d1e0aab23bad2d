package datasource

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed matches every FetchError via errors.Is.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInvalidID is returned before any I/O when a question id is not positive.
	ErrInvalidID = errors.New("question id must be a positive integer")
)

// Kind classifies why a backend call failed.
type Kind string

const (
	NetworkFailure Kind = "network_failure"
	HTTPFailure    Kind = "http_failure"
	APIFailure     Kind = "api_error"
	ParseFailure   Kind = "parse_failure"
)

// FetchError is the single failure type surfaced by Client.
type FetchError struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case HTTPFailure:
		if e.Message != "" {
			return fmt.Sprintf("%s: http status %d: %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("%s: http status %d", e.Op, e.Status)
	case APIFailure:
		return fmt.Sprintf("%s: api error: %s", e.Op, e.Message)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// KindOf reports the failure kind of err, or "" if err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
