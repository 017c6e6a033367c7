package domain

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Detail is attached by wrapping.
var (
	// ErrEmptyURL is returned when no source URL was supplied.
	ErrEmptyURL = errors.New("no source URL provided")
	// ErrExtractionFailed is returned when the extraction tool could not fetch or convert the source.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrOutputNotFound is returned when no output file could be located after a successful extraction.
	ErrOutputNotFound = errors.New("output file not found")
	// ErrUnexpected covers every other failure inside a request.
	ErrUnexpected = errors.New("unexpected failure")
)

// Error kinds as stored in request history.
const (
	KindInput            = "input_error"
	KindExtractionFailed = "extraction_failed"
	KindOutputNotFound   = "output_not_found"
	KindUnexpected       = "unexpected_failure"
)

// KindOf returns the taxonomy kind of err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyURL):
		return KindInput
	case errors.Is(err, ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrOutputNotFound):
		return KindOutputNotFound
	default:
		return KindUnexpected
	}
}

// IsClassified reports whether err already belongs to the taxonomy.
func IsClassified(err error) bool {
	return errors.Is(err, ErrEmptyURL) ||
		errors.Is(err, ErrExtractionFailed) ||
		errors.Is(err, ErrOutputNotFound) ||
		errors.Is(err, ErrUnexpected)
}

func wrapDetail(kind error, detail string) error {
	if detail == "" {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, detail)
}
