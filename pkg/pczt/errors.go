package pczt

import "errors"

var (
	// ErrInvalidMagic ...
	ErrInvalidMagic = errors.New("data does not start with the PCZT magic bytes")
	// ErrUnsupportedVersion ...
	ErrUnsupportedVersion = errors.New("unsupported PCZT container version")
	// ErrTruncated ...
	ErrTruncated = errors.New("container data is truncated")
	// ErrMalformed ...
	ErrMalformed = errors.New("container data is malformed")

	// ErrMissingHint is returned when a required signing hint is absent
	// from the proprietary fields.
	ErrMissingHint = errors.New("missing signing hint")
	// ErrInvalidHint is returned when a signing hint has the wrong width
	// or an out-of-range value.
	ErrInvalidHint = errors.New("malformed signing hint")
)
