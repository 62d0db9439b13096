package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMalformedInput means an uploaded archive is missing a required component
	// or cannot be decoded.
	ErrMalformedInput = errors.New("malformed input")
	// ErrEmptyInput means an archive decoded cleanly but yielded no usable features.
	ErrEmptyInput = errors.New("empty input")
)
