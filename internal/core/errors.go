// Package core defines sentinel errors shared by the tool layer.
package core

import "errors"

// Sentinel errors. Wrap with %w and test with errors.Is.
var (
	// Stream framing errors
	ErrFrameTooLarge  = errors.New("yapb: frame exceeds max packet size")
	ErrFrameMalformed = errors.New("yapb: malformed frame header")

	// Element document errors
	ErrDocumentInvalid   = errors.New("yapb: invalid element document")
	ErrUnsupportedFormat = errors.New("yapb: unsupported format")

	// Configuration errors
	ErrConfigInvalid = errors.New("yapb: invalid configuration")

	// Listener errors
	ErrServerStopped = errors.New("yapb: server stopped")
)
