package yapb

import "strings"

// Result is the status returned by every packet operation.
// Negative values are errors; OK and Complete both mean success.
type Result int8

const (
	ErrNoMoreElements Result = -7
	ErrInvalidPacket  Result = -6
	ErrTypeMismatch   Result = -5
	ErrInvalidMode    Result = -4
	ErrBufferTooSmall Result = -3
	ErrNullPointer    Result = -2
	ErrUnknown        Result = -1

	OK Result = 0
	// Complete reports that the element just popped was the last one.
	Complete Result = 1
)

// Failed reports whether r is an error.
func (r Result) Failed() bool {
	return r < 0
}

// Err returns nil for success results and r itself otherwise, so that
// results can flow into ordinary error handling.
func (r Result) Err() error {
	if r >= 0 {
		return nil
	}
	return r
}

// Error implements the error interface.
func (r Result) Error() string {
	return "yapb: " + strings.ToLower(r.String())
}

// String returns a stable human readable label for r.
func (r Result) String() string {
	switch r {
	case Complete:
		return "Complete"
	case OK:
		return "OK"
	case ErrUnknown:
		return "Unknown error"
	case ErrNullPointer:
		return "Null pointer"
	case ErrBufferTooSmall:
		return "Buffer too small"
	case ErrInvalidMode:
		return "Invalid mode"
	case ErrTypeMismatch:
		return "Type mismatch"
	case ErrNoMoreElements:
		return "No more elements"
	case ErrInvalidPacket:
		return "Invalid packet"
	default:
		return "Unknown"
	}
}

// ResultString is the free-function form of Result.String.
func ResultString(r Result) string {
	return r.String()
}
