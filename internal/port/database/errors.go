package database

import "errors"

// Errors a store wraps when repeating the call cannot change the outcome.
var (
	// ErrInvalidCursor is wrapped by ScanTasks for a cursor the backend did
	// not issue.
	ErrInvalidCursor = errors.New("invalid scan cursor")
	// ErrCorruptRecord is wrapped when a stored task cannot be decoded.
	ErrCorruptRecord = errors.New("corrupt task record")
	// ErrRejected is wrapped when the backend refuses the request as malformed.
	ErrRejected = errors.New("request rejected by backend")
)

// Permanent reports whether err wraps one of the errors above.
func Permanent(err error) bool {
	return errors.Is(err, ErrInvalidCursor) ||
		errors.Is(err, ErrCorruptRecord) ||
		errors.Is(err, ErrRejected)
}
