package conversation

import "errors"

var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrIndexOutOfRange indicates an edit target index is not within the
	// session's current message count.
	ErrIndexOutOfRange = errors.New("message index out of range")

	// ErrEmptyMessage indicates an append with neither text nor image.
	ErrEmptyMessage = errors.New("message has no content")

	// ErrNotOwner indicates the caller does not own the session.
	ErrNotOwner = errors.New("session owned by another user")
)
