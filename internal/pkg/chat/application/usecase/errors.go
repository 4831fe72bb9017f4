package usecase

import "errors"

// Use-case level errors. The socket boundary collapses all of these into
// a single generic messageError frame so store internals never leak to
// clients.
var (
	// ErrInvalidInput covers missing ids and empty message text,
	// rejected before the store is touched.
	ErrInvalidInput = errors.New("chat: invalid input")

	// ErrUserNotFound means the sender or receiver id did not resolve
	// at conversation-creation time; nothing was created.
	ErrUserNotFound = errors.New("chat: user not found")

	// ErrStoreUnavailable wraps persistence failures (connectivity,
	// timeout). A message that failed to persist is never broadcast.
	ErrStoreUnavailable = errors.New("chat: store unavailable")
)
