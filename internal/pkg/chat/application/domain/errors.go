package chat

import "errors"

// Domain-level errors for chat behaviors
var (
	ErrEmptyMessage   = errors.New("chat: empty message text")
	ErrMissingSender  = errors.New("chat: sender id is required")
	ErrNotParticipant = errors.New("chat: sender is not a participant in the conversation")
	ErrSelfMessage    = errors.New("chat: sender and receiver must differ")
)
