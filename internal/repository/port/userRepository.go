package repository

import (
	"context"
	"errors"
)

// User carries the only profile fields the chat core ever reads.
type User struct {
	ID   string
	Name string
}

// ErrNotFound signals that the user id does not resolve to a profile.
var ErrNotFound = errors.New("user: not found")

// UserRepository is the user-lookup collaborator. Profile management
// lives elsewhere; the chat core only resolves ids to display names.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
}
