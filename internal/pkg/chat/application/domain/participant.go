package chat

// Participant is a snapshot of a user's identity taken when the
// conversation was created. It is intentionally not kept in sync with
// later profile edits.
type Participant struct {
	UserID string `db:"user_id"`
	Name   string `db:"name"`
}
