package chat

import "time"

// LastMessage is the denormalized summary of the newest entry in the
// log. It is derived state and must only ever change together with an
// append, never independently.
type LastMessage struct {
	Text      string    `db:"last_message_text"`
	Timestamp time.Time `db:"last_message_at"`
}

// Refresh adopts m as the newest entry unless the mirror already points
// at a later message. Text and timestamp move together: a stale message
// never pairs its text with a newer watermark.
func (lm *LastMessage) Refresh(m Message) {
	if m.CreatedAt.Before(lm.Timestamp) {
		return
	}
	lm.Text = m.Text
	lm.Timestamp = m.CreatedAt
}

// Conversation is the durable record of all messages exchanged between
// exactly two users. At most one conversation exists per unordered
// participant pair; the persistence layer enforces this with a unique
// constraint on the sorted pair key.
type Conversation struct {
	ID           string
	Participants []Participant // exactly two, distinct
	LastMessage  LastMessage
	CreatedAt    time.Time
}

// PairKey returns the canonical sorted-pair key for the two given user
// ids. The conversation store indexes on this value so that lookups and
// the uniqueness constraint are independent of participant order.
func PairKey(userA, userB string) string {
	return RoomKey(userA, userB)
}

// HasParticipant tells whether userID belongs to this conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	if c == nil {
		return false
	}
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Peer returns the participant other than userID, if any.
func (c *Conversation) Peer(userID string) (Participant, bool) {
	if c == nil {
		return Participant{}, false
	}
	for _, p := range c.Participants {
		if p.UserID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// Append applies domain rules to a message headed for this conversation
// and advances the last-message mirror.
//
// Validations:
//   - the sender must be a participant
//   - the message must carry text and a timestamp (see NewMessage)
//
// Timestamps within a conversation are monotonically non-decreasing: a
// message timestamped before the current watermark is clamped to it
// rather than rejected, since both are server clocks and the log order
// is what counts.
func (c *Conversation) Append(m Message) (Message, error) {
	if !c.HasParticipant(m.SenderID) {
		return Message{}, ErrNotParticipant
	}
	if m.Text == "" {
		return Message{}, ErrEmptyMessage
	}
	if m.CreatedAt.Before(c.LastMessage.Timestamp) {
		m.CreatedAt = c.LastMessage.Timestamp
	}
	m.ConversationID = c.ID

	c.LastMessage.Refresh(m)
	return m, nil
}
