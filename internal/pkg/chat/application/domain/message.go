package chat

import (
	"strings"
	"time"
)

// Message is an immutable log entry in a conversation.
type Message struct {
	ID             string    `db:"id"`
	ConversationID string    `db:"conversation_id"`
	SenderID       string    `db:"sender_id"`
	Text           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
}

// NewMessage validates and normalizes an inbound message. The timestamp
// is always server-assigned: a zero CreatedAt is replaced with now.
func NewMessage(senderID, text string, now time.Time) (Message, error) {
	if senderID == "" {
		return Message{}, ErrMissingSender
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Message{
		SenderID:  senderID,
		Text:      text,
		CreatedAt: now.UTC(),
	}, nil
}
