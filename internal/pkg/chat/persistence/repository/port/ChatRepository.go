package repository

import (
	"context"

	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the chat domain.
//
// FindByParticipants returns (nil, nil) when no conversation exists for
// the pair; callers use that as the signal to create one. Creation is an
// idempotent upsert: a concurrent create for the same pair yields the
// already-persisted record instead of an error.
type ChatRepository interface {
	FindByParticipants(ctx context.Context, userA, userB string) (*chat.Conversation, error)
	CreateConversation(ctx context.Context, a, b chat.Participant, firstMessageText string) (*chat.Conversation, error)

	// AppendMessage atomically inserts the message and refreshes the
	// conversation's last-message mirror in the same transaction.
	AppendMessage(ctx context.Context, conversationID string, m chat.Message) (chat.Message, error)

	GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error)
}
