package usecase

import (
	"context"
	"fmt"

	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
	repository "github.com/aaryandewan/messaging-server/internal/pkg/chat/persistence/repository/port"
)

// GetHistoryInput identifies the conversation by its participant pair,
// in either order.
type GetHistoryInput struct {
	UserID string
	PeerID string
	Limit  int
	Offset int
}

// GetHistoryOutput carries the conversation summary and its message log.
// Conversation is nil when the pair has never exchanged a message.
type GetHistoryOutput struct {
	Conversation *chat.Conversation
	Messages     []chat.Message
}

// GetHistoryUseCase fetches the durable log for a participant pair.
type GetHistoryUseCase struct {
	Repo repository.ChatRepository
}

func NewGetHistoryUseCase(repo repository.ChatRepository) *GetHistoryUseCase {
	return &GetHistoryUseCase{Repo: repo}
}

func (uc *GetHistoryUseCase) Execute(ctx context.Context, in GetHistoryInput) (GetHistoryOutput, error) {
	if in.UserID == "" || in.PeerID == "" {
		return GetHistoryOutput{}, fmt.Errorf("%w: user_id and peer_id are required", ErrInvalidInput)
	}

	conv, err := uc.Repo.FindByParticipants(ctx, in.UserID, in.PeerID)
	if err != nil {
		return GetHistoryOutput{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if conv == nil {
		return GetHistoryOutput{}, nil
	}

	msgs, err := uc.Repo.GetMessagesByConversation(ctx, conv.ID, in.Limit, in.Offset)
	if err != nil {
		return GetHistoryOutput{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return GetHistoryOutput{Conversation: conv, Messages: msgs}, nil
}
