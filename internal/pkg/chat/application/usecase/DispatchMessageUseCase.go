package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
	repository "github.com/aaryandewan/messaging-server/internal/pkg/chat/persistence/repository/port"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

// MessagePublisher fans a persisted message out to the room's live
// subscribers. Publish is fire-and-forget; delivery is best-effort and
// never influences the outcome of the send.
type MessagePublisher interface {
	Publish(roomKey string, m chat.Message)
}

// DispatchMessageInput carries one inbound send request. FlatID is
// listing context passed along by clients; it plays no part in room
// addressing or persistence.
type DispatchMessageInput struct {
	SenderID   string
	ReceiverID string
	Text       string
	FlatID     string
}

// DispatchMessageUseCase is the control flow behind every send: resolve
// the room, load or lazily create the conversation, append the message,
// and only after the append is durable hand it to the publisher.
type DispatchMessageUseCase struct {
	Repo      repository.ChatRepository
	Users     userport.UserRepository
	Publisher MessagePublisher

	now func() time.Time // test seam; defaults to time.Now
}

func NewDispatchMessageUseCase(repo repository.ChatRepository, users userport.UserRepository, pub MessagePublisher) *DispatchMessageUseCase {
	return &DispatchMessageUseCase{Repo: repo, Users: users, Publisher: pub, now: time.Now}
}

// Execute persists the message and triggers the broadcast. Any error
// before the append completes means no broadcast happens at all.
func (uc *DispatchMessageUseCase) Execute(ctx context.Context, in DispatchMessageInput) (chat.Message, error) {
	if in.SenderID == "" || in.ReceiverID == "" {
		return chat.Message{}, fmt.Errorf("%w: sender_id and receiver_id are required", ErrInvalidInput)
	}
	if in.SenderID == in.ReceiverID {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrInvalidInput, chat.ErrSelfMessage)
	}

	clock := uc.now
	if clock == nil {
		clock = time.Now
	}
	msg, err := chat.NewMessage(in.SenderID, in.Text, clock())
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	conv, err := uc.Repo.FindByParticipants(ctx, in.SenderID, in.ReceiverID)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if conv == nil {
		conv, err = uc.createConversation(ctx, in.SenderID, in.ReceiverID, msg.Text)
		if err != nil {
			return chat.Message{}, err
		}
	}

	msg, err = conv.Append(msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	persisted, err := uc.Repo.AppendMessage(ctx, conv.ID, msg)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if uc.Publisher != nil {
		uc.Publisher.Publish(chat.RoomKey(in.SenderID, in.ReceiverID), persisted)
	}
	return persisted, nil
}

// createConversation resolves both participant names and persists the
// new record. Either user failing to resolve aborts with no writes.
func (uc *DispatchMessageUseCase) createConversation(ctx context.Context, senderID, receiverID, firstText string) (*chat.Conversation, error) {
	sender, err := uc.lookupUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := uc.lookupUser(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	conv, err := uc.Repo.CreateConversation(ctx, sender, receiver, firstText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return conv, nil
}

func (uc *DispatchMessageUseCase) lookupUser(ctx context.Context, id string) (chat.Participant, error) {
	u, err := uc.Users.FindByID(ctx, id)
	if errors.Is(err, userport.ErrNotFound) {
		return chat.Participant{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if err != nil {
		return chat.Participant{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return chat.Participant{UserID: u.ID, Name: u.Name}, nil
}
