package task

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	queueport "github.com/aaryandewan/messaging-server/internal/infrastructure/queue/port"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/usecase"
)

// SendMessageTaskType is the queue task name for dispatching a message.
const SendMessageTaskType = "chat:send_message"

// SendMessagePayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type SendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	FlatID     string `json:"flatId,omitempty"`
	Text       string `json:"text"`
}

// RegisterSendMessageTask binds the task handler to the provided server.
// The worker runs the same dispatch use case as the websocket path, so
// persist-before-publish holds for queued sends too. Invalid payloads
// and unresolvable users are dropped rather than retried; store outages
// return the error and let the queue's retry policy kick in.
func RegisterSendMessageTask(srv queueport.Server, uc *usecase.DispatchMessageUseCase) {
	srv.Register(SendMessageTaskType, func(ctx context.Context, t queueport.Task) error {
		var p SendMessagePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err := uc.Execute(ctx, usecase.DispatchMessageInput{
			SenderID:   p.SenderID,
			ReceiverID: p.ReceiverID,
			Text:       p.Text,
			FlatID:     p.FlatID,
		})
		if errors.Is(err, usecase.ErrInvalidInput) || errors.Is(err, usecase.ErrUserNotFound) {
			// Retrying cannot fix these; drop the task.
			return nil
		}
		return err
	})
}
