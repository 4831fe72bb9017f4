package controller

import (
	"encoding/json"
	"time"

	"github.com/aaryandewan/messaging-server/internal/infrastructure/realtime"
	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/usecase"
)

// receiveMessageFrame is the wire shape delivered to room subscribers.
type receiveMessageFrame struct {
	Type      string    `json:"type"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomBroadcaster adapts the realtime Router to the dispatch use case's
// publisher port. Fan-out is fire-and-forget; a room with no subscribers
// simply drops the payload.
type RoomBroadcaster struct {
	router *realtime.Router
}

func NewRoomBroadcaster(router *realtime.Router) *RoomBroadcaster {
	return &RoomBroadcaster{router: router}
}

var _ usecase.MessagePublisher = (*RoomBroadcaster)(nil)

func (b *RoomBroadcaster) Publish(roomKey string, m chat.Message) {
	frame := receiveMessageFrame{
		Type:      "receiveMessage",
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.CreatedAt,
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	b.router.Broadcast(roomKey, payload)
}
