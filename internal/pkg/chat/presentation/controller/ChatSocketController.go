package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaryandewan/messaging-server/internal/infrastructure/realtime"
	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/aaryandewan/messaging-server/internal/pkg/chat/persistence/repository/adapter"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

// ChatSocketController handles the websocket endpoint for realtime chat
// traffic. Each connection gets one reader goroutine; frames from a
// single connection are processed strictly in arrival order.
type ChatSocketController struct {
	router          *realtime.Router
	dispatchUC      *usecase.DispatchMessageUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(pool *pgxpool.Pool, users userport.UserRepository, router *realtime.Router) *ChatSocketController {
	repo := repoAdapter.NewPgChatRepository(pool)
	return &ChatSocketController{
		router:          router,
		dispatchUC:      usecase.NewDispatchMessageUseCase(repo, users, NewRoomBroadcaster(router)),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

// inboundFrame covers both client events; unused fields stay zero.
type inboundFrame struct {
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	PeerID     string `json:"peerId,omitempty"`
	SenderID   string `json:"senderId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	FlatID     string `json:"flatId,omitempty"`
	Text       string `json:"text,omitempty"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames
// until the client disconnects. A failure on this connection never
// touches any other connection's loop.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; nothing more to do.
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "invalid payload")
				continue
			}

			switch frame.Type {
			case "joinRoom":
				ctl.handleJoin(conn, frame)
			case "sendMessage":
				ctl.handleSend(c, conn, frame)
			default:
				ctl.replyError(conn, "unknown event type")
			}
		}
	}
}

// handleJoin subscribes the connection to the canonical room for the
// pair. Malformed joins are a silent no-op, mirroring the loose contract
// clients already rely on; no ack is sent either way.
func (ctl *ChatSocketController) handleJoin(conn *realtime.Connection, frame inboundFrame) {
	if frame.UserID == "" || frame.PeerID == "" {
		return
	}
	ctl.router.Subscribe(chat.RoomKey(frame.UserID, frame.PeerID), conn)
}

// handleSend runs the dispatch use case. The use case broadcasts only
// after the append is durable; on any failure the sender alone gets a
// messageError with a generic text.
func (ctl *ChatSocketController) handleSend(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	_, err := ctl.dispatchUC.Execute(ctx, usecase.DispatchMessageInput{
		SenderID:   frame.SenderID,
		ReceiverID: frame.ReceiverID,
		Text:       frame.Text,
		FlatID:     frame.FlatID,
	})
	if err != nil {
		ctl.replyError(conn, sendErrorMessage(err))
		return
	}
}

// sendErrorMessage maps internal errors to client-safe text. Store
// detail never crosses the socket.
func sendErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return "Invalid message"
	case errors.Is(err, usecase.ErrUserNotFound):
		return "One or both users not found"
	default:
		return "Failed to send message"
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, message string) {
	frame := errorFrame{Type: "messageError", Message: message}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
