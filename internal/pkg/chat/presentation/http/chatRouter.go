package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	queueport "github.com/aaryandewan/messaging-server/internal/infrastructure/queue/port"
	"github.com/aaryandewan/messaging-server/internal/infrastructure/realtime"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/presentation/controller"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

// RegisterRoutes registers chat-related endpoints under the given router
// group. It constructs per-endpoint controllers and binds them directly
// to routes.
func RegisterRoutes(g *gin.RouterGroup, pool *pgxpool.Pool, users userport.UserRepository, client queueport.Client, router *realtime.Router) {
	historyCtl := controller.NewGetHistoryController(pool)
	sendMsgCtl := controller.NewSendMessageController(client)
	socketCtl := controller.NewChatSocketController(pool, users, router)

	// GET /api/v1/chat/messages -> durable history for a participant pair
	g.GET("/chat/messages", historyCtl.Handle())

	// POST /api/v1/chat/messages -> queue a send through the worker
	g.POST("/chat/messages", sendMsgCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())
}
