package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	queueport "github.com/aaryandewan/messaging-server/internal/infrastructure/queue/port"
	"github.com/aaryandewan/messaging-server/internal/infrastructure/realtime"
	httpHandler "github.com/aaryandewan/messaging-server/internal/pkg/chat/presentation/http"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool, users userport.UserRepository, client queueport.Client, router *realtime.Router) {
	v1 := r.Group("/api/v1")
	// Pass the shared handles down to the HTTP layer
	httpHandler.RegisterRoutes(v1, pool, users, client, router)
}
