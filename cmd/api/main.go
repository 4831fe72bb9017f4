package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	v1 "github.com/aaryandewan/messaging-server/cmd/api/router/v1"
	cacheadapter "github.com/aaryandewan/messaging-server/internal/infrastructure/cache/adapter"
	"github.com/aaryandewan/messaging-server/internal/infrastructure/database"
	queueadapter "github.com/aaryandewan/messaging-server/internal/infrastructure/queue/adapter"
	"github.com/aaryandewan/messaging-server/internal/infrastructure/realtime"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/task"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/usecase"
	chatrepo "github.com/aaryandewan/messaging-server/internal/pkg/chat/persistence/repository/adapter"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/presentation/controller"
	useradapter "github.com/aaryandewan/messaging-server/internal/repository/adapter"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := database.NewPoolFromEnv(ctx)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	// User lookups go through a redis read-through cache when available.
	var users userport.UserRepository = useradapter.NewPgUserRepository(pool)
	cache, err := cacheadapter.NewRedisAdapter()
	if err != nil {
		log.Printf("Warning: redis cache unavailable, user lookups go straight to the database: %v", err)
	} else {
		defer cache.Close()
		users = useradapter.NewCachedUserRepository(users, cache)
	}

	queueClient, err := queueadapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Fatalf("failed to create queue client: %v", err)
	}
	defer queueClient.Close()

	rtRouter := realtime.NewRouter()
	defer rtRouter.Close()

	// The worker runs in-process and shares the realtime router, so
	// queued sends broadcast to the same rooms as websocket sends.
	queueServer, err := queueadapter.NewAsynqServer()
	if err != nil {
		log.Fatalf("failed to create queue server: %v", err)
	}
	dispatchUC := usecase.NewDispatchMessageUseCase(
		chatrepo.NewPgChatRepository(pool),
		users,
		controller.NewRoomBroadcaster(rtRouter),
	)
	task.RegisterSendMessageTask(queueServer, dispatchUC)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := queueServer.Run(runCtx); err != nil {
			log.Printf("queue server stopped: %v", err)
		}
	}()

	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})

	v1.RegisterRoutes(r, pool, users, queueClient, rtRouter)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-runCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
