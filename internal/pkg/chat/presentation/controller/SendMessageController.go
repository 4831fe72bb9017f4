package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	queueport "github.com/aaryandewan/messaging-server/internal/infrastructure/queue/port"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/task"
)

// SendMessageController handles the HTTP send endpoint by enqueueing a
// background task; delivery then follows the same dispatch path as the
// websocket, worker-side (one controller per endpoint).
type SendMessageController struct {
	Q queueport.Client
}

func NewSendMessageController(client queueport.Client) *SendMessageController {
	return &SendMessageController{Q: client}
}

type sendMessageRequest struct {
	SenderID   string `json:"senderId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
	FlatID     string `json:"flatId"`
	Text       string `json:"text" binding:"required"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		payload := task.SendMessagePayload{
			SenderID:   req.SenderID,
			ReceiverID: req.ReceiverID,
			FlatID:     req.FlatID,
			Text:       req.Text,
		}
		b, err := json.Marshal(payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode task payload"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		opts := queueport.EnqueueOption{Queue: "chat", MaxRetry: 20}
		id, err := h.Q.Enqueue(ctx, queueport.Task{Type: task.SendMessageTaskType, Payload: b}, opts)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue message"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":      "queued",
			"task_id":     id,
			"sender_id":   req.SenderID,
			"receiver_id": req.ReceiverID,
		})
	}
}
