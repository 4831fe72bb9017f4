package controller

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/usecase"
	repoAdapter "github.com/aaryandewan/messaging-server/internal/pkg/chat/persistence/repository/adapter"
)

// GetHistoryController handles fetching the durable message log for a
// participant pair (one controller per endpoint).
type GetHistoryController struct {
	UC *usecase.GetHistoryUseCase
}

func NewGetHistoryController(pool *pgxpool.Pool) *GetHistoryController {
	repo := repoAdapter.NewPgChatRepository(pool)
	return &GetHistoryController{UC: usecase.NewGetHistoryUseCase(repo)}
}

// historyErrorResponse maps a use case failure to the status and client
// message for the history endpoint. Store failures wrap driver detail
// (hosts, dial errors) that belongs in the server log, not the response.
func historyErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest, "user_id and peer_id are required"
	case errors.Is(err, usecase.ErrStoreUnavailable):
		return http.StatusInternalServerError, "failed to load messages"
	default:
		return http.StatusInternalServerError, "failed to load messages"
	}
}

func (h *GetHistoryController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		peerID := c.Query("peer_id")
		if userID == "" || peerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and peer_id are required"})
			return
		}

		limit := 50
		offset := 0
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if v := c.Query("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		out, err := h.UC.Execute(ctx, usecase.GetHistoryInput{
			UserID: userID,
			PeerID: peerID,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			if errors.Is(err, usecase.ErrStoreUnavailable) {
				log.Printf("chat history for %s/%s: %v", userID, peerID, err)
			}
			status, msg := historyErrorResponse(err)
			c.JSON(status, gin.H{"error": msg})
			return
		}

		if out.Conversation == nil {
			c.JSON(http.StatusOK, gin.H{"conversation": nil, "messages": []gin.H{}})
			return
		}

		msgs := make([]gin.H, 0, len(out.Messages))
		for _, m := range out.Messages {
			msgs = append(msgs, gin.H{
				"id":        m.ID,
				"senderId":  m.SenderID,
				"text":      m.Text,
				"timestamp": m.CreatedAt,
			})
		}

		participants := make([]gin.H, 0, len(out.Conversation.Participants))
		for _, p := range out.Conversation.Participants {
			participants = append(participants, gin.H{"userId": p.UserID, "name": p.Name})
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation": gin.H{
				"id":           out.Conversation.ID,
				"participants": participants,
				"lastMessage": gin.H{
					"text":      out.Conversation.LastMessage.Text,
					"timestamp": out.Conversation.LastMessage.Timestamp,
				},
			},
			"messages": msgs,
			"limit":    limit,
			"offset":   offset,
			"count":    len(msgs),
		})
	}
}
