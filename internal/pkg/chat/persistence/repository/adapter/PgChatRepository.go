package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

func (r *PgChatRepository) FindByParticipants(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	return r.findByPairKey(ctx, r.pool, chat.PairKey(userA, userB))
}

// CreateConversation inserts the conversation row plus both participant
// snapshots. The pair_key column carries a unique constraint, so a
// concurrent create for the same pair loses the insert and falls back to
// fetching the existing record, which turns the check-then-act race into
// an idempotent upsert.
func (r *PgChatRepository) CreateConversation(ctx context.Context, a, b chat.Participant, firstMessageText string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}

	pairKey := chat.PairKey(a.UserID, b.UserID)
	now := time.Now().UTC()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (pair_key, created_at, last_message_text, last_message_at)
		VALUES ($1, $2, $3, $2)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id::text
	`, pairKey, now, firstMessageText).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: another handler created the pair first.
		conv, err := r.findByPairKey(ctx, r.pool, pairKey)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			// Winner's transaction has not committed yet; let the
			// caller retry against the store.
			return nil, errors.New("conversation for pair not yet visible")
		}
		return conv, nil
	}
	if err != nil {
		return nil, err
	}

	for _, p := range []chat.Participant{a, b} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat.participant (conversation_id, user_id, name)
			VALUES ($1::uuid, $2::uuid, $3)
		`, id, p.UserID, p.Name); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &chat.Conversation{
		ID:           id,
		Participants: []chat.Participant{a, b},
		LastMessage:  chat.LastMessage{Text: firstMessageText, Timestamp: now},
		CreatedAt:    now,
	}, nil
}

// AppendMessage runs the insert and the last-message refresh in one
// transaction so the mirror can never drift from the log tail.
func (r *PgChatRepository) AppendMessage(ctx context.Context, conversationID string, m chat.Message) (chat.Message, error) {
	if r == nil || r.pool == nil {
		return chat.Message{}, errors.New("PgChatRepository: nil pool")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return chat.Message{}, err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, body, created_at)
		VALUES ($1::uuid, $2::uuid, $3, $4)
		RETURNING id::text
	`, conversationID, m.SenderID, m.Text, m.CreatedAt).Scan(&id)
	if err != nil {
		return chat.Message{}, err
	}

	// Text and watermark move together: a commit carrying an older
	// timestamp than the stored watermark must not overwrite the text
	// either, mirroring LastMessage.Refresh.
	ct, err := tx.Exec(ctx, `
		UPDATE chat.conversation
		SET last_message_text = CASE WHEN last_message_at <= $3 THEN $2 ELSE last_message_text END,
		    last_message_at = GREATEST(last_message_at, $3)
		WHERE id = $1::uuid
	`, conversationID, m.Text, m.CreatedAt)
	if err != nil {
		return chat.Message{}, err
	}
	if ct.RowsAffected() == 0 {
		return chat.Message{}, pgx.ErrNoRows
	}

	if err := tx.Commit(ctx); err != nil {
		return chat.Message{}, err
	}

	m.ID = id
	m.ConversationID = conversationID
	return m, nil
}

func (r *PgChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, conversation_id::text, sender_id::text, body, created_at
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgChatRepository) findByPairKey(ctx context.Context, q queryer, pairKey string) (*chat.Conversation, error) {
	var conv chat.Conversation
	err := q.QueryRow(ctx, `
		SELECT id::text, created_at, last_message_text, last_message_at
		FROM chat.conversation
		WHERE pair_key = $1
	`, pairKey).Scan(&conv.ID, &conv.CreatedAt, &conv.LastMessage.Text, &conv.LastMessage.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT user_id::text, name
		FROM chat.participant
		WHERE conversation_id = $1::uuid
		ORDER BY user_id
	`, conv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p chat.Participant
		if err := rows.Scan(&p.UserID, &p.Name); err != nil {
			return nil, err
		}
		conv.Participants = append(conv.Participants, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return &conv, nil
}
