package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	queueport "github.com/aaryandewan/messaging-server/internal/infrastructure/queue/port"
	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
	"github.com/aaryandewan/messaging-server/internal/pkg/chat/application/usecase"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

type fakeServer struct {
	handlers map[string]queueport.Handler
}

func (f *fakeServer) Register(taskType string, h queueport.Handler) {
	if f.handlers == nil {
		f.handlers = make(map[string]queueport.Handler)
	}
	f.handlers[taskType] = h
}

func (f *fakeServer) Run(ctx context.Context) error  { return nil }
func (f *fakeServer) Stop(ctx context.Context) error { return nil }

type memRepo struct {
	conv       *chat.Conversation
	appended   []chat.Message
	failAppend error
}

func (m *memRepo) FindByParticipants(ctx context.Context, a, b string) (*chat.Conversation, error) {
	return m.conv, nil
}

func (m *memRepo) CreateConversation(ctx context.Context, a, b chat.Participant, firstText string) (*chat.Conversation, error) {
	m.conv = &chat.Conversation{
		ID:           "conv-1",
		Participants: []chat.Participant{a, b},
		LastMessage:  chat.LastMessage{Text: firstText, Timestamp: time.Now().UTC()},
	}
	return m.conv, nil
}

func (m *memRepo) AppendMessage(ctx context.Context, conversationID string, msg chat.Message) (chat.Message, error) {
	if m.failAppend != nil {
		return chat.Message{}, m.failAppend
	}
	msg.ID = "msg-1"
	msg.ConversationID = conversationID
	m.appended = append(m.appended, msg)
	return msg, nil
}

func (m *memRepo) GetMessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	return m.appended, nil
}

type memUsers map[string]string

func (m memUsers) FindByID(ctx context.Context, id string) (*userport.User, error) {
	name, ok := m[id]
	if !ok {
		return nil, userport.ErrNotFound
	}
	return &userport.User{ID: id, Name: name}, nil
}

type memPublisher struct {
	published int
}

func (p *memPublisher) Publish(roomKey string, m chat.Message) { p.published++ }

func newTaskFixture() (*fakeServer, *memRepo, *memPublisher) {
	repo := &memRepo{}
	pub := &memPublisher{}
	uc := usecase.NewDispatchMessageUseCase(repo, memUsers{"u1": "Alice", "u2": "Bob"}, pub)
	srv := &fakeServer{}
	RegisterSendMessageTask(srv, uc)
	return srv, repo, pub
}

func runTask(t *testing.T, srv *fakeServer, payload []byte) error {
	t.Helper()
	h, ok := srv.handlers[SendMessageTaskType]
	if !ok {
		t.Fatalf("handler for %s not registered", SendMessageTaskType)
	}
	return h(context.Background(), queueport.Task{Type: SendMessageTaskType, Payload: payload})
}

func TestQueuedSendDispatches(t *testing.T) {
	srv, repo, pub := newTaskFixture()

	b, _ := json.Marshal(SendMessagePayload{SenderID: "u1", ReceiverID: "u2", Text: "hi"})
	if err := runTask(t, srv, b); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(repo.appended) != 1 || repo.appended[0].Text != "hi" {
		t.Fatalf("message not persisted: %+v", repo.appended)
	}
	if pub.published != 1 {
		t.Fatalf("published = %d, want 1", pub.published)
	}
}

func TestQueuedSendMalformedPayload(t *testing.T) {
	srv, repo, _ := newTaskFixture()
	if err := runTask(t, srv, []byte("{not json")); err == nil {
		t.Fatal("malformed payload accepted")
	}
	if len(repo.appended) != 0 {
		t.Fatal("malformed payload reached the store")
	}
}

func TestQueuedSendDropsUnretryableFailures(t *testing.T) {
	srv, _, pub := newTaskFixture()

	b, _ := json.Marshal(SendMessagePayload{SenderID: "u1", ReceiverID: "ghost", Text: "hi"})
	if err := runTask(t, srv, b); err != nil {
		t.Fatalf("unknown user should be dropped, not retried: %v", err)
	}
	if pub.published != 0 {
		t.Fatal("broadcast happened for a dropped task")
	}
}

func TestQueuedSendRetriesStoreOutage(t *testing.T) {
	srv, repo, pub := newTaskFixture()
	repo.failAppend = errors.New("connection refused")

	b, _ := json.Marshal(SendMessagePayload{SenderID: "u1", ReceiverID: "u2", Text: "hi"})
	if err := runTask(t, srv, b); err == nil {
		t.Fatal("store outage should surface an error for retry")
	}
	if pub.published != 0 {
		t.Fatal("broadcast happened despite failed persistence")
	}
}
