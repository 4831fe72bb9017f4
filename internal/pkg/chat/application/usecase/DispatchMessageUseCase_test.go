package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	chat "github.com/aaryandewan/messaging-server/internal/pkg/chat/application/domain"
	userport "github.com/aaryandewan/messaging-server/internal/repository/port"
)

// fakeChatRepo is an in-memory ChatRepository keyed by the sorted pair
// key, with switchable failure modes.
type fakeChatRepo struct {
	conversations map[string]*chat.Conversation
	messages      map[string][]chat.Message
	nextID        int

	failFind   error
	failCreate error
	failAppend error
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		conversations: make(map[string]*chat.Conversation),
		messages:      make(map[string][]chat.Message),
	}
}

func (f *fakeChatRepo) FindByParticipants(ctx context.Context, userA, userB string) (*chat.Conversation, error) {
	if f.failFind != nil {
		return nil, f.failFind
	}
	conv, ok := f.conversations[chat.PairKey(userA, userB)]
	if !ok {
		return nil, nil
	}
	cp := *conv
	return &cp, nil
}

func (f *fakeChatRepo) CreateConversation(ctx context.Context, a, b chat.Participant, firstMessageText string) (*chat.Conversation, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	pairKey := chat.PairKey(a.UserID, b.UserID)
	if existing, ok := f.conversations[pairKey]; ok {
		cp := *existing
		return &cp, nil
	}
	f.nextID++
	// Timestamp left zero so appended messages keep their own clocks.
	conv := &chat.Conversation{
		ID:           fmt.Sprintf("conv-%d", f.nextID),
		Participants: []chat.Participant{a, b},
		LastMessage:  chat.LastMessage{Text: firstMessageText},
		CreatedAt:    time.Now().UTC(),
	}
	f.conversations[pairKey] = conv
	cp := *conv
	return &cp, nil
}

func (f *fakeChatRepo) AppendMessage(ctx context.Context, conversationID string, m chat.Message) (chat.Message, error) {
	if f.failAppend != nil {
		return chat.Message{}, f.failAppend
	}
	f.nextID++
	m.ID = fmt.Sprintf("msg-%d", f.nextID)
	m.ConversationID = conversationID
	f.messages[conversationID] = append(f.messages[conversationID], m)
	for _, conv := range f.conversations {
		if conv.ID == conversationID {
			conv.LastMessage.Refresh(m)
		}
	}
	return m, nil
}

func (f *fakeChatRepo) GetMessagesByConversation(ctx context.Context, conversationID string, limit int, offset int) ([]chat.Message, error) {
	if f.failFind != nil {
		return nil, f.failFind
	}
	return f.messages[conversationID], nil
}

type fakeUsers struct {
	names map[string]string
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*userport.User, error) {
	name, ok := f.names[id]
	if !ok {
		return nil, userport.ErrNotFound
	}
	return &userport.User{ID: id, Name: name}, nil
}

type published struct {
	roomKey string
	msg     chat.Message
}

type fakePublisher struct {
	events []published
}

func (f *fakePublisher) Publish(roomKey string, m chat.Message) {
	f.events = append(f.events, published{roomKey: roomKey, msg: m})
}

func newDispatchFixture() (*DispatchMessageUseCase, *fakeChatRepo, *fakePublisher) {
	repo := newFakeChatRepo()
	users := &fakeUsers{names: map[string]string{"u1": "Alice", "u2": "Bob"}}
	pub := &fakePublisher{}
	uc := NewDispatchMessageUseCase(repo, users, pub)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	uc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return uc, repo, pub
}

func TestDispatchRejectsInvalidInput(t *testing.T) {
	uc, repo, pub := newDispatchFixture()

	cases := []DispatchMessageInput{
		{SenderID: "", ReceiverID: "u2", Text: "hi"},
		{SenderID: "u1", ReceiverID: "", Text: "hi"},
		{SenderID: "u1", ReceiverID: "u1", Text: "hi"},
		{SenderID: "u1", ReceiverID: "u2", Text: "   "},
	}
	for _, in := range cases {
		if _, err := uc.Execute(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("input %+v: got err %v, want ErrInvalidInput", in, err)
		}
	}
	if len(repo.conversations) != 0 {
		t.Error("invalid input reached the store")
	}
	if len(pub.events) != 0 {
		t.Error("invalid input was broadcast")
	}
}

func TestDispatchUnknownUser(t *testing.T) {
	uc, repo, pub := newDispatchFixture()

	_, err := uc.Execute(context.Background(), DispatchMessageInput{
		SenderID: "u1", ReceiverID: "ghost", Text: "hi",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got err %v, want ErrUserNotFound", err)
	}
	if len(repo.conversations) != 0 {
		t.Error("conversation created despite unresolvable receiver")
	}
	if len(pub.events) != 0 {
		t.Error("broadcast happened despite failed creation")
	}
}

func TestDispatchCreatesConversationOnFirstSend(t *testing.T) {
	uc, repo, pub := newDispatchFixture()

	msg, err := uc.Execute(context.Background(), DispatchMessageInput{
		SenderID: "u1", ReceiverID: "u2", Text: "hi", FlatID: "flat-9",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	conv, ok := repo.conversations[chat.PairKey("u1", "u2")]
	if !ok {
		t.Fatal("conversation not persisted")
	}
	if len(conv.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(conv.Participants))
	}
	names := map[string]string{}
	for _, p := range conv.Participants {
		names[p.UserID] = p.Name
	}
	if names["u1"] != "Alice" || names["u2"] != "Bob" {
		t.Errorf("participant snapshots wrong: %v", names)
	}
	if got := repo.messages[conv.ID]; len(got) != 1 || got[0].Text != "hi" || got[0].SenderID != "u1" {
		t.Errorf("message log = %+v", got)
	}
	if conv.LastMessage.Text != "hi" {
		t.Errorf("lastMessage.text = %q, want hi", conv.LastMessage.Text)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.roomKey != chat.RoomKey("u2", "u1") {
		t.Errorf("room key %q not symmetric", ev.roomKey)
	}
	if ev.msg.SenderID != "u1" || ev.msg.Text != "hi" || !ev.msg.CreatedAt.Equal(msg.CreatedAt) {
		t.Errorf("published message %+v differs from persisted %+v", ev.msg, msg)
	}
}

func TestDispatchReusesConversationInEitherDirection(t *testing.T) {
	uc, repo, _ := newDispatchFixture()
	ctx := context.Background()

	if _, err := uc.Execute(ctx, DispatchMessageInput{SenderID: "u1", ReceiverID: "u2", Text: "hi"}); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := uc.Execute(ctx, DispatchMessageInput{SenderID: "u2", ReceiverID: "u1", Text: "hey"}); err != nil {
		t.Fatalf("reply: %v", err)
	}

	if len(repo.conversations) != 1 {
		t.Fatalf("conversations = %d, want exactly 1", len(repo.conversations))
	}
	conv := repo.conversations[chat.PairKey("u1", "u2")]
	if got := repo.messages[conv.ID]; len(got) != 2 {
		t.Fatalf("message log length = %d, want 2", len(got))
	}
	if conv.LastMessage.Text != "hey" {
		t.Errorf("lastMessage.text = %q, want hey", conv.LastMessage.Text)
	}
}

func TestDispatchNeverBroadcastsOnStoreFailure(t *testing.T) {
	uc, repo, pub := newDispatchFixture()
	ctx := context.Background()

	// Seed a conversation, then break the store.
	if _, err := uc.Execute(ctx, DispatchMessageInput{SenderID: "u1", ReceiverID: "u2", Text: "hi"}); err != nil {
		t.Fatalf("seed send: %v", err)
	}
	pub.events = nil
	repo.failAppend = errors.New("connection reset")

	_, err := uc.Execute(ctx, DispatchMessageInput{SenderID: "u1", ReceiverID: "u2", Text: "lost"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("got err %v, want ErrStoreUnavailable", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("broadcast happened for a message that failed to persist")
	}
}

func TestDispatchFindFailure(t *testing.T) {
	uc, repo, pub := newDispatchFixture()
	repo.failFind = errors.New("timeout")

	_, err := uc.Execute(context.Background(), DispatchMessageInput{SenderID: "u1", ReceiverID: "u2", Text: "hi"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("got err %v, want ErrStoreUnavailable", err)
	}
	if len(pub.events) != 0 {
		t.Error("broadcast happened despite lookup failure")
	}
}

func TestDispatchLastMessageMirrorOverManyAppends(t *testing.T) {
	uc, repo, _ := newDispatchFixture()
	ctx := context.Background()

	var lastMsg chat.Message
	for i := 1; i <= 5; i++ {
		msg, err := uc.Execute(ctx, DispatchMessageInput{
			SenderID: "u1", ReceiverID: "u2", Text: fmt.Sprintf("message %d", i),
		})
		if err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
		lastMsg = msg
	}

	conv := repo.conversations[chat.PairKey("u1", "u2")]
	if conv.LastMessage.Text != "message 5" {
		t.Errorf("lastMessage.text = %q, want message 5", conv.LastMessage.Text)
	}
	if !conv.LastMessage.Timestamp.Equal(lastMsg.CreatedAt) {
		t.Errorf("lastMessage.timestamp = %v, want %v", conv.LastMessage.Timestamp, lastMsg.CreatedAt)
	}

	msgs := repo.messages[conv.ID]
	for i := 1; i < len(msgs); i++ {
		if msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt) {
			t.Errorf("timestamps not monotonic at %d: %v < %v", i, msgs[i].CreatedAt, msgs[i-1].CreatedAt)
		}
	}
}
