package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/ai"
	"github.com/kairoshq/kairos/internal/ai/mock"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeChatStore is an in-memory ChatStore.
type fakeChatStore struct {
	conversations map[uuid.UUID]domain.Conversation
	messages      map[uuid.UUID][]domain.Message
	agents        map[uuid.UUID]domain.CustomAgent

	insertMessageErr error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		conversations: make(map[uuid.UUID]domain.Conversation),
		messages:      make(map[uuid.UUID][]domain.Message),
		agents:        make(map[uuid.UUID]domain.CustomAgent),
	}
}

func (f *fakeChatStore) CreateConversation(_ context.Context, params repository.CreateConversationParams) (domain.Conversation, error) {
	c := domain.Conversation{
		ID:       uuid.New(),
		TenantID: params.TenantID,
		UserID:   params.UserID,
		Title:    params.Title,
		Model:    params.Model,
	}
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeChatStore) GetConversationByID(_ context.Context, id uuid.UUID) (domain.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return domain.Conversation{}, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeChatStore) ListConversations(_ context.Context, params repository.ListConversationsParams) ([]domain.Conversation, int64, error) {
	var out []domain.Conversation
	for _, c := range f.conversations {
		if c.UserID == params.UserID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeChatStore) TouchConversation(ctx context.Context, id uuid.UUID) error {
	return ctx.Err()
}

func (f *fakeChatStore) DeleteConversation(_ context.Context, id uuid.UUID) error {
	delete(f.conversations, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeChatStore) InsertMessage(ctx context.Context, params repository.InsertMessageParams) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if f.insertMessageErr != nil {
		return domain.Message{}, f.insertMessageErr
	}
	m := domain.Message{
		ID:             uuid.New(),
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Content:        params.Content,
		ImageURL:       params.ImageURL,
	}
	f.messages[params.ConversationID] = append(f.messages[params.ConversationID], m)
	return m, nil
}

func (f *fakeChatStore) ListMessages(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	return f.messages[conversationID], nil
}

func (f *fakeChatStore) GetActiveAgentByID(_ context.Context, id uuid.UUID) (domain.CustomAgent, error) {
	a, ok := f.agents[id]
	if !ok || !a.Active {
		return domain.CustomAgent{}, sql.ErrNoRows
	}
	return a, nil
}

// fakeGuard implements quota.Guard with configurable denials and an event
// log for assertions.
type fakeGuard struct {
	denyActions map[domain.Action]bool
	denyConv    bool
	logged      []domain.Action
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{denyActions: make(map[domain.Action]bool)}
}

func (g *fakeGuard) Check(_ context.Context, _ uuid.UUID, action domain.Action) error {
	if g.denyActions[action] {
		return domain.QuotaExceeded("fakeGuard.Check", action, 10, 10)
	}
	return nil
}

func (g *fakeGuard) CheckConversation(_ context.Context, _, _ uuid.UUID) error {
	if g.denyConv {
		return domain.QuotaExceeded("fakeGuard.CheckConversation", domain.ActionMessagesPerConversation, 50, 50)
	}
	return nil
}

func (g *fakeGuard) LogUsage(_ context.Context, _, _ uuid.UUID, action domain.Action) {
	g.logged = append(g.logged, action)
}

func (g *fakeGuard) UsageStats(_ context.Context, _ uuid.UUID) (*domain.UsageStats, error) {
	return nil, errors.New("not implemented")
}

type chatFixture struct {
	store    *fakeChatStore
	guard    *fakeGuard
	provider *mock.Provider
	titled   []uuid.UUID
	service  ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		store:    newFakeChatStore(),
		guard:    newFakeGuard(),
		provider: mock.New(testLogger()),
	}
	schedule := func(_ context.Context, id uuid.UUID) error {
		f.titled = append(f.titled, id)
		return nil
	}
	f.service = NewChatService(f.store, f.guard, f.provider, schedule, ChatConfig{}, testLogger())
	return f
}

func TestSendMessageNewConversation(t *testing.T) {
	f := newChatFixture(t)
	f.provider.CompleteResponse = "Hi there!"
	tenantID := uuid.New()
	userID := uuid.New()

	result, err := f.service.SendMessage(context.Background(), SendMessageParams{
		TenantID: uuid.NullUUID{UUID: tenantID, Valid: true},
		UserID:   userID,
		Text:     "Hello",
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.Reply != "Hi there!" {
		t.Errorf("Reply = %q, want %q", result.Reply, "Hi there!")
	}

	conversation := f.store.conversations[result.ConversationID]
	if conversation.Title != "Hello" {
		t.Errorf("conversation title = %q, want %q", conversation.Title, "Hello")
	}

	messages := f.store.messages[result.ConversationID]
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].Role != domain.MessageRoleUser || messages[0].Content != "Hello" {
		t.Errorf("first message = %v %q, want user %q", messages[0].Role, messages[0].Content, "Hello")
	}
	if messages[1].Role != domain.MessageRoleAssistant || messages[1].Content != "Hi there!" {
		t.Errorf("second message = %v %q, want assistant reply", messages[1].Role, messages[1].Content)
	}
	if len(result.History) != 2 {
		t.Errorf("history length = %d, want 2", len(result.History))
	}

	wantLogged := []domain.Action{domain.ActionConversations, domain.ActionAPICallsPerDay}
	if len(f.guard.logged) != len(wantLogged) {
		t.Fatalf("logged actions = %v, want %v", f.guard.logged, wantLogged)
	}
	for i, action := range wantLogged {
		if f.guard.logged[i] != action {
			t.Errorf("logged[%d] = %q, want %q", i, f.guard.logged[i], action)
		}
	}

	if len(f.titled) != 1 || f.titled[0] != result.ConversationID {
		t.Errorf("titled = %v, want one entry for the new conversation", f.titled)
	}
}

func TestSendMessageQuotaDeniedNoPersistence(t *testing.T) {
	f := newChatFixture(t)
	f.guard.denyActions[domain.ActionAPICallsPerDay] = true

	_, err := f.service.SendMessage(context.Background(), SendMessageParams{
		TenantID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		UserID:   uuid.New(),
		Text:     "Hello",
	})
	if domain.ErrorCode(err) != domain.EQUOTA {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.EQUOTA)
	}

	if len(f.store.conversations) != 0 {
		t.Errorf("got %d conversations, want 0 after quota denial", len(f.store.conversations))
	}
	if f.provider.CompleteCalls != 0 {
		t.Errorf("provider called %d times, want 0", f.provider.CompleteCalls)
	}
	if len(f.guard.logged) != 0 {
		t.Errorf("logged actions = %v, want none", f.guard.logged)
	}
}

func TestSendMessageProviderFailureKeepsUserMessageOnly(t *testing.T) {
	f := newChatFixture(t)
	f.provider.CompleteError = ai.ErrOverloaded

	_, err := f.service.SendMessage(context.Background(), SendMessageParams{
		TenantID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		UserID:   uuid.New(),
		Text:     "Hello",
	})
	if domain.ErrorCode(err) != domain.EPROVIDER {
		t.Fatalf("error code = %q, want %q", domain.ErrorCode(err), domain.EPROVIDER)
	}

	if len(f.store.conversations) != 1 {
		t.Fatalf("got %d conversations, want 1", len(f.store.conversations))
	}
	for id := range f.store.conversations {
		messages := f.store.messages[id]
		if len(messages) != 1 {
			t.Fatalf("got %d messages, want only the user turn", len(messages))
		}
		if messages[0].Role != domain.MessageRoleUser {
			t.Errorf("remaining message role = %q, want user", messages[0].Role)
		}
	}
	if len(f.guard.logged) != 0 {
		t.Errorf("logged actions = %v, want none on provider failure", f.guard.logged)
	}
}

// disconnectingProvider cancels the request context while generating,
// simulating a client that goes away mid-call.
type disconnectingProvider struct {
	cancel context.CancelFunc
	reply  string
}

func (p *disconnectingProvider) Complete(_ context.Context, _ ai.ChatRequest) (string, error) {
	p.cancel()
	return p.reply, nil
}

func TestSendMessagePersistsReplyAfterClientDisconnect(t *testing.T) {
	store := newFakeChatStore()
	guard := newFakeGuard()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := &disconnectingProvider{cancel: cancel, reply: "Hi there!"}
	svc := NewChatService(store, guard, provider, nil, ChatConfig{}, testLogger())

	result, err := svc.SendMessage(ctx, SendMessageParams{
		TenantID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		UserID:   uuid.New(),
		Text:     "Hello",
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	// The assistant reply must land even though the client is gone.
	messages := store.messages[result.ConversationID]
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want the user turn and the persisted reply", len(messages))
	}
	if messages[1].Role != domain.MessageRoleAssistant || messages[1].Content != "Hi there!" {
		t.Errorf("second message = %v %q, want the assistant reply", messages[1].Role, messages[1].Content)
	}
}

func TestSendMessageContinuesConversation(t *testing.T) {
	f := newChatFixture(t)
	tenantID := uuid.NullUUID{UUID: uuid.New(), Valid: true}
	userID := uuid.New()

	conversation, _ := f.store.CreateConversation(context.Background(), repository.CreateConversationParams{
		TenantID: tenantID,
		UserID:   userID,
		Title:    "Existing",
	})
	f.store.InsertMessage(context.Background(), repository.InsertMessageParams{
		ConversationID: conversation.ID, Role: domain.MessageRoleUser, Content: "First",
	})
	f.store.InsertMessage(context.Background(), repository.InsertMessageParams{
		ConversationID: conversation.ID, Role: domain.MessageRoleAssistant, Content: "Reply",
	})

	result, err := f.service.SendMessage(context.Background(), SendMessageParams{
		TenantID:       tenantID,
		UserID:         userID,
		ConversationID: uuid.NullUUID{UUID: conversation.ID, Valid: true},
		Text:           "Second",
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if result.ConversationID != conversation.ID {
		t.Errorf("ConversationID = %v, want the existing conversation", result.ConversationID)
	}
	if len(result.History) != 4 {
		t.Errorf("history length = %d, want 4", len(result.History))
	}

	// Continuation records api_calls_per_day only, no conversations event,
	// and does not reschedule the title.
	if len(f.guard.logged) != 1 || f.guard.logged[0] != domain.ActionAPICallsPerDay {
		t.Errorf("logged actions = %v, want [api_calls_per_day]", f.guard.logged)
	}
	if len(f.titled) != 0 {
		t.Errorf("titled = %v, want no title regeneration past the first exchange", f.titled)
	}
}

func TestSendMessageWrongOwner(t *testing.T) {
	f := newChatFixture(t)
	conversation, _ := f.store.CreateConversation(context.Background(), repository.CreateConversationParams{
		UserID: uuid.New(),
		Title:  "Someone else's",
	})

	_, err := f.service.SendMessage(context.Background(), SendMessageParams{
		UserID:         uuid.New(),
		ConversationID: uuid.NullUUID{UUID: conversation.ID, Valid: true},
		Text:           "Hello",
	})
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Errorf("error code = %q, want %q", domain.ErrorCode(err), domain.ENOTFOUND)
	}
}

func TestSendMessageEmptyText(t *testing.T) {
	f := newChatFixture(t)
	_, err := f.service.SendMessage(context.Background(), SendMessageParams{
		UserID: uuid.New(),
		Text:   "   ",
	})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("error code = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}
}

func TestSendMessageAgentConfiguration(t *testing.T) {
	f := newChatFixture(t)
	tenantID := uuid.New()
	agentID := uuid.New()
	f.store.agents[agentID] = domain.CustomAgent{
		ID:           agentID,
		TenantID:     tenantID,
		SystemPrompt: "You are a pirate. Speak accordingly.",
		Model:        "claude-sonnet-4-5",
		Temperature:  1.2,
		MaxTokens:    512,
		Active:       true,
	}

	_, err := f.service.SendMessage(context.Background(), SendMessageParams{
		TenantID: uuid.NullUUID{UUID: tenantID, Valid: true},
		UserID:   uuid.New(),
		AgentID:  uuid.NullUUID{UUID: agentID, Valid: true},
		Text:     "Ahoy",
	})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	req := f.provider.LastRequest
	if req.System != "You are a pirate. Speak accordingly." {
		t.Errorf("System = %q, want the agent prompt", req.System)
	}
	if req.Model != "claude-sonnet-4-5" {
		t.Errorf("Model = %q, want the agent model", req.Model)
	}
	if req.Temperature != 1.2 || req.MaxTokens != 512 {
		t.Errorf("Temperature/MaxTokens = %v/%d, want agent values", req.Temperature, req.MaxTokens)
	}
}

func TestSendMessageAgentFromOtherTenant(t *testing.T) {
	f := newChatFixture(t)
	agentID := uuid.New()
	f.store.agents[agentID] = domain.CustomAgent{
		ID:       agentID,
		TenantID: uuid.New(),
		Active:   true,
	}

	_, err := f.service.SendMessage(context.Background(), SendMessageParams{
		TenantID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
		UserID:   uuid.New(),
		AgentID:  uuid.NullUUID{UUID: agentID, Valid: true},
		Text:     "Hello",
	})
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Errorf("error code = %q, want %q", domain.ErrorCode(err), domain.ENOTFOUND)
	}
}

func TestDeleteConversationScopedToOwner(t *testing.T) {
	f := newChatFixture(t)
	ownerID := uuid.New()
	conversation, _ := f.store.CreateConversation(context.Background(), repository.CreateConversationParams{
		UserID: ownerID,
		Title:  "Mine",
	})

	if err := f.service.DeleteConversation(context.Background(), uuid.New(), conversation.ID); domain.ErrorCode(err) != domain.ENOTFOUND {
		t.Errorf("delete by stranger: error code = %q, want %q", domain.ErrorCode(err), domain.ENOTFOUND)
	}
	if err := f.service.DeleteConversation(context.Background(), ownerID, conversation.ID); err != nil {
		t.Errorf("delete by owner: error = %v", err)
	}
	if len(f.store.conversations) != 0 {
		t.Errorf("conversation still present after delete")
	}
}
