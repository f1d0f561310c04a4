package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/service"
)

// fakeChatService records the params it was called with and returns canned
// results.
type fakeChatService struct {
	service.ChatService

	lastParams service.SendMessageParams
	result     *service.SendMessageResult
	err        error
}

func (f *fakeChatService) SendMessage(ctx context.Context, params service.SendMessageParams) (*service.SendMessageResult, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// withScope injects an authenticated user and tenant scope, standing in for
// the middleware stack.
func withScope(user *domain.User, tenantID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.SetUser(r.Context(), user)
			ctx = auth.SetTenant(ctx, &auth.Tenant{ID: tenantID, Role: domain.TenantRoleMember})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestSendMessageEndpoint(t *testing.T) {
	user := &domain.User{ID: uuid.New()}
	tenantID := uuid.New()
	conversationID := uuid.New()

	chat := &fakeChatService{result: &service.SendMessageResult{
		ConversationID: conversationID,
		Reply:          "Hi there",
		History: []domain.Message{
			{ID: uuid.New(), Role: domain.MessageRoleUser, Content: "Hello"},
			{ID: uuid.New(), Role: domain.MessageRoleAssistant, Content: "Hi there"},
		},
	}}

	h := NewChatHandler(chat, testLogger())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, withScope(user, tenantID), withScope(user, tenantID))

	body := `{"message": "Hello", "model": "claude-sonnet-4"}`
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if chat.lastParams.UserID != user.ID {
		t.Errorf("expected user %v, got %v", user.ID, chat.lastParams.UserID)
	}
	if !chat.lastParams.TenantID.Valid || chat.lastParams.TenantID.UUID != tenantID {
		t.Errorf("expected tenant scope %v, got %v", tenantID, chat.lastParams.TenantID)
	}
	if chat.lastParams.Model != "claude-sonnet-4" {
		t.Errorf("expected model passthrough, got %q", chat.lastParams.Model)
	}

	var resp sendMessageResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID != conversationID.String() {
		t.Errorf("expected conversation id %s, got %s", conversationID, resp.ConversationID)
	}
	if resp.Reply != "Hi there" {
		t.Errorf("expected reply, got %q", resp.Reply)
	}
	if len(resp.History) != 2 {
		t.Errorf("expected 2 history messages, got %d", len(resp.History))
	}
}

func TestSendMessageRejectsMalformedBody(t *testing.T) {
	chat := &fakeChatService{}
	h := NewChatHandler(chat, testLogger())
	mux := http.NewServeMux()
	scope := withScope(&domain.User{ID: uuid.New()}, uuid.New())
	h.RegisterRoutes(mux, scope, scope)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessageRejectsBadConversationID(t *testing.T) {
	chat := &fakeChatService{}
	h := NewChatHandler(chat, testLogger())
	mux := http.NewServeMux()
	scope := withScope(&domain.User{ID: uuid.New()}, uuid.New())
	h.RegisterRoutes(mux, scope, scope)

	body := `{"message": "Hello", "conversation_id": "not-a-uuid"}`
	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSendMessageQuotaDenialShape(t *testing.T) {
	chat := &fakeChatService{err: domain.QuotaExceeded("test.op", domain.ActionAPICallsPerDay, 100, 100)}
	h := NewChatHandler(chat, testLogger())
	mux := http.NewServeMux()
	scope := withScope(&domain.User{ID: uuid.New()}, uuid.New())
	h.RegisterRoutes(mux, scope, scope)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message": "Hello"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Quota == nil || body.Error.Quota.Action != string(domain.ActionAPICallsPerDay) {
		t.Errorf("expected quota detail for api_calls_per_day, got %+v", body.Error.Quota)
	}
}
