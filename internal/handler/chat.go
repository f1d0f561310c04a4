package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/auth"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/service"
)

// ChatHandler serves the chat exchange and conversation endpoints.
type ChatHandler struct {
	chat   service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chat service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

// RegisterRoutes registers chat endpoints behind the authenticated stack.
// Sending a message requires a tenant scope; reading and deleting
// conversations only requires the owning user.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, requireUser, requireTenant func(http.Handler) http.Handler) {
	mux.Handle("POST /api/chat", requireTenant(http.HandlerFunc(h.SendMessage)))
	mux.Handle("GET /api/conversations", requireUser(http.HandlerFunc(h.ListConversations)))
	mux.Handle("GET /api/conversations/{id}", requireUser(http.HandlerFunc(h.GetConversation)))
	mux.Handle("DELETE /api/conversations/{id}", requireUser(http.HandlerFunc(h.DeleteConversation)))
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	AgentID        string `json:"agent_id,omitempty"`
	Model          string `json:"model,omitempty"`
	Message        string `json:"message"`
	ImageURL       string `json:"image_url,omitempty"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sendMessageResponse struct {
	ConversationID string            `json:"conversation_id"`
	Reply          string            `json:"reply"`
	History        []messageResponse `json:"history"`
}

// SendMessage runs one chat exchange.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	const op = "handler.chat"

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	tenant := auth.GetTenant(r.Context())

	params := service.SendMessageParams{
		TenantID: uuid.NullUUID{UUID: tenant.ID, Valid: true},
		UserID:   user.ID,
		Model:    req.Model,
		Text:     req.Message,
		ImageURL: req.ImageURL,
	}

	if req.ConversationID != "" {
		id, err := uuid.Parse(req.ConversationID)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid conversation_id"))
			return
		}
		params.ConversationID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.AgentID != "" {
		id, err := uuid.Parse(req.AgentID)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid agent_id"))
			return
		}
		params.AgentID = uuid.NullUUID{UUID: id, Valid: true}
	}

	result, err := h.chat.SendMessage(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, sendMessageResponse{
		ConversationID: result.ConversationID.String(),
		Reply:          result.Reply,
		History:        toMessageResponses(result.History),
	})
}

type conversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type conversationListResponse struct {
	Conversations []conversationResponse `json:"conversations"`
	Total         int64                  `json:"total"`
	Offset        int32                  `json:"offset"`
	Limit         int32                  `json:"limit"`
}

// ListConversations returns a page of the user's conversations, most
// recently active first. When the request carries a tenant scope, only that
// tenant's conversations are listed.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var tenantID uuid.NullUUID
	if tenant := auth.GetTenant(r.Context()); tenant != nil {
		tenantID = uuid.NullUUID{UUID: tenant.ID, Valid: true}
	}

	offset, limit := pagination(r)
	conversations, total, err := h.chat.ListConversations(r.Context(), user.ID, tenantID, offset, limit)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		out = append(out, toConversationResponse(c))
	}

	respondJSON(w, http.StatusOK, conversationListResponse{
		Conversations: out,
		Total:         total,
		Offset:        offset,
		Limit:         limit,
	})
}

type conversationDetailResponse struct {
	Conversation conversationResponse `json:"conversation"`
	Messages     []messageResponse    `json:"messages"`
}

// GetConversation returns a conversation and its full message history.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	conversation, messages, err := h.chat.GetConversation(r.Context(), user.ID, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, conversationDetailResponse{
		Conversation: toConversationResponse(*conversation),
		Messages:     toMessageResponses(messages),
	})
}

// DeleteConversation removes a conversation and its messages.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user := auth.GetUser(r.Context())
	if err := h.chat.DeleteConversation(r.Context(), user.ID, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toConversationResponse(c domain.Conversation) conversationResponse {
	return conversationResponse{
		ID:        c.ID.String(),
		Title:     c.Title,
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:        m.ID.String(),
			Role:      string(m.Role),
			Content:   m.Content,
			ImageURL:  m.ImageURL,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

// pagination reads offset/limit query parameters, falling back to service
// defaults for absent or malformed values.
func pagination(r *http.Request) (offset, limit int32) {
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 32); err == nil && v >= 0 {
		offset = int32(v)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 32); err == nil && v > 0 {
		limit = int32(v)
	}
	return offset, limit
}
