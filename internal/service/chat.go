package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/ai"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/metrics"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/repository"
)

// DefaultProviderTimeout bounds a single chat completion, including the
// provider's own retries and fallback attempts.
const DefaultProviderTimeout = 90 * time.Second

// =============================================================================
// Interface Definition
// =============================================================================

// ChatStore is the persistence surface the orchestrator needs. Implemented
// by *repository.Queries.
type ChatStore interface {
	CreateConversation(ctx context.Context, params repository.CreateConversationParams) (domain.Conversation, error)
	GetConversationByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	ListConversations(ctx context.Context, params repository.ListConversationsParams) ([]domain.Conversation, int64, error)
	TouchConversation(ctx context.Context, id uuid.UUID) error
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	InsertMessage(ctx context.Context, params repository.InsertMessageParams) (domain.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	GetActiveAgentByID(ctx context.Context, id uuid.UUID) (domain.CustomAgent, error)
}

// TitleScheduler enqueues the detached title-regeneration job. Failures are
// logged and dropped, never surfaced to the caller.
type TitleScheduler func(ctx context.Context, conversationID uuid.UUID) error

// SendMessageParams are the inputs for one chat exchange.
type SendMessageParams struct {
	TenantID uuid.NullUUID // Tenant scope; quota checks apply when set
	UserID   uuid.UUID
	// ConversationID continues an existing conversation. When null a new
	// conversation is created.
	ConversationID uuid.NullUUID
	// AgentID selects a custom agent whose system prompt and model
	// parameters drive the completion.
	AgentID  uuid.NullUUID
	Model    string // Requested model id; empty uses the default chain
	Text     string
	ImageURL string // Optional image attachment
}

// SendMessageResult is the outcome of a chat exchange.
type SendMessageResult struct {
	ConversationID uuid.UUID
	Reply          string
	History        []domain.Message // Full history including this exchange
}

// ChatConfig tunes the orchestrator.
type ChatConfig struct {
	DefaultModel       string // Empty means the provider's fallback chain
	DefaultMaxTokens   int
	DefaultTemperature float64
	ProviderTimeout    time.Duration
}

// ChatService orchestrates conversations against the model providers.
type ChatService interface {
	// SendMessage runs one exchange: quota checks, conversation
	// create-or-load, user message persistence, provider completion,
	// assistant message persistence, usage accounting. Quota denials
	// abort before any persistence. A provider failure leaves the user
	// message persisted with no assistant turn.
	SendMessage(ctx context.Context, params SendMessageParams) (*SendMessageResult, error)

	// GetConversation returns a conversation and its messages, scoped to
	// its owner.
	GetConversation(ctx context.Context, userID, id uuid.UUID) (*domain.Conversation, []domain.Message, error)

	// ListConversations returns a page of the user's conversations, most
	// recently active first.
	ListConversations(ctx context.Context, userID uuid.UUID, tenantID uuid.NullUUID, offset, limit int32) ([]domain.Conversation, int64, error)

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, userID, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type chatService struct {
	store         ChatStore
	guard         quota.Guard
	provider      ai.Provider
	scheduleTitle TitleScheduler
	config        ChatConfig
	logger        *slog.Logger
}

// NewChatService creates a new ChatService. scheduleTitle may be nil when no
// background worker is running; title regeneration is then skipped.
func NewChatService(
	store ChatStore,
	guard quota.Guard,
	provider ai.Provider,
	scheduleTitle TitleScheduler,
	config ChatConfig,
	logger *slog.Logger,
) ChatService {
	if config.DefaultMaxTokens == 0 {
		config.DefaultMaxTokens = domain.AgentDefaultMaxTokens
	}
	if config.DefaultTemperature == 0 {
		config.DefaultTemperature = domain.AgentDefaultTemperature
	}
	if config.ProviderTimeout == 0 {
		config.ProviderTimeout = DefaultProviderTimeout
	}
	return &chatService{
		store:         store,
		guard:         guard,
		provider:      provider,
		scheduleTitle: scheduleTitle,
		config:        config,
		logger:        logger,
	}
}

// SendMessage runs one chat exchange.
func (s *chatService) SendMessage(ctx context.Context, params SendMessageParams) (*SendMessageResult, error) {
	const op = "ChatService.SendMessage"

	text := strings.TrimSpace(params.Text)
	if text == "" {
		return nil, domain.Invalid(op, "Message text is required")
	}

	// 1. Quota checks. Denials abort before any persistence so a denied
	// request leaves no partial conversation state behind.
	if params.TenantID.Valid {
		if err := s.guard.Check(ctx, params.TenantID.UUID, domain.ActionAPICallsPerDay); err != nil {
			return nil, err
		}
		if params.ConversationID.Valid {
			if err := s.guard.CheckConversation(ctx, params.TenantID.UUID, params.ConversationID.UUID); err != nil {
				return nil, err
			}
		}
	}

	// 2. Resolve the model configuration, from the agent when one is set.
	model := params.Model
	if model == "" {
		model = s.config.DefaultModel
	}
	system := ""
	maxTokens := s.config.DefaultMaxTokens
	temperature := s.config.DefaultTemperature
	if params.AgentID.Valid {
		agent, err := s.loadAgent(ctx, params.TenantID, params.AgentID.UUID)
		if err != nil {
			return nil, err
		}
		system = agent.SystemPrompt
		maxTokens = agent.MaxTokens
		temperature = agent.Temperature
		if params.Model == "" {
			model = agent.Model
		}
	}

	// 3. Load the conversation, or create one titled from the message.
	conversation, created, err := s.resolveConversation(ctx, params, text)
	if err != nil {
		return nil, err
	}

	// 4. Load prior history and persist the user message. The user turn
	// is written before the provider call so history order always matches
	// turn order.
	var history []domain.Message
	if !created {
		history, err = s.store.ListMessages(ctx, conversation.ID)
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to load conversation history")
		}
	}
	userMessage, err := s.store.InsertMessage(ctx, repository.InsertMessageParams{
		ConversationID: conversation.ID,
		Role:           domain.MessageRoleUser,
		Content:        text,
		ImageURL:       params.ImageURL,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to persist message")
	}
	history = append(history, userMessage)

	// 5. Call the provider. The call and everything after it are
	// detached from client cancellation: once the model starts
	// generating, the reply is persisted even if the client disconnects
	// mid-request, so the user message is never left without its reply.
	detached := context.WithoutCancel(ctx)
	callCtx, cancel := context.WithTimeout(detached, s.config.ProviderTimeout)
	defer cancel()
	reply, err := s.provider.Complete(callCtx, ai.ChatRequest{
		Model:        model,
		System:       system,
		Messages:     toProviderMessages(history),
		MaxTokens:    maxTokens,
		Temperature:  temperature,
		EnableMemory: true,
	})
	if err != nil {
		// No assistant row is written on failure. The conversation
		// keeps the user message; the caller resubmits.
		return nil, domain.Provider(err, op)
	}

	// 6. Persist the assistant message and bump last activity.
	assistantMessage, err := s.store.InsertMessage(detached, repository.InsertMessageParams{
		ConversationID: conversation.ID,
		Role:           domain.MessageRoleAssistant,
		Content:        reply,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to persist message")
	}
	history = append(history, assistantMessage)
	if err := s.store.TouchConversation(detached, conversation.ID); err != nil {
		return nil, domain.Internal(err, op, "Failed to update conversation")
	}

	// 7. Record consumption. Best effort, never blocks the response.
	metrics.MessagesSentTotal.Inc()
	if created {
		metrics.ConversationsCreated.Inc()
	}
	if params.TenantID.Valid {
		if created {
			s.guard.LogUsage(detached, params.TenantID.UUID, params.UserID, domain.ActionConversations)
		}
		s.guard.LogUsage(detached, params.TenantID.UUID, params.UserID, domain.ActionAPICallsPerDay)
	}

	// 8. Regenerate the title in the background after the first
	// exchange. A scheduling failure never affects the reply.
	if len(history) <= 2 && s.scheduleTitle != nil {
		if err := s.scheduleTitle(detached, conversation.ID); err != nil {
			s.logger.Warn("failed to schedule title regeneration",
				slog.String("conversation_id", conversation.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	return &SendMessageResult{
		ConversationID: conversation.ID,
		Reply:          reply,
		History:        history,
	}, nil
}

// resolveConversation loads the requested conversation or creates a new one.
// Creation checks the conversations quota first.
func (s *chatService) resolveConversation(ctx context.Context, params SendMessageParams, text string) (*domain.Conversation, bool, error) {
	const op = "ChatService.SendMessage"

	if params.ConversationID.Valid {
		conversation, err := s.store.GetConversationByID(ctx, params.ConversationID.UUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, domain.NotFound(op, "conversation")
			}
			return nil, false, domain.Internal(err, op, "Failed to get conversation")
		}
		if conversation.UserID != params.UserID || conversation.TenantID != params.TenantID {
			return nil, false, domain.NotFound(op, "conversation")
		}
		return &conversation, false, nil
	}

	if params.TenantID.Valid {
		if err := s.guard.Check(ctx, params.TenantID.UUID, domain.ActionConversations); err != nil {
			return nil, false, err
		}
	}
	conversation, err := s.store.CreateConversation(ctx, repository.CreateConversationParams{
		TenantID: params.TenantID,
		UserID:   params.UserID,
		Title:    domain.TitleFromMessage(text),
		Model:    params.Model,
	})
	if err != nil {
		return nil, false, domain.Internal(err, op, "Failed to create conversation")
	}
	return &conversation, true, nil
}

// loadAgent fetches an active agent and verifies it belongs to the tenant.
func (s *chatService) loadAgent(ctx context.Context, tenantID uuid.NullUUID, agentID uuid.UUID) (*domain.CustomAgent, error) {
	const op = "ChatService.SendMessage"

	agent, err := s.store.GetActiveAgentByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "agent")
		}
		return nil, domain.Internal(err, op, "Failed to get agent")
	}
	if !tenantID.Valid || agent.TenantID != tenantID.UUID {
		return nil, domain.NotFound(op, "agent")
	}
	return &agent, nil
}

// GetConversation returns a conversation and its messages.
func (s *chatService) GetConversation(ctx context.Context, userID, id uuid.UUID) (*domain.Conversation, []domain.Message, error) {
	const op = "ChatService.GetConversation"

	conversation, err := s.store.GetConversationByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, domain.NotFound(op, "conversation")
		}
		return nil, nil, domain.Internal(err, op, "Failed to get conversation")
	}
	if conversation.UserID != userID {
		return nil, nil, domain.NotFound(op, "conversation")
	}

	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, nil, domain.Internal(err, op, "Failed to load conversation history")
	}
	return &conversation, messages, nil
}

// ListConversations returns a page of the user's conversations.
func (s *chatService) ListConversations(ctx context.Context, userID uuid.UUID, tenantID uuid.NullUUID, offset, limit int32) ([]domain.Conversation, int64, error) {
	const op = "ChatService.ListConversations"

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	conversations, total, err := s.store.ListConversations(ctx, repository.ListConversationsParams{
		UserID:   userID,
		TenantID: tenantID,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, domain.Internal(err, op, "Failed to list conversations")
	}
	return conversations, total, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *chatService) DeleteConversation(ctx context.Context, userID, id uuid.UUID) error {
	const op = "ChatService.DeleteConversation"

	conversation, err := s.store.GetConversationByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "conversation")
		}
		return domain.Internal(err, op, "Failed to get conversation")
	}
	if conversation.UserID != userID {
		return domain.NotFound(op, "conversation")
	}

	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return domain.Internal(err, op, "Failed to delete conversation")
	}
	return nil
}

// toProviderMessages converts stored messages to the provider wire shape.
func toProviderMessages(messages []domain.Message) []ai.Message {
	out := make([]ai.Message, len(messages))
	for i, m := range messages {
		out[i] = ai.Message{
			Role:     ai.Role(m.Role),
			Content:  m.Content,
			ImageURL: m.ImageURL,
		}
	}
	return out
}

var _ ChatService = (*chatService)(nil)
