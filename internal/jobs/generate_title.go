// Package jobs contains the background job handlers run by the worker pool.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kairoshq/kairos/internal/ai"
	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/repository"
	"github.com/kairoshq/kairos/internal/worker"
)

// titlePrompt instructs the summarization model. The reply is used verbatim
// as the conversation title after clamping.
const titlePrompt = "Summarize this conversation in at most 6 words. " +
	"Reply with only the title, no quotes and no punctuation at the end."

// titleMaxTokens bounds the summarization reply; titles are a few words.
const titleMaxTokens = 60

// GenerateTitleHandler regenerates a conversation's title from its first
// exchange using a cheap summarization model. It replaces the provisional
// title taken from the first user message.
type GenerateTitleHandler struct {
	queries  *repository.Queries
	provider ai.Provider
	model    string
	logger   *slog.Logger
}

// NewGenerateTitleHandler creates a new handler for title regeneration jobs.
func NewGenerateTitleHandler(
	queries *repository.Queries,
	provider ai.Provider,
	model string,
	logger *slog.Logger,
) *GenerateTitleHandler {
	return &GenerateTitleHandler{
		queries:  queries,
		provider: provider,
		model:    model,
		logger:   logger,
	}
}

// Type returns the job type identifier.
func (h *GenerateTitleHandler) Type() string {
	return worker.JobTypeGenerateTitle
}

// Handle executes the title regeneration job.
func (h *GenerateTitleHandler) Handle(ctx context.Context, payload []byte) error {
	// 1. Unmarshal the payload
	var p worker.GenerateTitlePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	// 2. Fetch the conversation. A deleted conversation is not an error
	// worth retrying.
	conversation, err := h.queries.GetConversationByID(ctx, p.ConversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("conversation not found: %s", p.ConversationID))
		}
		return fmt.Errorf("fetch conversation: %w", err)
	}

	// 3. Load the opening exchange
	messages, err := h.queries.ListMessages(ctx, p.ConversationID)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	if len(messages) == 0 {
		return worker.NewPermanentError(fmt.Errorf("conversation has no messages: %s", p.ConversationID))
	}
	if len(messages) > 2 {
		messages = messages[:2]
	}

	// 4. Summarize it
	history := make([]ai.Message, 0, len(messages)+1)
	for _, m := range messages {
		history = append(history, ai.Message{Role: ai.Role(m.Role), Content: m.Content})
	}
	history = append(history, ai.Message{Role: ai.RoleUser, Content: titlePrompt})

	reply, err := h.provider.Complete(ctx, ai.ChatRequest{
		Model:     h.model,
		Messages:  history,
		MaxTokens: titleMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("summarize conversation: %w", err)
	}

	title := cleanTitle(reply)
	if title == "" {
		return worker.NewPermanentError(fmt.Errorf("summarization returned no usable title for %s", p.ConversationID))
	}

	// 5. Persist the new title
	if err := h.queries.UpdateConversationTitle(ctx, p.ConversationID, title); err != nil {
		return fmt.Errorf("update title: %w", err)
	}

	h.logger.Info("conversation title regenerated",
		"conversation_id", p.ConversationID,
		"old_title", conversation.Title,
		"new_title", title,
	)
	return nil
}

// cleanTitle normalizes a model reply into a title: single line, no
// surrounding quotes, clamped to the title length limit.
func cleanTitle(reply string) string {
	title := strings.TrimSpace(reply)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.Trim(title, `"'`)
	return domain.TitleFromMessage(title)
}
