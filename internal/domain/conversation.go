package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTitleLength is the longest a conversation title may be. Initial titles
// are truncated from the first user message; regenerated titles are clamped
// the same way.
const MaxTitleLength = 50

// Conversation is a chat thread owned by a user, optionally scoped to a
// tenant. UpdatedAt is touched on every exchange so listings sort by recency.
type Conversation struct {
	ID        uuid.UUID
	TenantID  uuid.NullUUID // Null only for legacy personal conversations
	UserID    uuid.UUID
	Title     string
	Model     string // Requested model id, empty for the default chain
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageRole tags who produced a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Valid checks if the role is one of the known message roles.
func (r MessageRole) Valid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

// Message is one turn in a conversation, ordered by CreatedAt ascending.
// Messages are deleted together with their conversation, never orphaned.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Role           MessageRole
	Content        string
	ImageURL       string // Optional attachment reference
	CreatedAt      time.Time
}

// TitleFromMessage derives an initial conversation title from the first user
// message: the leading MaxTitleLength characters with an ellipsis marker when
// truncated. Counts runes, not bytes, so multibyte text is not split.
func TitleFromMessage(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= MaxTitleLength {
		return message
	}
	return string(runes[:MaxTitleLength]) + "..."
}
