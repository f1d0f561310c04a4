package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

const conversationColumns = `id, tenant_id, user_id, title, model, created_at, updated_at`

// CreateConversationParams are the fields for a new conversation.
type CreateConversationParams struct {
	TenantID uuid.NullUUID
	UserID   uuid.UUID
	Title    string
	Model    string
}

// CreateConversation inserts a new conversation.
func (q *Queries) CreateConversation(ctx context.Context, params CreateConversationParams) (domain.Conversation, error) {
	const query = `
		INSERT INTO conversations (tenant_id, user_id, title, model)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + conversationColumns
	var c domain.Conversation
	err := q.db.QueryRowContext(ctx, query, params.TenantID, params.UserID, params.Title, params.Model).
		Scan(&c.ID, &c.TenantID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// GetConversationByID fetches a conversation by id.
func (q *Queries) GetConversationByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	const query = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	var c domain.Conversation
	err := q.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.TenantID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListConversationsParams control the paginated conversation listing.
type ListConversationsParams struct {
	UserID   uuid.UUID
	TenantID uuid.NullUUID // When valid, restrict to this tenant
	Offset   int32
	Limit    int32
}

// ListConversations returns a page of the user's conversations, most recently
// active first, plus the total count for pagination.
func (q *Queries) ListConversations(ctx context.Context, params ListConversationsParams) ([]domain.Conversation, int64, error) {
	const countQuery = `
		SELECT count(*) FROM conversations
		WHERE user_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)`
	var total int64
	if err := q.db.QueryRowContext(ctx, countQuery, params.UserID, params.TenantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + conversationColumns + ` FROM conversations
		WHERE user_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2)
		ORDER BY updated_at DESC
		OFFSET $3 LIMIT $4`
	rows, err := q.db.QueryContext(ctx, query, params.UserID, params.TenantID, params.Offset, params.Limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.TenantID, &c.UserID, &c.Title, &c.Model, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		conversations = append(conversations, c)
	}
	return conversations, total, rows.Err()
}

// TouchConversation bumps the conversation's last-activity timestamp.
func (q *Queries) TouchConversation(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE conversations SET updated_at = now() WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}

// UpdateConversationTitle replaces the conversation title. Used by the
// detached title-regeneration job.
func (q *Queries) UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) error {
	const query = `UPDATE conversations SET title = $2 WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id, title)
	return err
}

// DeleteConversation removes a conversation and its messages. Messages go
// first so a conversation is never left with orphaned rows even without the
// cascading constraint.
func (q *Queries) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}

// InsertMessageParams are the fields for a new message.
type InsertMessageParams struct {
	ConversationID uuid.UUID
	Role           domain.MessageRole
	Content        string
	ImageURL       string
}

// InsertMessage appends a message to a conversation.
func (q *Queries) InsertMessage(ctx context.Context, params InsertMessageParams) (domain.Message, error) {
	const query = `
		INSERT INTO messages (conversation_id, role, content, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, conversation_id, role, content, image_url, created_at`
	var m domain.Message
	err := q.db.QueryRowContext(ctx, query, params.ConversationID, params.Role, params.Content, params.ImageURL).
		Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ImageURL, &m.CreatedAt)
	return m, err
}

// ListMessages returns a conversation's messages in creation order.
func (q *Queries) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, role, content, image_url, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`
	rows, err := q.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
