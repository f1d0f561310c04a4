package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

// InsertUsageEvent appends one event to the usage ledger. The ledger is
// append-only; events are never updated or deleted here.
func (q *Queries) InsertUsageEvent(ctx context.Context, tenantID, userID uuid.UUID, action domain.Action) error {
	const query = `INSERT INTO quota_logs (tenant_id, user_id, action) VALUES ($1, $2, $3)`
	_, err := q.db.ExecContext(ctx, query, tenantID, userID, action)
	return err
}

// CountUsageSince counts ledger events for a tenant/action at or after the
// given instant. Callers pass the start of the current UTC day for daily
// rate quotas.
func (q *Queries) CountUsageSince(ctx context.Context, tenantID uuid.UUID, action domain.Action, since time.Time) (int64, error) {
	const query = `
		SELECT count(*) FROM quota_logs
		WHERE tenant_id = $1 AND action = $2 AND created_at >= $3`
	var count int64
	err := q.db.QueryRowContext(ctx, query, tenantID, action, since).Scan(&count)
	return count, err
}

// CountUsageByActionSince returns per-action event counts for a tenant since
// the given instant, for the usage-stats report.
func (q *Queries) CountUsageByActionSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (map[domain.Action]int64, error) {
	const query = `
		SELECT action, count(*) FROM quota_logs
		WHERE tenant_id = $1 AND created_at >= $2
		GROUP BY action`
	rows, err := q.db.QueryContext(ctx, query, tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.Action]int64)
	for rows.Next() {
		var action domain.Action
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		counts[action] = count
	}
	return counts, rows.Err()
}

// CountActiveAgents counts custom agents with the active flag set. This is
// the standing-resource usage for the custom_ais action: deactivating an
// agent frees a slot immediately, with no dependency on the calendar day.
func (q *Queries) CountActiveAgents(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	const query = `SELECT count(*) FROM custom_ais WHERE tenant_id = $1 AND active`
	var count int64
	err := q.db.QueryRowContext(ctx, query, tenantID).Scan(&count)
	return count, err
}

// CountProjects counts a tenant's live projects (standing-resource usage for
// the projects action).
func (q *Queries) CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	const query = `SELECT count(*) FROM projects WHERE tenant_id = $1`
	var count int64
	err := q.db.QueryRowContext(ctx, query, tenantID).Scan(&count)
	return count, err
}

// CountMessagesInConversation counts messages in one conversation, for the
// messages_per_conversation limit.
func (q *Queries) CountMessagesInConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	const query = `SELECT count(*) FROM messages WHERE conversation_id = $1`
	var count int64
	err := q.db.QueryRowContext(ctx, query, conversationID).Scan(&count)
	return count, err
}
