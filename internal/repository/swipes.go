package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

const swipeColumns = `id, tenant_id, user_id, title, content, category, network, reference_url, created_at`

// CreateSwipeParams are the fields for a new swipe.
type CreateSwipeParams struct {
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Title        string
	Content      string
	Category     string
	Network      string
	ReferenceURL string
}

// CreateSwipe inserts a new swipe.
func (q *Queries) CreateSwipe(ctx context.Context, params CreateSwipeParams) (domain.Swipe, error) {
	const query = `
		INSERT INTO swipes (tenant_id, user_id, title, content, category, network, reference_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + swipeColumns
	var s domain.Swipe
	err := q.db.QueryRowContext(ctx, query, params.TenantID, params.UserID, params.Title,
		params.Content, params.Category, params.Network, params.ReferenceURL).
		Scan(&s.ID, &s.TenantID, &s.UserID, &s.Title, &s.Content, &s.Category, &s.Network, &s.ReferenceURL, &s.CreatedAt)
	return s, err
}

// GetSwipeByID fetches a swipe by id.
func (q *Queries) GetSwipeByID(ctx context.Context, id uuid.UUID) (domain.Swipe, error) {
	const query = `SELECT ` + swipeColumns + ` FROM swipes WHERE id = $1`
	var s domain.Swipe
	err := q.db.QueryRowContext(ctx, query, id).
		Scan(&s.ID, &s.TenantID, &s.UserID, &s.Title, &s.Content, &s.Category, &s.Network, &s.ReferenceURL, &s.CreatedAt)
	return s, err
}

// ListSwipes returns a page of a tenant's swipes, newest first, plus the
// total count for pagination.
func (q *Queries) ListSwipes(ctx context.Context, tenantID uuid.UUID, offset, limit int32) ([]domain.Swipe, int64, error) {
	const countQuery = `SELECT count(*) FROM swipes WHERE tenant_id = $1`
	var total int64
	if err := q.db.QueryRowContext(ctx, countQuery, tenantID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + swipeColumns + ` FROM swipes
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := q.db.QueryContext(ctx, query, tenantID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var swipes []domain.Swipe
	for rows.Next() {
		var s domain.Swipe
		if err := rows.Scan(&s.ID, &s.TenantID, &s.UserID, &s.Title, &s.Content, &s.Category, &s.Network, &s.ReferenceURL, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		swipes = append(swipes, s)
	}
	return swipes, total, rows.Err()
}

// DeleteSwipe removes a swipe.
func (q *Queries) DeleteSwipe(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM swipes WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}
