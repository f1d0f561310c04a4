package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/repository"
	"github.com/kairoshq/kairos/internal/ssrf"
)

// Swipe listing page bounds.
const (
	SwipeDefaultPageSize = 20
	SwipeMaxPageSize     = 100
)

// =============================================================================
// Interface Definition
// =============================================================================

// CreateSwipeParams are the caller-supplied fields for a new swipe.
type CreateSwipeParams struct {
	Title        string
	Content      string
	Category     string
	Network      string
	ReferenceURL string
}

// SwipePage is one page of a tenant's swipes.
type SwipePage struct {
	Swipes []domain.Swipe
	Total  int64
}

// SwipeService defines operations for saved reference content.
type SwipeService interface {
	// Create saves a swipe. Creation is rate-limited against the
	// tenant's daily swipes quota and logged to the usage ledger.
	Create(ctx context.Context, tenantID, userID uuid.UUID, params CreateSwipeParams) (*domain.Swipe, error)

	// GetByID retrieves a swipe scoped to the tenant.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Swipe, error)

	// List returns a page of the tenant's swipes, newest first.
	List(ctx context.Context, tenantID uuid.UUID, offset, limit int32) (*SwipePage, error)

	// Delete removes a swipe.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type swipeService struct {
	queries *repository.Queries
	guard   quota.Guard
	logger  *slog.Logger
}

// NewSwipeService creates a new SwipeService.
func NewSwipeService(queries *repository.Queries, guard quota.Guard, logger *slog.Logger) SwipeService {
	return &swipeService{
		queries: queries,
		guard:   guard,
		logger:  logger,
	}
}

// Create saves a swipe after a rate quota check.
func (s *swipeService) Create(ctx context.Context, tenantID, userID uuid.UUID, params CreateSwipeParams) (*domain.Swipe, error) {
	const op = "SwipeService.Create"

	// 1. Check today's swipe allowance.
	if err := s.guard.Check(ctx, tenantID, domain.ActionSwipes); err != nil {
		return nil, err
	}

	// 2. Validate.
	params.Title = strings.TrimSpace(params.Title)
	if params.Title == "" {
		return nil, domain.Invalid(op, "Swipe title is required")
	}
	if len(params.Title) > 200 {
		return nil, domain.Invalid(op, "Swipe title must be 200 characters or less")
	}
	if params.Content == "" {
		return nil, domain.Invalid(op, "Swipe content is required")
	}
	if params.ReferenceURL != "" {
		if err := ssrf.ValidateURL(params.ReferenceURL); err != nil {
			return nil, err
		}
	}

	// 3. Persist.
	swipe, err := s.queries.CreateSwipe(ctx, repository.CreateSwipeParams{
		TenantID:     tenantID,
		UserID:       userID,
		Title:        params.Title,
		Content:      params.Content,
		Category:     strings.TrimSpace(params.Category),
		Network:      strings.TrimSpace(params.Network),
		ReferenceURL: params.ReferenceURL,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create swipe")
	}

	// 4. Record consumption. Best effort, never blocks the response.
	s.guard.LogUsage(ctx, tenantID, userID, domain.ActionSwipes)

	return &swipe, nil
}

// GetByID retrieves a swipe scoped to the tenant.
func (s *swipeService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Swipe, error) {
	const op = "SwipeService.GetByID"

	swipe, err := s.queries.GetSwipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "swipe")
		}
		return nil, domain.Internal(err, op, "Failed to get swipe")
	}
	if swipe.TenantID != tenantID {
		return nil, domain.NotFound(op, "swipe")
	}
	return &swipe, nil
}

// List returns a page of the tenant's swipes.
func (s *swipeService) List(ctx context.Context, tenantID uuid.UUID, offset, limit int32) (*SwipePage, error) {
	const op = "SwipeService.List"

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = SwipeDefaultPageSize
	}
	if limit > SwipeMaxPageSize {
		limit = SwipeMaxPageSize
	}

	swipes, total, err := s.queries.ListSwipes(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list swipes")
	}
	return &SwipePage{Swipes: swipes, Total: total}, nil
}

// Delete removes a swipe.
func (s *swipeService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	const op = "SwipeService.Delete"

	if _, err := s.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.queries.DeleteSwipe(ctx, id); err != nil {
		return domain.Internal(err, op, "Failed to delete swipe")
	}
	return nil
}

var _ SwipeService = (*swipeService)(nil)
