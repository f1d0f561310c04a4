package quota

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Store is the subset of repository queries the guard reads and writes.
type Store interface {
	// GetTenantPlan returns the tenant's current plan tier.
	GetTenantPlan(ctx context.Context, id uuid.UUID) (domain.PlanTier, error)

	// CountUsageSince counts ledger events for a tenant/action at or after
	// the given instant.
	CountUsageSince(ctx context.Context, tenantID uuid.UUID, action domain.Action, since time.Time) (int64, error)

	// CountUsageByActionSince returns per-action event counts since the
	// given instant.
	CountUsageByActionSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (map[domain.Action]int64, error)

	// CountActiveAgents counts a tenant's active custom agents.
	CountActiveAgents(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// CountProjects counts a tenant's live projects.
	CountProjects(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// CountMessagesInConversation counts messages in one conversation.
	CountMessagesInConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)

	// InsertUsageEvent appends one event to the usage ledger.
	InsertUsageEvent(ctx context.Context, tenantID, userID uuid.UUID, action domain.Action) error
}

// Guard checks tenant usage against plan limits and records consumption.
type Guard interface {
	// Check verifies the tenant has allowance left for the action.
	// Returns nil if allowed, or a *domain.QuotaError if the limit is hit.
	// Store failures allow the action through rather than blocking users
	// on infrastructure trouble. A tenant with no row is not a store
	// failure: it is checked against free-tier limits.
	Check(ctx context.Context, tenantID uuid.UUID, action domain.Action) error

	// CheckConversation verifies a conversation has room for more
	// messages under the messages_per_conversation limit.
	CheckConversation(ctx context.Context, tenantID, conversationID uuid.UUID) error

	// LogUsage records one unit of consumption against the ledger.
	// Best effort: failures are logged and swallowed so the operation
	// that already happened is never failed retroactively.
	LogUsage(ctx context.Context, tenantID, userID uuid.UUID, action domain.Action)

	// UsageStats reports current usage and limits across all actions.
	UsageStats(ctx context.Context, tenantID uuid.UUID) (*domain.UsageStats, error)
}

// =============================================================================
// Implementation
// =============================================================================

type guard struct {
	store   Store
	catalog *Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewGuard creates a Guard enforcing the given catalog.
func NewGuard(store Store, catalog *Catalog, logger *slog.Logger) Guard {
	return &guard{
		store:   store,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Check verifies the tenant has allowance left for the action.
func (g *guard) Check(ctx context.Context, tenantID uuid.UUID, action domain.Action) error {
	const op = "quota.check"

	tier, err := g.store.GetTenantPlan(ctx, tenantID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// An unknown tenant is enforced at free-tier limits, never
		// waved through.
		tier = domain.PlanTierFree
	case err != nil:
		g.logger.Warn("quota check failed open: plan lookup", "tenant_id", tenantID, "action", action, "error", err)
		metrics.QuotaCheck(string(action), "fail_open")
		return nil
	}

	used, err := g.usage(ctx, tenantID, action)
	if err != nil {
		g.logger.Warn("quota check failed open: usage count", "tenant_id", tenantID, "action", action, "error", err)
		metrics.QuotaCheck(string(action), "fail_open")
		return nil
	}

	limit := g.catalog.Limit(tier, action)
	if used >= limit {
		g.logger.Info("quota exceeded",
			"tenant_id", tenantID,
			"tier", tier,
			"action", action,
			"used", used,
			"limit", limit,
		)
		metrics.QuotaCheck(string(action), "denied")
		return domain.QuotaExceeded(op, action, used, limit)
	}

	metrics.QuotaCheck(string(action), "allowed")
	return nil
}

// CheckConversation verifies a conversation has room for more messages.
// The count covers the whole conversation regardless of calendar day.
func (g *guard) CheckConversation(ctx context.Context, tenantID, conversationID uuid.UUID) error {
	const op = "quota.check_conversation"

	tier, err := g.store.GetTenantPlan(ctx, tenantID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		tier = domain.PlanTierFree
	case err != nil:
		g.logger.Warn("quota check failed open: plan lookup", "tenant_id", tenantID, "error", err)
		metrics.QuotaCheck(string(domain.ActionMessagesPerConversation), "fail_open")
		return nil
	}

	used, err := g.store.CountMessagesInConversation(ctx, conversationID)
	if err != nil {
		g.logger.Warn("quota check failed open: message count", "conversation_id", conversationID, "error", err)
		metrics.QuotaCheck(string(domain.ActionMessagesPerConversation), "fail_open")
		return nil
	}

	limit := g.catalog.Limit(tier, domain.ActionMessagesPerConversation)
	if used >= limit {
		g.logger.Info("quota exceeded",
			"tenant_id", tenantID,
			"tier", tier,
			"action", domain.ActionMessagesPerConversation,
			"conversation_id", conversationID,
			"used", used,
			"limit", limit,
		)
		metrics.QuotaCheck(string(domain.ActionMessagesPerConversation), "denied")
		return domain.QuotaExceeded(op, domain.ActionMessagesPerConversation, used, limit)
	}

	metrics.QuotaCheck(string(domain.ActionMessagesPerConversation), "allowed")
	return nil
}

// LogUsage records one unit of consumption against the ledger.
func (g *guard) LogUsage(ctx context.Context, tenantID, userID uuid.UUID, action domain.Action) {
	if err := g.store.InsertUsageEvent(ctx, tenantID, userID, action); err != nil {
		g.logger.Error("failed to record usage event",
			"tenant_id", tenantID,
			"user_id", userID,
			"action", action,
			"error", err,
		)
	}
}

// UsageStats reports current usage and limits across all actions.
// Unlike Check, stats surface store errors to the caller: a dashboard
// showing wrong numbers is worse than one showing an error.
func (g *guard) UsageStats(ctx context.Context, tenantID uuid.UUID) (*domain.UsageStats, error) {
	const op = "quota.usage_stats"

	tier, err := g.store.GetTenantPlan(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to look up plan")
	}

	events, err := g.store.CountUsageByActionSince(ctx, tenantID, domain.StartOfDayUTC(g.now()))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to count usage")
	}

	usage := make(map[domain.Action]int64, len(domain.Actions))
	for _, action := range domain.Actions {
		if action.Standing() {
			count, err := g.standingUsage(ctx, tenantID, action)
			if err != nil {
				return nil, domain.Internal(err, op, "Failed to count usage")
			}
			usage[action] = count
			continue
		}
		usage[action] = events[action]
	}
	// Per-conversation counts are meaningless at tenant scope.
	delete(usage, domain.ActionMessagesPerConversation)

	return &domain.UsageStats{
		Plan:   tier,
		Usage:  usage,
		Limits: g.catalog.Limits(tier),
	}, nil
}

// usage returns the observed consumption for a tenant/action pair.
// Standing actions count live rows; rate actions count today's ledger
// events starting from UTC midnight.
func (g *guard) usage(ctx context.Context, tenantID uuid.UUID, action domain.Action) (int64, error) {
	if action.Standing() {
		return g.standingUsage(ctx, tenantID, action)
	}
	return g.store.CountUsageSince(ctx, tenantID, action, domain.StartOfDayUTC(g.now()))
}

func (g *guard) standingUsage(ctx context.Context, tenantID uuid.UUID, action domain.Action) (int64, error) {
	switch action {
	case domain.ActionCustomAgents:
		return g.store.CountActiveAgents(ctx, tenantID)
	case domain.ActionProjects:
		return g.store.CountProjects(ctx, tenantID)
	default:
		return g.store.CountUsageSince(ctx, tenantID, action, domain.StartOfDayUTC(g.now()))
	}
}
