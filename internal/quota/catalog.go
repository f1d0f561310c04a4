// Package quota enforces per-tenant usage limits.
//
// The catalog maps plan tiers to numeric limits per action. The guard reads
// current usage from the database and compares it against the catalog before
// a governed operation is allowed to proceed.
package quota

import (
	"github.com/kairoshq/kairos/internal/domain"
)

// defaultActionLimit applies when an action is missing from a tier's table.
// New actions ship with a conservative allowance until the catalog learns
// about them.
const defaultActionLimit = 100

// enterpriseLimit is effectively unlimited for every action.
const enterpriseLimit = 999999

// freeLimits are the baseline allowances for the free tier.
var freeLimits = map[domain.Action]int64{
	domain.ActionAPICallsPerDay:          100,
	domain.ActionConversations:           10,
	domain.ActionCustomAgents:            2,
	domain.ActionProjects:                5,
	domain.ActionSwipes:                  50,
	domain.ActionMessagesPerConversation: 50,
}

// proMultiplier scales every free-tier limit for the pro tier.
const proMultiplier = 100

// Catalog resolves the numeric limit for a tier/action pair.
type Catalog struct {
	limits map[domain.PlanTier]map[domain.Action]int64
}

// NewCatalog builds a catalog from the built-in defaults, applying any
// operator overrides on top. Overrides are keyed by tier and action and come
// from QUOTA_<TIER>_<ACTION> environment variables.
func NewCatalog(overrides map[domain.PlanTier]map[domain.Action]int) *Catalog {
	limits := map[domain.PlanTier]map[domain.Action]int64{
		domain.PlanTierFree:       make(map[domain.Action]int64, len(freeLimits)),
		domain.PlanTierPro:        make(map[domain.Action]int64, len(freeLimits)),
		domain.PlanTierEnterprise: make(map[domain.Action]int64, len(freeLimits)),
	}
	for action, limit := range freeLimits {
		limits[domain.PlanTierFree][action] = limit
		limits[domain.PlanTierPro][action] = limit * proMultiplier
		limits[domain.PlanTierEnterprise][action] = enterpriseLimit
	}

	for tier, actions := range overrides {
		tierLimits, ok := limits[tier]
		if !ok {
			continue
		}
		for action, limit := range actions {
			tierLimits[action] = int64(limit)
		}
	}

	return &Catalog{limits: limits}
}

// Limit returns the allowance for a tier/action pair. Unknown tiers fall
// back to the free tier; unknown actions fall back to defaultActionLimit.
func (c *Catalog) Limit(tier domain.PlanTier, action domain.Action) int64 {
	tierLimits, ok := c.limits[tier]
	if !ok {
		tierLimits = c.limits[domain.PlanTierFree]
	}
	if limit, ok := tierLimits[action]; ok {
		return limit
	}
	return defaultActionLimit
}

// Limits returns a copy of the full limit table for a tier. Unknown tiers
// fall back to the free tier.
func (c *Catalog) Limits(tier domain.PlanTier) map[domain.Action]int64 {
	tierLimits, ok := c.limits[tier]
	if !ok {
		tierLimits = c.limits[domain.PlanTierFree]
	}
	out := make(map[domain.Action]int64, len(tierLimits))
	for action, limit := range tierLimits {
		out[action] = limit
	}
	return out
}
