// Package domain contains core business types and interfaces.
//
// This file defines plan tiers and the quota action vocabulary. The numeric
// limits themselves live in the quota package's catalog so enforcement and
// display read from a single source.
package domain

// PlanTier represents the pricing tier assigned to a tenant.
type PlanTier string

const (
	PlanTierFree       PlanTier = "free"
	PlanTierPro        PlanTier = "pro"
	PlanTierEnterprise PlanTier = "enterprise"
)

// Valid checks if the plan tier is one of the known tiers.
func (t PlanTier) Valid() bool {
	switch t {
	case PlanTierFree, PlanTierPro, PlanTierEnterprise:
		return true
	default:
		return false
	}
}

// Action identifies a quota-counted operation category.
type Action string

const (
	ActionAPICallsPerDay          Action = "api_calls_per_day"
	ActionConversations           Action = "conversations"
	ActionCustomAgents            Action = "custom_ais"
	ActionProjects                Action = "projects"
	ActionSwipes                  Action = "swipes"
	ActionMessagesPerConversation Action = "messages_per_conversation"
)

// Actions lists every known quota action.
var Actions = []Action{
	ActionAPICallsPerDay,
	ActionConversations,
	ActionCustomAgents,
	ActionProjects,
	ActionSwipes,
	ActionMessagesPerConversation,
}

// Standing reports whether the action is a standing-resource quota, measured
// by a live row count, as opposed to a rate quota measured by today's usage
// events. custom_ais counts active agents; projects counts live projects.
func (a Action) Standing() bool {
	switch a {
	case ActionCustomAgents, ActionProjects:
		return true
	default:
		return false
	}
}
