// Package domain contains core business types and interfaces.
//
// This file defines quota error details and the per-action denial messages
// shown to users when a plan limit is reached.
package domain

import "fmt"

// UpgradeURL is where denied users are pointed to change plans.
const UpgradeURL = "/plans"

// quotaMessage is the human-facing text attached to a quota denial.
type quotaMessage struct {
	Title   string
	Message string
}

// quotaMessages maps actions to their denial text. Unknown actions fall back
// to a generic message.
var quotaMessages = map[Action]quotaMessage{
	ActionAPICallsPerDay: {
		Title:   "Daily API call limit reached",
		Message: "You have reached your API call limit for today. Come back tomorrow or upgrade your plan to keep going.",
	},
	ActionConversations: {
		Title:   "Conversation limit reached",
		Message: "You have reached your limit of new conversations for today. Come back tomorrow or upgrade your plan to start more conversations.",
	},
	ActionCustomAgents: {
		Title:   "Agent limit reached",
		Message: "You have reached your custom agent limit. Delete an existing agent or upgrade your plan to create more.",
	},
	ActionProjects: {
		Title:   "Project limit reached",
		Message: "You have reached your project limit. Delete an existing project or upgrade your plan to create more.",
	},
	ActionSwipes: {
		Title:   "Swipe limit reached",
		Message: "You have reached your swipe limit for today. Come back tomorrow or upgrade your plan to save more swipes.",
	},
	ActionMessagesPerConversation: {
		Title:   "Conversation is full",
		Message: "This conversation has reached its message limit. Start a new conversation or upgrade your plan.",
	},
}

var genericQuotaMessage = quotaMessage{
	Title:   "Plan limit reached",
	Message: "You have reached a limit of your plan. Upgrade to keep using all features.",
}

// QuotaError is the structured detail carried by a quota denial. Handlers
// surface the title, the action that was denied, and the upgrade path.
type QuotaError struct {
	Code       string // Always EQUOTA
	Op         string // Operation that was denied
	Message    string // Human-readable denial text
	Action     Action // Action that hit its limit
	Title      string // Short human-facing title
	UpgradeURL string // Where to go to lift the limit
	Used       int64  // Usage observed at check time
	Limit      int64  // Limit that was enforced
}

func (e *QuotaError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the denial as a plain *Error so ErrorCode, ErrorMessage,
// and errors.As resolve it like any other domain error.
func (e *QuotaError) Unwrap() error {
	return &Error{Code: e.Code, Op: e.Op, Message: e.Message}
}

// QuotaExceeded creates a quota denial error for the given action, carrying
// the per-action message catalog entry.
func QuotaExceeded(op string, action Action, used, limit int64) *QuotaError {
	msg, ok := quotaMessages[action]
	if !ok {
		msg = genericQuotaMessage
	}
	return &QuotaError{
		Code:       EQUOTA,
		Op:         op,
		Message:    msg.Message,
		Action:     action,
		Title:      msg.Title,
		UpgradeURL: UpgradeURL,
		Used:       used,
		Limit:      limit,
	}
}

// UsageStats aggregates a tenant's current usage against its plan limits,
// for quota-dashboard display. Limits come from the same catalog the guard
// enforces with, so displayed and enforced numbers never drift.
type UsageStats struct {
	Plan   PlanTier         `json:"plan"`
	Usage  map[Action]int64 `json:"usage"`
	Limits map[Action]int64 `json:"limits"`
}
