package domain

import (
	"time"

	"github.com/google/uuid"
)

// UsageEvent is one append-only entry in the usage ledger. Events are written
// after the operation's primary side effect succeeds, never before, so failed
// operations are not charged. Events are immutable once written.
type UsageEvent struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Action    Action
	CreatedAt time.Time
}

// StartOfDayUTC returns midnight UTC of the day containing t. The usage
// ledger's daily window opens here; an event at 23:59:59 does not count
// toward the next day's checks.
func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
