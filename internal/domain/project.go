package domain

import (
	"time"

	"github.com/google/uuid"
)

// Project is a tenant-owned workspace. Projects are a standing-resource
// quota: the live row count is what the guard compares against the limit.
type Project struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Swipe is a saved piece of reference content (copy, post, ad) a tenant
// collects for reuse.
type Swipe struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	UserID       uuid.UUID
	Title        string
	Content      string
	Category     string
	Network      string // Social network the content came from, if any
	ReferenceURL string
	CreatedAt    time.Time
}
