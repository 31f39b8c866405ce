package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeProjectCreated    ActivityType = "project_created"
	TypeProjectUpdated    ActivityType = "project_updated"
	TypeProjectDeleted    ActivityType = "project_deleted"
	TypePageCreated       ActivityType = "page_created"
	TypePageUpdated       ActivityType = "page_updated"
	TypePageDeleted       ActivityType = "page_deleted"
	TypeSiteGenerated     ActivityType = "site_generated"
	TypeComponentEnhanced ActivityType = "component_enhanced"
)

// ActivityEntry is one line of a project's version history.
type ActivityEntry struct {
	ID           int64        `json:"id"`
	OwnerID      string       `json:"owner_id"`
	ProjectID    string       `json:"project_id"`
	PageID       *string      `json:"page_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
	Revision     int64        `json:"revision"`
}
