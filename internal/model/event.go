package model

import "time"

// Event is an immutable (for this core) scheduled event that seats are
// sold against. Catalog management (creating/editing events) is an
// external collaborator; this core only reads events to decide whether
// they are bookable.
//
// Fields:
//
//	ID             – primary key identifier.
//	Name           – display name of the event.
//	TotalCapacity  – total seats configured for the event.
//	PublishStatus  – DRAFT, PUBLISHED or CLOSED. Only PUBLISHED events
//	                 are bookable.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Event struct {
	ID            uint64
	Name          string
	TotalCapacity uint32
	PublishStatus string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Publish status values for events.events.publish_status.
const (
	EventStatusDraft     = "DRAFT"
	EventStatusPublished = "PUBLISHED"
	EventStatusClosed    = "CLOSED"
)

// Bookable reports whether the event currently accepts holds.
func (e Event) Bookable() bool {
	return e.PublishStatus == EventStatusPublished
}
