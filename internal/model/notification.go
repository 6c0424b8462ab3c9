package model

import "time"

// NotificationType classifies where a notification came from.
type NotificationType string

const (
	NotifyPickupSubmitted NotificationType = "pickup_submitted"
	NotifyPickupStatus    NotificationType = "pickup_status"
	NotifyPickupAssigned  NotificationType = "pickup_assigned"
	NotifyAdminSummary    NotificationType = "admin_summary"
	NotifyAdminMessage    NotificationType = "admin_message"
	NotifyRecycling       NotificationType = "recycling"
)

// Notification mirrors the `notifications` table.  Only ReadAt changes
// after insert.
type Notification struct {
	ID        uint64
	UserID    string
	Type      NotificationType
	Title     string
	Message   string
	CreatedAt time.Time
	ReadAt    *time.Time
}
