// Package queue defines message payloads exchanged over the message broker
// and the publisher that sends them.
package queue

import "time"

// StatusChangedQueue is the queue pickup transitions are published to.
const StatusChangedQueue = "pickup.status_changed"

// PickupStatusChangedEvent is published after a pickup transition commits.
// It carries enough for downstream consumers (route planning, analytics) to
// act without reading the primary database.
type PickupStatusChangedEvent struct {
	PickupID      uint64    `json:"pickup_id"`
	ResidentID    string    `json:"resident_id"`
	ZoneID        int64     `json:"zone_id"`
	ZoneName      string    `json:"zone_name"`
	ActorID       string    `json:"actor_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	CollectorID   string    `json:"collector_id,omitempty"`
	PointsAwarded int64     `json:"points_awarded"`
	Comment       string    `json:"comment,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}
