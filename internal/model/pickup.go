package model

import (
	"fmt"
	"time"
)

// PickupStatus is the state of a pickup request.
type PickupStatus string

const (
	StatusPending    PickupStatus = "PENDING"
	StatusAccepted   PickupStatus = "ACCEPTED"
	StatusInProgress PickupStatus = "IN_PROGRESS"
	StatusCompleted  PickupStatus = "COMPLETED"
	StatusFailed     PickupStatus = "FAILED"
	StatusCancelled  PickupStatus = "CANCELLED"
)

// transitions is the single legal-transition table.  Terminal states have
// no entry.
var transitions = map[PickupStatus][]PickupStatus{
	StatusPending:    {StatusAccepted, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusFailed},
}

// ParsePickupStatus converts a stored status string.
func ParsePickupStatus(s string) (PickupStatus, error) {
	st := PickupStatus(s)
	switch st {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusFailed, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown pickup status %q", s)
}

// Terminal reports whether no further transitions are accepted.
func (s PickupStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo reports whether s -> next is a legal edge.
func (s PickupStatus) CanTransitionTo(next PickupStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// NeedsReason reports whether moving into s requires a comment.
func (s PickupStatus) NeedsReason() bool {
	return s == StatusFailed || s == StatusCancelled
}

// PickupRequest mirrors the `pickup_requests` table.  ZoneID and ZoneName
// are copied from the resident when the request is created and are not
// updated by later zone renames.
type PickupRequest struct {
	ID            uint64
	ResidentID    string
	ZoneID        int64
	ZoneName      string
	RequestedAt   time.Time
	Status        PickupStatus
	CollectorID   *string
	PointsAwarded int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PickupStatusUpdate is one append-only row of the status ledger.  ActorID
// is nil only when the acting account was deleted later.
type PickupStatusUpdate struct {
	ID          uint64
	PickupID    uint64
	ActorID     *string
	NewStatus   PickupStatus
	Comment     *string
	EvidenceRef *string
	CreatedAt   time.Time
}
