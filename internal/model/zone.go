package model

import "time"

// Zone is a collection area.  Residents and collectors reference it; a
// pickup request keeps its own copy of the zone name taken at creation.
type Zone struct {
	ID           int64
	Name         string
	IsActive     bool
	ServiceHours *string // free-form, e.g. "Mon-Fri 08:00-18:00"
	CreatedAt    time.Time
}
