package model

// LeaderboardEntry is one ranked resident.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	LoginID  string `json:"login_id"`
	FullName string `json:"full_name"`
	Points   int64  `json:"points"`
}

// Overview aggregates row counts for the admin dashboard.
type Overview struct {
	Users          int64
	PickupRequests int64
	RecyclingLogs  int64
	Notifications  int64
}

// CollectorMetrics summarises work in a collector's zone.
type CollectorMetrics struct {
	Completed int64 // completed by this collector
	Failed    int64 // failed by this collector
	Open      int64 // non-terminal requests in the collector's zone
}
