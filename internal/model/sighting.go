package model

import "time"

// Sighting is a persisted confirmation of a marker.
type Sighting struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	MarkerID     int       `json:"marker_id"`
	DetectedAt   time.Time `json:"detected_at"`
	Snapshot     []byte    `json:"-"`
	SnapshotSize int64     `json:"snapshot_size"`
}
