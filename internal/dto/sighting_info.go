package dto

import (
	"encoding/json"
	"time"
)

// SightingInfo is the API view of a stored sighting.
type SightingInfo struct {
	ID           int64     `json:"id"`
	MarkerID     int       `json:"markerId"`
	RunID        string    `json:"runId"`
	DetectedAt   time.Time `json:"detectedAt"`
	SnapshotSize int64     `json:"snapshotSize"`
	SnapshotURL  string    `json:"snapshotUrl,omitempty"`
}

// MarshalJSON customizes JSON output for SightingInfo to add split date and time-of-day fields.
func (s SightingInfo) MarshalJSON() ([]byte, error) {
	type Alias SightingInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      s.DetectedAt.Format("02-01-2006"),
		TimeOfDay: s.DetectedAt.Format("15:04:05"),
		Alias:     (Alias)(s),
	})
}
