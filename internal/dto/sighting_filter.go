// SightingFilters describe user-provided filters to narrow the sighting list.
package dto

import "time"

type SightingFilters struct {
	MarkerID *int
	RunID    string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}
