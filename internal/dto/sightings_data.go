// SightingsData is a paginated response payload for the sightings list.
package dto

type SightingsData struct {
	Sightings   []SightingInfo `json:"sightings"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
