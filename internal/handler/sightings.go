package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"agrovision/internal/dto"
	"agrovision/internal/logger"
	"agrovision/internal/repository"
)

const (
	defaultPageSize = 24
	maxPageSize     = 500
)

// GetSightingsHandler returns a filtered, paginated list of stored sightings,
// newest first. Query parameters: marker, run, since, until, page, limit.
func GetSightingsHandler(repo repository.SightingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)
		if limit > maxPageSize {
			limit = maxPageSize
		}

		since, err := parseTime(q.Get("since"))
		if err != nil {
			http.Error(w, "Invalid since", http.StatusBadRequest)
			return
		}
		until, err := parseTime(q.Get("until"))
		if err != nil {
			http.Error(w, "Invalid until", http.StatusBadRequest)
			return
		}

		filter := &dto.SightingFilters{
			RunID:  q.Get("run"),
			Since:  since,
			Until:  until,
			Limit:  limit,
			Offset: (page - 1) * limit,
		}
		if v := q.Get("marker"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				http.Error(w, "Invalid marker id", http.StatusBadRequest)
				return
			}
			filter.MarkerID = &id
		}

		sightings, err := repo.GetAll(r.Context(), filter)
		if err != nil {
			logger.Error("Error querying sightings from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := repo.GetTotalCount(r.Context(), filter)
		if err != nil {
			logger.Error("Error counting sightings: %v", err)
			totalCount = len(sightings)
		}

		infos := make([]dto.SightingInfo, 0, len(sightings))
		for _, s := range sightings {
			info := dto.SightingInfo{
				ID:           s.ID,
				MarkerID:     s.MarkerID,
				RunID:        s.RunID,
				DetectedAt:   s.DetectedAt,
				SnapshotSize: s.SnapshotSize,
			}
			if s.SnapshotSize > 0 {
				info.SnapshotURL = "/api/sightings/snapshot?id=" + strconv.FormatInt(s.ID, 10)
			}
			infos = append(infos, info)
		}

		data := dto.SightingsData{
			Sightings:   infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// SightingSnapshotHandler serves the JPEG stored with a sighting.
func SightingSnapshotHandler(repo repository.SightingRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Sighting id is required", http.StatusBadRequest)
			return
		}

		sighting, err := repo.GetByID(r.Context(), id)
		if err != nil {
			logger.Error("Error loading sighting %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if sighting == nil || len(sighting.Snapshot) == 0 {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Content-Length", strconv.Itoa(len(sighting.Snapshot)))
		w.Header().Set("Cache-Control", "private, max-age=86400")
		w.Write(sighting.Snapshot)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseTime accepts RFC 3339 timestamps or plain dates ("2006-01-02", UTC).
// An empty value is the zero time.
func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", v)
}
