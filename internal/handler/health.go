package handler

import (
	"encoding/json"
	"net/http"

	"agrovision/internal/dto"
)

// HealthHandler reports liveness together with dispatch counters.
func HealthHandler(status func() dto.Health) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(status())
	}
}
