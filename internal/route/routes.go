package route

import (
	"net/http"

	"agrovision/internal/config"
	"agrovision/internal/dto"
	"agrovision/internal/handler"
	"agrovision/internal/logger"
	"agrovision/internal/middleware"
	"agrovision/internal/repository"
	"agrovision/internal/service/preview"
)

// storageDisabled answers sighting queries when no store is configured.
func storageDisabled(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Persistence is disabled", http.StatusServiceUnavailable)
}

// SetupRoutes registers the preview websocket, sighting API, log and health
// endpoints, and wraps the mux with the token middleware. repo may be nil.
func SetupRoutes(cfg *config.Config, log *logger.Logger, hub *preview.Hub,
	repo repository.SightingRepository, health func() dto.Health) http.Handler {
	mux := http.NewServeMux()

	// Live preview
	mux.HandleFunc("/api/preview", handler.PreviewWebsocketHandler(hub, log))

	// Sightings
	if repo != nil {
		mux.HandleFunc("/api/sightings", handler.GetSightingsHandler(repo, log))
		mux.HandleFunc("/api/sightings/snapshot", handler.SightingSnapshotHandler(repo, log))
	} else {
		mux.HandleFunc("/api/sightings", storageDisabled)
		mux.HandleFunc("/api/sightings/snapshot", storageDisabled)
	}

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowLogsHandler(cfg.LogDirectory, logger.InfoFile))
	mux.HandleFunc("/logs/warning", handler.ShowLogsHandler(cfg.LogDirectory, logger.WarningFile))
	mux.HandleFunc("/logs/error", handler.ShowLogsHandler(cfg.LogDirectory, logger.ErrorFile))

	mux.HandleFunc("/logs/info/clear", handler.ClearLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning/clear", handler.ClearLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error/clear", handler.ClearLogsHandler(log, logger.ErrorFile))

	mux.HandleFunc("/healthz", handler.HealthHandler(health))

	// Apply middleware
	return middleware.AuthMiddleware(cfg.PreviewToken, mux)
}
