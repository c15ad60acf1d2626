package routes

import (
	"net/http"

	"trafficwatch/internal/config"
	"trafficwatch/internal/handlers"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/middleware"
	"trafficwatch/internal/services"
)

// SetupRoutes registers HTTP routes, API endpoints and wraps the mux with
// the CORS middleware.
func SetupRoutes(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Live stream and upload
	mux.HandleFunc("/api/view", handlers.ViewWebsocketHandler(manager, logger))
	mux.HandleFunc("/upload", handlers.UploadVideoHandler(manager, cfg, logger))

	// Stats and history
	mux.HandleFunc("/api/stats", handlers.StatsHandler(manager))
	mux.HandleFunc("/api/history", handlers.HistoryHandler(manager, logger))
	mux.HandleFunc("/api/uploads", handlers.UploadsHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowInfoLogsHandler(cfg))
	mux.HandleFunc("/logs/warning", handlers.ShowWarningLogsHandler(cfg))
	mux.HandleFunc("/logs/error", handlers.ShowErrorLogsHandler(cfg))

	mux.HandleFunc("/logs/info/clear", handlers.ClearInfoLogsHandler(logger))
	mux.HandleFunc("/logs/warning/clear", handlers.ClearWarningLogsHandler(logger))
	mux.HandleFunc("/logs/error/clear", handlers.ClearErrorLogsHandler(logger))

	// Health
	mux.HandleFunc("/", handlers.HealthHandler(manager))

	return middleware.CORSMiddleware(cfg.CORSOrigins)(mux)
}
