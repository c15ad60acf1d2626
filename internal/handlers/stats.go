package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/services"
)

// HealthHandler reports server liveness and the number of connected viewers.
func HealthHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"viewers": manager.ClientCount(),
		})
	}
}

// StatsHandler returns the current cumulative counts and traffic status.
func StatsHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, status := manager.Stats()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"counts": counts,
			"status": status,
		})
	}
}

// HistoryHandler returns persisted count snapshots, newest first. Supports
// source, level, start, end, limit and offset query parameters.
func HistoryHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := &models.SnapshotFilter{
			Source: r.URL.Query().Get("source"),
			Level:  r.URL.Query().Get("level"),
			Limit:  queryInt(r, "limit", 100),
			Offset: queryInt(r, "offset", 0),
		}

		if start, ok := queryTime(r, "start"); ok {
			filter.StartDate = start
		}
		if end, ok := queryTime(r, "end"); ok {
			filter.EndDate = end
		}

		snapshots, err := manager.Database().GetSnapshots(filter)
		if err != nil {
			logger.Error("Failed to query snapshots: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if snapshots == nil {
			snapshots = []models.Snapshot{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshots)
	}
}

// UploadsHandler lists recorded video uploads, newest first.
func UploadsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploads, err := manager.Database().GetUploads(queryInt(r, "limit", 50))
		if err != nil {
			logger.Error("Failed to query uploads: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if uploads == nil {
			uploads = []models.Upload{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(uploads)
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func queryTime(r *http.Request, key string) (time.Time, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
