package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/services"
)

const maxUploadSize = 512 << 20

// UploadVideoHandler accepts a video file in the multipart field "video",
// stores it in the upload directory and switches the analyzer to it. The
// cumulative counts reset with the source switch.
func UploadVideoHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeUploadError(w, "No file uploaded")
			return
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			writeUploadError(w, "No file uploaded")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			writeUploadError(w, "No file selected")
			return
		}

		if err := os.MkdirAll(cfg.UploadDirectory, 0755); err != nil {
			logger.Error("Failed to create upload directory: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		// Strip any path components the client sent along.
		filename := filepath.Base(header.Filename)
		destPath := filepath.Join(cfg.UploadDirectory, filename)

		dest, err := os.Create(destPath)
		if err != nil {
			logger.Error("Failed to create upload file: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		written, err := io.Copy(dest, file)
		dest.Close()
		if err != nil {
			logger.Error("Failed to store upload: %v", err)
			os.Remove(destPath)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		manager.HandleUpload(&models.Upload{
			Filename:  filename,
			FilePath:  destPath,
			FileSize:  written,
			Timestamp: time.Now(),
		})

		logger.Info("Video uploaded: %s (%d bytes)", filename, written)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Upload successful"})
	}
}

func writeUploadError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
