package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	VideoSource     string
	UploadDirectory string
	ModelPath       string
	ModelConfigPath string
	FrameIntervalMs int // Pause between analyzed frames
	SnapshotPeriod  int // Seconds between persisted count snapshots
	DatabasePath    string
	LogDirectory    string
	CORSOrigins     []string
}

func Load() *Config {
	// .env is optional - system environment wins when the file is absent.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Port:            getEnvAsInt("PORT", 5050),
		VideoSource:     getEnv("VIDEO_SOURCE", "traffic_video.mp4"),
		UploadDirectory: getEnv("UPLOAD_DIR", filepath.Join(".", "uploads")),
		ModelPath:       getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ModelConfigPath: getEnv("MODEL_CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		FrameIntervalMs: getEnvAsInt("FRAME_INTERVAL_MS", 20),
		SnapshotPeriod:  getEnvAsInt("SNAPSHOT_PERIOD", 30),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "trafficwatch.db")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
		CORSOrigins:     getEnvAsList("CORS_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
