package models

import "time"

// Snapshot is a persisted point-in-time record of the cumulative counts
// and the status they produced.
type Snapshot struct {
	ID        int64          `json:"id"`
	Source    string         `json:"source"`
	Counts    map[string]int `json:"counts"`
	Level     string         `json:"level"`
	Total     int            `json:"total"`
	Timestamp time.Time      `json:"timestamp"`
}

// SnapshotFilter contains filtering options for querying snapshots.
type SnapshotFilter struct {
	Source    string
	Level     string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}

// Upload records a video file accepted through the upload endpoint.
type Upload struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
	Timestamp time.Time `json:"timestamp"`
}
