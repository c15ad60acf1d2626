package services

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/database"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"
	"trafficwatch/internal/services/analyzer"
	"trafficwatch/internal/services/websocket"
)

// Manager connects the analyzer to the viewer hub and the snapshot store.
// Every analyzed frame is broadcast; counts are persisted on a period so the
// history survives restarts without flooding the database.
type Manager struct {
	analyzer *analyzer.Analyzer
	hub      *websocket.HubService
	db       *database.Database
	logger   *logger.Logger

	snapshotPeriod time.Duration

	mu          sync.Mutex
	lastPersist time.Time
	lastStatus  models.TrafficStatus
}

func NewManager(an *analyzer.Analyzer, hub *websocket.HubService, db *database.Database, cfg *config.Config, logger *logger.Logger) *Manager {
	return &Manager{
		analyzer:       an,
		hub:            hub,
		db:             db,
		logger:         logger,
		snapshotPeriod: time.Duration(cfg.SnapshotPeriod) * time.Second,
		lastStatus:     analyzer.Classify(models.NewBaselineCounts()),
	}
}

// Run drives the analyzer until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	return m.analyzer.Run(ctx, m.HandleFrame)
}

// HandleFrame broadcasts one analyzed frame to every viewer and persists a
// snapshot when the period has elapsed.
func (m *Manager) HandleFrame(jpeg []byte, counts map[string]int, status models.TrafficStatus) {
	ev := models.VideoEvent{
		Image:  base64.StdEncoding.EncodeToString(jpeg),
		Counts: counts,
		Status: &status,
	}
	m.hub.BroadcastEvent(ev)

	m.mu.Lock()
	m.lastStatus = status
	due := time.Since(m.lastPersist) >= m.snapshotPeriod
	if due {
		m.lastPersist = time.Now()
	}
	m.mu.Unlock()

	if !due {
		return
	}

	snap := &models.Snapshot{
		Source:    m.analyzer.Source(),
		Counts:    counts,
		Level:     status.Level,
		Total:     status.Total,
		Timestamp: time.Now(),
	}
	if _, err := m.db.InsertSnapshot(snap); err != nil {
		m.logger.Error("Failed to persist snapshot: %v", err)
	}
}

// HandleUpload records the upload and switches the analyzer to the new file.
func (m *Manager) HandleUpload(up *models.Upload) {
	if _, err := m.db.InsertUpload(up); err != nil {
		m.logger.Error("Failed to record upload: %v", err)
	}
	m.analyzer.SwitchSource(up.FilePath)
}

// Stats reports the current cumulative counts and status.
func (m *Manager) Stats() (map[string]int, models.TrafficStatus) {
	counts := m.analyzer.Tracker().Counts()

	m.mu.Lock()
	status := m.lastStatus
	m.mu.Unlock()

	return counts, status
}

// Hub exposes the viewer hub for the websocket handler.
func (m *Manager) Hub() *websocket.HubService {
	return m.hub
}

// Database exposes the snapshot store for the history handlers.
func (m *Manager) Database() *database.Database {
	return m.db
}

// ClientCount returns the number of connected viewers.
func (m *Manager) ClientCount() int {
	return m.hub.ClientCount()
}
