package database

import (
	"database/sql"
	"fmt"
	"sync"

	"trafficwatch/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database handles SQLite operations for snapshots and uploads.
type Database struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates and initializes a new SQLite database.
func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	database := &Database{db: db}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return database, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		car INTEGER NOT NULL DEFAULT 0,
		bus INTEGER NOT NULL DEFAULT 0,
		truck INTEGER NOT NULL DEFAULT 0,
		motorcycle INTEGER NOT NULL DEFAULT 0,
		bicycle INTEGER NOT NULL DEFAULT 0,
		person INTEGER NOT NULL DEFAULT 0,
		level TEXT NOT NULL,
		total INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		filepath TEXT NOT NULL,
		filesize INTEGER DEFAULT 0,
		timestamp DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp ON snapshots(timestamp);
	CREATE INDEX IF NOT EXISTS idx_snapshots_level ON snapshots(level);
	CREATE INDEX IF NOT EXISTS idx_uploads_timestamp ON uploads(timestamp);
	`

	_, err := d.db.Exec(schema)
	return err
}

// InsertSnapshot adds a new snapshot record.
func (d *Database) InsertSnapshot(snap *models.Snapshot) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.db.Exec(`
		INSERT INTO snapshots (source, car, bus, truck, motorcycle, bicycle, person, level, total, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.Source,
		snap.Counts[models.ClassCar],
		snap.Counts[models.ClassBus],
		snap.Counts[models.ClassTruck],
		snap.Counts[models.ClassMotorcycle],
		snap.Counts[models.ClassBicycle],
		snap.Counts[models.ClassPerson],
		snap.Level, snap.Total, snap.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return result.LastInsertId()
}

// GetSnapshots retrieves snapshots based on filter criteria, newest first.
func (d *Database) GetSnapshots(filter *models.SnapshotFilter) ([]models.Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	query := `
		SELECT id, source, car, bus, truck, motorcycle, bicycle, person, level, total, timestamp
		FROM snapshots
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}

	if filter.Level != "" {
		query += " AND level = ?"
		args = append(args, filter.Level)
	}

	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}

	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY timestamp DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, rows.Err()
}

// GetLatestSnapshot returns the most recent snapshot, or nil when none exist.
func (d *Database) GetLatestSnapshot() (*models.Snapshot, error) {
	snapshots, err := d.GetSnapshots(&models.SnapshotFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

func scanSnapshot(rows *sql.Rows) (models.Snapshot, error) {
	var snap models.Snapshot
	var car, bus, truck, motorcycle, bicycle, person int

	err := rows.Scan(&snap.ID, &snap.Source, &car, &bus, &truck, &motorcycle,
		&bicycle, &person, &snap.Level, &snap.Total, &snap.Timestamp)
	if err != nil {
		return snap, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	snap.Counts = map[string]int{
		models.ClassCar:        car,
		models.ClassBus:        bus,
		models.ClassTruck:      truck,
		models.ClassMotorcycle: motorcycle,
		models.ClassBicycle:    bicycle,
		models.ClassPerson:     person,
	}
	return snap, nil
}

// DeleteAllSnapshots clears the snapshot history.
func (d *Database) DeleteAllSnapshots() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec("DELETE FROM snapshots"); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// InsertUpload records an accepted video upload.
func (d *Database) InsertUpload(up *models.Upload) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	result, err := d.db.Exec(`
		INSERT INTO uploads (filename, filepath, filesize, timestamp)
		VALUES (?, ?, ?, ?)
	`, up.Filename, up.FilePath, up.FileSize, up.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload: %w", err)
	}

	return result.LastInsertId()
}

// GetUploads returns the most recent uploads, newest first.
func (d *Database) GetUploads(limit int) ([]models.Upload, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	query := "SELECT id, filename, filepath, filesize, timestamp FROM uploads ORDER BY timestamp DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var up models.Upload
		if err := rows.Scan(&up.ID, &up.Filename, &up.FilePath, &up.FileSize, &up.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		uploads = append(uploads, up)
	}

	return uploads, rows.Err()
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
