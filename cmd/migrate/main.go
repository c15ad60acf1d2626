package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"trafficwatch/internal/database"
	"trafficwatch/internal/models"
)

// Maintenance tool for the snapshot store: inspect recent history or clear it.
func main() {
	dbPath := flag.String("db", "trafficwatch.db", "Database path")
	limit := flag.Int("limit", 20, "Number of snapshots to show")
	level := flag.String("level", "", "Filter by traffic level (LOW, MEDIUM, HIGH)")
	clear := flag.Bool("clear", false, "Delete all snapshots instead of listing them")
	flag.Parse()

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil && filepath.Dir(*dbPath) != "." {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := database.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if *clear {
		if err := db.DeleteAllSnapshots(); err != nil {
			log.Fatalf("Failed to clear snapshots: %v", err)
		}
		fmt.Println("Snapshot history cleared")
		return
	}

	snapshots, err := db.GetSnapshots(&models.SnapshotFilter{Level: *level, Limit: *limit})
	if err != nil {
		log.Fatalf("Failed to query snapshots: %v", err)
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return
	}

	for _, snap := range snapshots {
		fmt.Printf("%s  %-6s total=%-4d cars=%-3d buses=%-3d trucks=%-3d source=%s\n",
			snap.Timestamp.Format("2006-01-02 15:04:05"),
			snap.Level, snap.Total,
			snap.Counts[models.ClassCar],
			snap.Counts[models.ClassBus],
			snap.Counts[models.ClassTruck],
			snap.Source)
	}

	uploads, err := db.GetUploads(5)
	if err == nil && len(uploads) > 0 {
		fmt.Printf("\nRecent uploads:\n")
		for _, up := range uploads {
			fmt.Printf("   %s  %s (%d bytes)\n",
				up.Timestamp.Format("2006-01-02 15:04:05"), up.Filename, up.FileSize)
		}
	}
}
