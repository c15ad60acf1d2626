package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"trafficwatch/internal/dashboard"
)

// Terminal dashboard client: subscribes to the live stream and prints the
// cumulative counts and traffic status. Optionally submits a video upload
// before subscribing.
func main() {
	wsURL := flag.String("ws", "ws://localhost:5050/api/view", "WebSocket stream URL")
	uploadURL := flag.String("upload-url", "http://localhost:5050/upload", "Upload endpoint")
	uploadFile := flag.String("upload", "", "Video file to upload before watching")
	interval := flag.Duration("interval", 2*time.Second, "Print interval")
	flag.Parse()

	state := dashboard.NewState()

	if *uploadFile != "" {
		uploader := dashboard.NewUploader(*uploadURL, state)
		uploader.SelectFile(*uploadFile)
		result := uploader.Submit()
		switch result.Outcome {
		case dashboard.UploadAccepted:
			fmt.Printf("Uploaded %s\n", *uploadFile)
		case dashboard.UploadHTTPError:
			log.Fatalf("Upload rejected with status %d", result.StatusCode)
		case dashboard.UploadTransportError:
			log.Fatalf("Upload failed: %v", result.Err)
		}
	}

	transport := dashboard.NewWSTransport(*wsURL, func(connState dashboard.ConnState, attempt int) {
		switch connState {
		case dashboard.ConnRetrying:
			fmt.Printf("Reconnecting (attempt %d)...\n", attempt)
		case dashboard.ConnConnected:
			fmt.Println("Connected")
		case dashboard.ConnFailed:
			fmt.Println("Connection failed, giving up")
		}
	})

	ingestor := dashboard.NewIngestor(state, transport)
	if err := ingestor.Start(); err != nil {
		log.Fatalf("Failed to start stream: %v", err)
	}
	defer ingestor.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			fmt.Println("Bye")
			return
		case <-ticker.C:
			printState(state)
		}
	}
}

func printState(state *dashboard.State) {
	counts := state.Counts()
	status := state.Status()

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	fmt.Printf("[%s] %s (total %d)  ", status.Level, status.Message, status.Total)
	for _, class := range classes {
		fmt.Printf("%s=%d ", class, counts[class])
	}
	if frame := state.Frame(); frame != "" {
		fmt.Printf(" frame=%d bytes", len(frame))
	}
	fmt.Println()
}
