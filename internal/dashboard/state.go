package dashboard

import (
	"sync"

	"trafficwatch/internal/models"
)

// framePrefix tags the raw base64 payload as a displayable JPEG.
const framePrefix = "data:image/jpeg;base64,"

// Upload status messages shown to the user.
const (
	StatusIdle          = ""
	StatusUploading     = "Uploading video..."
	StatusUploadSuccess = "Upload successful"
	StatusUploadFailed  = "Upload failed"
)

// State holds everything the dashboard view renders. The stream ingestor is
// the only writer of frame, counts and status; the uploader is the only
// writer of uploadStatus. Readers may call the accessors from any goroutine.
type State struct {
	mu           sync.RWMutex
	frame        string
	counts       map[string]int
	status       models.TrafficStatus
	uploadStatus string
}

// NewState returns a State with the all-zero baseline counts and the
// default "system ready" status.
func NewState() *State {
	return &State{
		counts: models.NewBaselineCounts(),
		status: models.TrafficStatus{
			Level:   models.LevelLow,
			Message: "System ready",
		},
	}
}

// ApplyEvent reconciles one ingested event into the state.
//
// Counts are merged against the fixed baseline, not the previous snapshot:
// keys the event omits fall back to zero. Status is sticky - it is replaced
// only when the event carries a status with a non-empty level. The frame is
// replaced wholesale on every event, with no validation of the payload.
func (s *State) ApplyEvent(ev models.VideoEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = framePrefix + ev.Image

	merged := models.NewBaselineCounts()
	for class, n := range ev.Counts {
		if _, known := merged[class]; known {
			merged[class] = n
		}
	}
	s.counts = merged

	if ev.Status != nil && ev.Status.Level != "" {
		s.status = models.TrafficStatus{
			Level:   ev.Status.Level,
			Message: ev.Status.Message,
			Total:   ev.Status.Total,
		}
	}
}

// Frame returns the current frame as a data URI, or "" before the first event.
func (s *State) Frame() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Counts returns a copy of the current count snapshot. Every class from the
// closed set is always present.
func (s *State) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int, len(s.counts))
	for class, n := range s.counts {
		counts[class] = n
	}
	return counts
}

// Status returns the current traffic status.
func (s *State) Status() models.TrafficStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// UploadStatus returns the last upload lifecycle message.
func (s *State) UploadStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.uploadStatus
}

// SetUploadStatus overwrites the upload lifecycle message.
func (s *State) SetUploadStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadStatus = status
}
