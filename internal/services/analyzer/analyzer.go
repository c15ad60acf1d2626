package analyzer

import (
	"context"
	"sync"
	"time"

	"trafficwatch/internal/config"
	"trafficwatch/internal/logger"
	"trafficwatch/internal/models"

	"gocv.io/x/gocv"
)

// EmitFunc receives one analyzed frame: the annotated JPEG, the cumulative
// counts and the status derived from them.
type EmitFunc func(jpeg []byte, counts map[string]int, status models.TrafficStatus)

// Analyzer reads frames from the current video source, runs detection and
// tracking, and emits annotated frames with counts. The source loops at EOF
// and can be swapped at runtime by an upload.
type Analyzer struct {
	cfg      *config.Config
	logger   *logger.Logger
	detector *Detector
	tracker  *Tracker

	mu         sync.Mutex
	source     string
	needsReset bool
}

// New creates an analyzer over the configured initial video source.
func New(cfg *config.Config, detector *Detector, logger *logger.Logger) *Analyzer {
	return &Analyzer{
		cfg:      cfg,
		logger:   logger,
		detector: detector,
		tracker:  NewTracker(0),
		source:   cfg.VideoSource,
	}
}

// Tracker exposes the tracker for stats queries.
func (a *Analyzer) Tracker() *Tracker {
	return a.tracker
}

// Source returns the path of the video currently being analyzed.
func (a *Analyzer) Source() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// SwitchSource replaces the video source and resets all counters and track
// state. The running loop picks the new source up before the next frame.
func (a *Analyzer) SwitchSource(path string) {
	a.mu.Lock()
	a.source = path
	a.needsReset = true
	a.mu.Unlock()

	a.tracker.Reset()
	a.logger.Info("Switched to new video source: %s", path)
}

// Run drives the analysis loop until the context is cancelled, emitting one
// event per frame. Frames are paced by the configured interval.
func (a *Analyzer) Run(ctx context.Context, emit EmitFunc) error {
	capture, lineY, err := a.open()
	if err != nil {
		return err
	}
	// capture is rebound on a source switch; close whichever is current.
	defer func() { capture.Close() }()
	a.tracker.SetLine(lineY)

	mat := gocv.NewMat()
	defer mat.Close()

	interval := time.Duration(a.cfg.FrameIntervalMs) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		a.mu.Lock()
		reset := a.needsReset
		a.needsReset = false
		a.mu.Unlock()

		if reset {
			capture.Close()
			capture, lineY, err = a.open()
			if err != nil {
				return err
			}
			a.tracker.SetLine(lineY)
		}

		if ok := capture.Read(&mat); !ok || mat.Empty() {
			// Loop the video from the start.
			capture.Set(gocv.VideoCapturePosFrames, 0)
			continue
		}

		var detections []models.Detection
		if a.detector.Ready() {
			detections, err = a.detector.Detect(mat)
			if err != nil {
				a.logger.Error("Detection failed: %v", err)
				detections = nil
			}
		}

		tracked := a.tracker.Update(detections)
		DrawOverlays(&mat, tracked, a.tracker, lineY)

		counts := a.tracker.Counts()
		status := Classify(counts)

		buf, err := gocv.IMEncode(".jpg", mat)
		if err != nil {
			a.logger.Error("Failed to encode frame: %v", err)
			continue
		}
		jpeg := make([]byte, len(buf.GetBytes()))
		copy(jpeg, buf.GetBytes())
		buf.Close()

		emit(jpeg, counts, status)
	}
}

func (a *Analyzer) open() (*gocv.VideoCapture, int, error) {
	a.mu.Lock()
	source := a.source
	a.mu.Unlock()

	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, 0, err
	}

	// Counting line sits at two thirds of the frame height.
	lineY := int(capture.Get(gocv.VideoCaptureFrameHeight) / 1.5)

	a.logger.Info("Opened video source %s (counting line at y=%d)", source, lineY)
	return capture, lineY, nil
}
